// Copyright 2026 Macrometa Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package picker provides the load-balancing strategies used by a
// [github.com/Macrometacorp/jsC8-sub000.Connection] to decide which host
// serves the next request that is not pinned to a specific host.
//
// This package defines the core interface, [Policy], along with the three
// strategies a connection can be configured with:
//
//   - [None] always uses the active host, starting at the first host, and
//     advances to the next host when the active one fails.
//   - [RoundRobin] advances the active host after every dispatch, so
//     consecutive requests visit hosts in rotation. It never fails over.
//   - [NewOneRandom] starts at a random host and then behaves like [None].
//
// A policy only chooses host indexes. Retries, leader redirects, and the
// host list itself are owned by the connection.
package picker
