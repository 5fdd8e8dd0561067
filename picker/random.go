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

package picker

import (
	"math/rand/v2"
)

// NewOneRandom returns a policy that picks one host at random when the
// connection is created and keeps using it. It fails over like None.
func NewOneRandom() Policy {
	return sticky{start: func(hostCount int) int {
		return rand.IntN(hostCount) //nolint:gosec // does not need to be cryptographically secure
	}}
}
