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

//nolint:gochecknoglobals
var (
	// RoundRobin advances the active host after each dispatch, so requests
	// visit hosts in sequential order: 0, 1, 2, 0, 1, 2 and so on. Failed
	// hosts are not skipped; retries and leader redirects take care of
	// hosts that are actually down.
	RoundRobin Policy = roundRobin{}
)

type roundRobin struct{}

func (roundRobin) Initial(int) int {
	return 0
}

func (roundRobin) Next(active, hostCount int) int {
	return (active + 1) % hostCount
}

func (roundRobin) Failover() bool {
	return false
}
