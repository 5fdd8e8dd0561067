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
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidStrategy is returned by ParseStrategy and ForStrategy for
// strategy names that are not known.
var ErrInvalidStrategy = errors.New("invalid load balancing strategy")

// Strategy names a load-balancing strategy, as it appears in configuration.
type Strategy string

const (
	StrategyNone       Strategy = "NONE"
	StrategyRoundRobin Strategy = "ROUND_ROBIN"
	StrategyOneRandom  Strategy = "ONE_RANDOM"
)

// ParseStrategy parses a strategy name. Names are case-insensitive and
// an empty name means StrategyNone.
func ParseStrategy(name string) (Strategy, error) {
	strategy := Strategy(strings.ToUpper(strings.TrimSpace(name)))
	switch strategy {
	case "":
		return StrategyNone, nil
	case StrategyNone, StrategyRoundRobin, StrategyOneRandom:
		return strategy, nil
	default:
		return "", errors.Wrapf(ErrInvalidStrategy, "%q", name)
	}
}

// Policy chooses which host serves requests that are not pinned to a host.
// Hosts are identified by their index in the connection's host list.
//
// Implementations are called with the connection's lock held, so they must
// not block. The host count is always at least one.
type Policy interface {
	// Initial returns the index of the host that is active when the
	// connection is created.
	Initial(hostCount int) int
	// Next returns the active host to use after a request was dispatched
	// to the given active host.
	Next(active, hostCount int) int
	// Failover reports whether the connection should move off the active
	// host when a request to it fails with a connection error.
	Failover() bool
}

// ForStrategy returns the policy for the given strategy. The name is
// matched like ParseStrategy does.
func ForStrategy(strategy Strategy) (Policy, error) {
	strategy, err := ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}
	switch strategy {
	case StrategyNone:
		return None, nil
	case StrategyRoundRobin:
		return RoundRobin, nil
	case StrategyOneRandom:
		return NewOneRandom(), nil
	default:
		return nil, errors.Wrapf(ErrInvalidStrategy, "%q", string(strategy))
	}
}

//nolint:gochecknoglobals
var (
	// None keeps using the active host until it fails, then advances to
	// the next one.
	None Policy = sticky{start: func(int) int { return 0 }}
)

type sticky struct {
	start func(hostCount int) int
}

func (s sticky) Initial(hostCount int) int {
	return s.start(hostCount)
}

func (s sticky) Next(active, _ int) int {
	return active
}

func (s sticky) Failover() bool {
	return true
}
