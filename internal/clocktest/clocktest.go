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

// Package clocktest exists to allow interoperability with our Clock interface
// and the Clockwork interfaces. Compatibility between Go interfaces is shallow,
// since function signatures containing other interfaces within an interface
// will be compared by their exact (nominal) type. Therefore, for the Clock
// functions returning a Timer or Ticker, we need to wrap those into functions
// returning our interfaces instead.
package clocktest

import (
	"context"
	"time"

	"github.com/Macrometacorp/jsC8-sub000/internal"
	"github.com/jonboulle/clockwork"
)

// FakeClock provides an interface for a clock which can be manually advanced
// through time. This adapts the [clockwork.FakeClock] interface to our
// internal.Clock interface.
type FakeClock interface {
	internal.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, waiters int) error
}

// NewFakeClock creates a new FakeClock using Clockwork.
func NewFakeClock() FakeClock {
	return fakeClock{clockwork.NewFakeClock()}
}

// fakeClock wraps the clockwork.FakeClock interface. It exposes
// BlockUntilContext, which the concrete clockwork clock implements but the
// interface does not declare, and re-boxes the Ticker and Timer results.
type fakeClock struct {
	clockwork.FakeClock
}

var _ FakeClock = fakeClock{}

type contextBlocker interface {
	BlockUntilContext(ctx context.Context, n int) error
}

// BlockUntilContext blocks until the clock has the given number of waiters
// or ctx is done.
func (f fakeClock) BlockUntilContext(ctx context.Context, waiters int) error {
	return f.FakeClock.(contextBlocker).BlockUntilContext(ctx, waiters)
}

// NewTicker implements internal.Clock by re-boxing the clockwork.Ticker.
func (f fakeClock) NewTicker(d time.Duration) internal.Ticker {
	return f.FakeClock.NewTicker(d)
}

// AfterFunc implements internal.Clock by re-boxing the clockwork.Timer.
func (f fakeClock) AfterFunc(d time.Duration, fn func()) internal.Timer {
	return f.FakeClock.AfterFunc(d, fn)
}
