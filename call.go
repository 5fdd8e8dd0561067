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

package c8

import (
	"context"
	"sync"
)

// Call is a pending request issued with Connection.Go. It settles exactly
// once, after which Done is closed and Result returns the outcome.
type Call struct {
	Request *Request

	done     chan struct{}
	once     sync.Once
	response *Response
	err      error
}

func newCall(req *Request) *Call {
	return &Call{Request: req, done: make(chan struct{})}
}

// Done is closed once the call has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the settled outcome. It must only be called after Done
// is closed.
func (c *Call) Result() (*Response, error) {
	return c.response, c.err
}

// Wait blocks until the call settles or ctx is done. An abandoned call
// still runs to completion in the background.
func (c *Call) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-c.done:
		return c.response, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle reports whether this was the first settlement.
func (c *Call) settle(resp *Response, err error) bool {
	settled := false
	c.once.Do(func() {
		c.response, c.err = resp, err
		close(c.done)
		settled = true
	})
	return settled
}
