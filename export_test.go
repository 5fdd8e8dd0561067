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
	"github.com/Macrometacorp/jsC8-sub000/internal"
)

// WithClock replaces the clock used for delayed retries.
func WithClock(clock internal.Clock) Option {
	return optionFunc(func(opts *connOptions) {
		opts.clock = clock
	})
}

func (c *Connection) ActiveHost() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeHost
}

func (c *Connection) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Connection) DelayedLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delayed)
}

func (c *Connection) MaxTasks() int {
	return c.maxTasks
}

func NormalizeURL(rawURL string) string {
	return normalizeURL(rawURL)
}

func EncodeQuery(q any) (string, error) {
	return encodeQuery(q)
}

func IsJSONContentType(contentType string) bool {
	return isJSONContentType(contentType)
}

func TenantFromToken(token string) (string, bool) {
	return tenantFromToken(token)
}
