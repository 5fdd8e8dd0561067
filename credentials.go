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
	"github.com/golang-jwt/jwt/v5"
)

// UseBearerAuth authenticates further requests with the given JWT. Unless a
// tenant was configured explicitly, the tenant becomes the token's "tenant"
// claim.
func (c *Connection) UseBearerAuth(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set("Authorization", "bearer "+token)
	if tenant, ok := tenantFromToken(token); ok && !c.tenantExplicit && !c.absolute {
		c.tenantName = tenant
	}
}

// UseAPIKeyAuth authenticates further requests with the given API key.
func (c *Connection) UseAPIKeyAuth(apiKey string) {
	c.SetHeader("Authorization", "apikey "+apiKey)
}

// tenantFromToken reads the tenant claim without verifying the token. The
// server validates credentials.
func tenantFromToken(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	tenant, ok := claims["tenant"].(string)
	return tenant, ok && tenant != ""
}
