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
	"crypto/tls"
	"net"

	"golang.org/x/net/http2"
)

// h2cFactory provides support for the "h2c" scheme, which is used to force
// HTTP/2 over clear-text (no TLS), aka H2C.
type h2cFactory struct{}

func (h2cFactory) NewTransport(_ string, config TransportConfig) TransportResult {
	dial := config.DialFunc
	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dial(ctx, network, addr)
		},
		// h2c is plain-text only, so TLSClientConfig is left unset.
		MaxHeaderListSize: uint32(config.MaxResponseHeaderBytes), //nolint:gosec
		IdleConnTimeout:   config.IdleConnTimeout,
	}
	return TransportResult{RoundTripper: transport, Scheme: "http", Close: transport.CloseIdleConnections}
}
