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
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// TransportFactory creates the transport for one host. A connection asks
// its factory once per base URL, when the URL is first added to the host
// list.
type TransportFactory interface {
	// NewTransport creates a round-tripper for requests to the given base
	// URL, configured using the given options.
	NewTransport(baseURL string, config TransportConfig) TransportResult
}

// TransportFactoryFunc adapts a function to a TransportFactory.
type TransportFactoryFunc func(baseURL string, config TransportConfig) TransportResult

// NewTransport implements TransportFactory.
func (f TransportFactoryFunc) NewTransport(baseURL string, config TransportConfig) TransportResult {
	return f(baseURL, config)
}

// TransportResult is a host transport created by a TransportFactory.
type TransportResult struct {
	// RoundTripper is the actual round-tripper that handles requests.
	RoundTripper http.RoundTripper
	// Scheme, if non-empty, replaces the scheme of requests sent to
	// RoundTripper. The h2c factory uses it to send "h2c://" hosts over
	// plain "http".
	Scheme string
	// Close is an optional function that will be called (if non-nil) when
	// the connection is closed.
	Close func()
}

// TransportConfig defines the options used to create a host transport.
type TransportConfig struct {
	// DialFunc should be used by the round-tripper to establish network
	// connections.
	DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)
	// TLSClientConfig, if present, provides custom TLS configuration for use
	// with secure ("https") servers.
	TLSClientConfig *tls.Config
	// TLSHandshakeTimeout configures the maximum time allowed for a TLS
	// handshake to complete.
	TLSHandshakeTimeout time.Duration
	// MaxSockets caps the number of connections to the host.
	MaxSockets int
	// KeepAlive enables reuse of idle connections.
	KeepAlive bool
	// IdleConnTimeout, if non-zero, is used to expire idle network connections.
	IdleConnTimeout time.Duration
	// ResponseHeaderTimeout, if non-zero, limits the wait for response headers.
	ResponseHeaderTimeout time.Duration
	// MaxResponseHeaderBytes configures the maximum size of the response status
	// line and response headers.
	MaxResponseHeaderBytes int64
}

type simpleFactory struct{}

func (simpleFactory) NewTransport(_ string, config TransportConfig) TransportResult {
	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            config.DialFunc,
		ForceAttemptHTTP2:      true,
		MaxConnsPerHost:        config.MaxSockets,
		MaxIdleConnsPerHost:    config.MaxSockets,
		DisableKeepAlives:      !config.KeepAlive,
		IdleConnTimeout:        config.IdleConnTimeout,
		TLSHandshakeTimeout:    config.TLSHandshakeTimeout,
		TLSClientConfig:        config.TLSClientConfig,
		ResponseHeaderTimeout:  config.ResponseHeaderTimeout,
		MaxResponseHeaderBytes: config.MaxResponseHeaderBytes,
		ExpectContinueTimeout:  1 * time.Second,
	}
	return TransportResult{RoundTripper: transport, Close: transport.CloseIdleConnections}
}

// brokenTransport serves base URLs that no factory can handle, so that the
// problem surfaces on the first request to that host.
type brokenTransport struct {
	err error
}

func (b brokenTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, b.err
}

func unsupportedScheme(baseURL, scheme string) TransportResult {
	return TransportResult{RoundTripper: brokenTransport{
		err: errors.Newf("c8: no transport for scheme %q of %s", scheme, baseURL),
	}}
}
