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

// Package c8 is a client for the C8 global data network. Its core is the
// [Connection], which multiplexes requests over a small set of regional
// hosts.
//
// To create a connection use the [NewConnection] function. It takes a
// [Config], which can be built in code or loaded from YAML with
// [LoadConfig], and options that customize logging, metrics, transports
// and the load-balancing policy.
//
//	conn, err := c8.NewConnection(c8.Config{
//	    URLs:   []string{"https://eu.example.com", "https://us.example.com"},
//	    APIKey: key,
//	})
//	resp, err := conn.Do(ctx, &c8.Request{Path: "/_api/collection"})
//
// # Dispatching
//
// Requests wait in a FIFO queue and at most a fixed number of them are in
// flight at once. The bound defaults to the number of sockets each host
// transport may open, doubled when keep-alive is enabled; see
// [WithMaxTasks]. [Connection.Go] queues a request and returns a [Call]
// that settles once. [Connection.Do] and the generic [Do] wait for it.
//
// A request that is not pinned to a host is sent to the active host. The
// [picker.Policy] of the connection decides which host is active initially
// and after each dispatch, and whether the connection fails over to the
// next host when the active one refuses connections. Requests failing
// with a refused connection are re-queued, at most once per additional
// host unless [WithMaxRetries] says otherwise. Nothing else is retried,
// since the server may already have acted on the request.
//
// # Leader Redirects
//
// A 503 response carrying the [LeaderEndpointHeader] names the host that
// leads for the request. The connection adds that host to its host list,
// pins the request to it and re-queues it, so the caller only sees the
// leader's answer. A request gives up with [ErrTooManyRedirects] after
// Config.MaxRedirects redirects.
//
// # Errors
//
// A response whose JSON body carries the server's error envelope fails
// with a [*C8Error], whatever its status code. Other responses with a
// status of 400 or above fail with a [*HTTPError]. Transport errors are
// returned unchanged, so errors.Is(err, syscall.ECONNREFUSED) works.
//
// # Custom Transports
//
// Each host gets its own transport, created by the [TransportFactory]
// registered for the scheme of its base URL. Besides "http" and "https",
// the "h2c" scheme is supported for HTTP/2 over plaintext. Use
// [WithTransportFactory] to register others.
package c8
