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

// Package c8testing provides fake host transports for testing code that
// dispatches requests over a connection. A FakeHosts hands out one
// http.RoundTripper per base URL. Exchanges either park until the test
// settles them, or are answered immediately by a Handler.
package c8testing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"syscall"
)

// Handler answers exchanges for one host immediately.
type Handler func(*http.Request) (*http.Response, error)

// Exchange is one round trip parked on a FakeHosts transport. Exactly one
// of Respond, RespondJSON or Fail must be called to release it.
type Exchange struct {
	// Host is the base URL of the transport that received the request.
	Host    string
	Request *http.Request
	// Body is the request body, read before the exchange was parked.
	Body []byte

	done chan exchangeResult
}

type exchangeResult struct {
	resp *http.Response
	err  error
}

// Respond completes the exchange with the given response.
func (e *Exchange) Respond(status int, header http.Header, body []byte) {
	e.done <- exchangeResult{resp: NewResponse(e.Request, status, header, body)}
}

// RespondJSON completes the exchange with v encoded as a JSON body.
func (e *Exchange) RespondJSON(status int, v any) {
	resp, err := JSONResponse(e.Request, status, v)
	e.done <- exchangeResult{resp: resp, err: err}
}

// Fail completes the exchange with a transport error.
func (e *Exchange) Fail(err error) {
	e.done <- exchangeResult{err: err}
}

// FakeHosts is a set of fake host transports.
type FakeHosts struct {
	exchanges chan *Exchange

	mu sync.Mutex
	// +checklocks:mu
	handlers map[string]Handler
	// +checklocks:mu
	started map[string]int
	// +checklocks:mu
	closed map[string]bool
	// +checklocks:mu
	inFlight int
	// +checklocks:mu
	maxInFlight int
}

// NewFakeHosts constructs a new FakeHosts.
func NewFakeHosts() *FakeHosts {
	return &FakeHosts{
		exchanges: make(chan *Exchange, 64),
		handlers:  map[string]Handler{},
		started:   map[string]int{},
		closed:    map[string]bool{},
	}
}

// Handle makes the transport for baseURL answer with handler instead of
// parking exchanges.
func (f *FakeHosts) Handle(baseURL string, handler Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[baseURL] = handler
}

// RoundTripper returns the transport for the given base URL.
func (f *FakeHosts) RoundTripper(baseURL string) http.RoundTripper {
	return roundTripper{hosts: f, baseURL: baseURL}
}

// CloseFunc returns a function that records that the transport for
// baseURL was closed.
func (f *FakeHosts) CloseFunc(baseURL string) func() {
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.closed[baseURL] = true
	}
}

// Closed reports whether the CloseFunc of baseURL was called.
func (f *FakeHosts) Closed(baseURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed[baseURL]
}

// Await waits for the next parked exchange.
func (f *FakeHosts) Await(ctx context.Context) (*Exchange, error) {
	select {
	case exchange := <-f.exchanges:
		return exchange, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight returns the number of round trips that have started and not
// yet returned.
func (f *FakeHosts) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// MaxInFlight returns the highest value InFlight ever had.
func (f *FakeHosts) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// Started returns how many round trips the transport for baseURL began.
func (f *FakeHosts) Started(baseURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started[baseURL]
}

func (f *FakeHosts) begin(baseURL string) Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[baseURL]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	return f.handlers[baseURL]
}

func (f *FakeHosts) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
}

type roundTripper struct {
	hosts   *FakeHosts
	baseURL string
}

func (r roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = data
	}
	handler := r.hosts.begin(r.baseURL)
	defer r.hosts.end()
	if handler != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		return handler(req)
	}
	exchange := &Exchange{
		Host:    r.baseURL,
		Request: req,
		Body:    body,
		done:    make(chan exchangeResult, 1),
	}
	r.hosts.exchanges <- exchange
	select {
	case result := <-exchange.done:
		return result.resp, result.err
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

// NewResponse builds a response to req.
func NewResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// JSONResponse builds a response to req with v encoded as the body.
func JSONResponse(req *http.Request, status int, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")
	return NewResponse(req, status, header, body), nil
}

// ConnRefused returns the error a dialer reports when the remote host
// refuses the connection.
func ConnRefused() error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}
}
