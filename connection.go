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
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Macrometacorp/jsC8-sub000/internal"
	"github.com/Macrometacorp/jsC8-sub000/picker"
	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Connection dispatches requests to a set of hosts. Requests wait in a
// FIFO queue until one of a bounded number of slots is free, and are then
// sent to the host chosen by the connection's picker.Policy. Requests that
// fail because a host refused the connection are retried, and leader
// redirects sent by the server are followed transparently.
//
// A Connection is safe for concurrent use. It must not be used after Close.
type Connection struct {
	log             logr.Logger
	clock           internal.Clock
	policy          picker.Policy
	factories       map[string]TransportFactory
	transportConfig TransportConfig
	metrics         *metrics
	maxTasks        int
	maxRetries      *int
	retries         bool
	maxRedirects    int
	retryDelay      time.Duration
	absolute        bool

	mu sync.Mutex
	// +checklocks:mu
	hosts []*host
	// +checklocks:mu
	hostIndex map[string]int
	// +checklocks:mu
	activeHost int
	// +checklocks:mu
	queue []*task
	// +checklocks:mu
	activeTasks int
	// +checklocks:mu
	delayed map[*task]internal.Timer
	// +checklocks:mu
	closed bool
	// +checklocks:mu
	fabricName string
	// +checklocks:mu
	tenantName string
	// +checklocks:mu
	tenantExplicit bool
	// +checklocks:mu
	headers http.Header
}

type host struct {
	url       string
	transport TransportResult
}

type task struct {
	id        uuid.UUID
	ctx       context.Context //nolint:containedctx
	wire      *wireRequest
	host      int
	pinned    bool
	retries   int
	redirects int
	call      *Call
}

// NewConnection creates a connection to the hosts listed in cfg.
func NewConnection(cfg Config, options ...Option) (*Connection, error) {
	cfg = cfg.withDefaults()
	if len(cfg.URLs) == 0 {
		return nil, ErrNoURLs
	}
	var opts connOptions
	for _, opt := range options {
		opt.apply(&opts)
	}
	if err := opts.applyDefaults(&cfg); err != nil {
		return nil, err
	}
	m, err := newMetrics(opts.registerer)
	if err != nil {
		return nil, err
	}
	conn := &Connection{
		log:             opts.logger,
		clock:           opts.clock,
		policy:          opts.policy,
		factories:       opts.factories,
		transportConfig: opts.transportConfig(&cfg),
		metrics:         m,
		maxTasks:        opts.maxTasks,
		maxRetries:      opts.maxRetries,
		retries:         *opts.retries,
		maxRedirects:    cfg.MaxRedirects,
		retryDelay:      opts.retryDelay,
		absolute:        cfg.Absolute,
		hostIndex:       map[string]int{},
		delayed:         map[*task]internal.Timer{},
		fabricName:      cfg.FabricName,
		headers:         http.Header{},
	}
	for key, value := range cfg.Headers {
		conn.headers.Set(key, value)
	}
	if cfg.APIKey != "" {
		conn.headers.Set("Authorization", "apikey "+cfg.APIKey)
	}
	if cfg.Token != "" {
		conn.headers.Set("Authorization", "bearer "+cfg.Token)
	}
	switch {
	case cfg.TenantName != "":
		conn.tenantName, conn.tenantExplicit = cfg.TenantName, true
	case cfg.Token != "":
		conn.tenantName, _ = tenantFromToken(cfg.Token)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	conn.addToHostListLocked(cfg.URLs...)
	conn.activeHost = conn.policy.Initial(len(conn.hosts))
	return conn, nil
}

// AddToHostList registers the given base URLs and returns the index of
// each, whether it was new or already known. Indices are stable for the
// life of the connection.
func (c *Connection) AddToHostList(urls ...string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addToHostListLocked(urls...)
}

// +checklocks:c.mu
func (c *Connection) addToHostListLocked(urls ...string) []int {
	indices := make([]int, len(urls))
	for i, rawURL := range urls {
		normalized := normalizeURL(rawURL)
		if index, ok := c.hostIndex[normalized]; ok {
			indices[i] = index
			continue
		}
		index := len(c.hosts)
		c.hosts = append(c.hosts, c.newHost(normalized))
		c.hostIndex[normalized] = index
		indices[i] = index
		c.log.V(1).Info("added host", "url", normalized, "index", index)
	}
	return indices
}

func (c *Connection) newHost(baseURL string) *host {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return &host{url: baseURL, transport: TransportResult{
			RoundTripper: brokenTransport{err: errors.Wrapf(err, "c8: invalid host URL %q", baseURL)},
		}}
	}
	factory, ok := c.factories[strings.ToLower(parsed.Scheme)]
	if !ok {
		return &host{url: baseURL, transport: unsupportedScheme(baseURL, parsed.Scheme)}
	}
	result := factory.NewTransport(baseURL, c.transportConfig)
	if result.RoundTripper == nil {
		result = unsupportedScheme(baseURL, parsed.Scheme)
	}
	return &host{url: baseURL, transport: result}
}

// normalizeURL rewrites the tcp: and ssl: scheme aliases and drops a
// trailing slash.
func normalizeURL(rawURL string) string {
	switch {
	case strings.HasPrefix(rawURL, "tcp:"):
		rawURL = "http:" + strings.TrimPrefix(rawURL, "tcp:")
	case strings.HasPrefix(rawURL, "ssl:"):
		rawURL = "https:" + strings.TrimPrefix(rawURL, "ssl:")
	}
	return strings.TrimSuffix(rawURL, "/")
}

// Go queues req and returns immediately. The returned call settles exactly
// once. Cancelling ctx aborts the exchange if it is in flight, or drops the
// request if it is still queued.
func (c *Connection) Go(ctx context.Context, req *Request) *Call {
	call := newCall(req)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		call.settle(nil, ErrClosed)
		return call
	}
	wire, err := c.wireLocked(req)
	if err != nil {
		call.settle(nil, err)
		return call
	}
	t := &task{id: uuid.New(), ctx: ctx, wire: wire, call: call}
	if req.PinHost {
		if req.Host < 0 || req.Host >= len(c.hosts) {
			call.settle(nil, errors.Newf("c8: host index %d out of range [0,%d)", req.Host, len(c.hosts)))
			return call
		}
		t.host, t.pinned = req.Host, true
	}
	c.queue = append(c.queue, t)
	c.runQueueLocked()
	return call
}

// Do sends req and waits for its result.
func (c *Connection) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.Go(ctx, req).Wait(ctx)
}

// Requester sends a request and waits for its result. *Connection
// implements it, and the wrapper packages accept it so they can be tested
// or decorated independently of a connection.
type Requester interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

var _ Requester = (*Connection)(nil)

// Do sends req with r and, if it succeeds, hands the response to project.
func Do[T any](ctx context.Context, r Requester, req *Request, project func(*Response) (T, error)) (T, error) {
	resp, err := r.Do(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return project(resp)
}

// Decode is a projection for Do that unmarshals the JSON body into a T.
func Decode[T any](resp *Response) (T, error) {
	var v T
	err := resp.Decode(&v)
	return v, err
}

// +checklocks:c.mu
func (c *Connection) wireLocked(req *Request) (*wireRequest, error) {
	prefix := ""
	if !c.absolute && !req.Absolute {
		prefix = fabricPath(c.fabricName)
	}
	target, err := buildTarget(prefix, req)
	if err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	header := c.headers.Clone()
	for key, values := range req.Headers {
		header[http.CanonicalHeaderKey(key)] = slices.Clone(values)
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}
	return &wireRequest{
		method:       req.method(),
		target:       target,
		header:       header,
		body:         body,
		expectBinary: req.ExpectBinary,
	}, nil
}

// +checklocks:c.mu
func (c *Connection) runQueueLocked() {
	for c.activeTasks < c.maxTasks && len(c.queue) > 0 {
		t := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		if err := t.ctx.Err(); err != nil {
			t.call.settle(nil, err)
			continue
		}
		index := t.host
		if !t.pinned {
			index = c.activeHost
			c.activeHost = c.policy.Next(c.activeHost, len(c.hosts))
		}
		c.activeTasks++
		h := c.hosts[index]
		c.log.V(1).Info("dispatching request",
			"task", t.id, "method", t.wire.method, "url", h.url+t.wire.target,
			"retries", t.retries, "redirects", t.redirects)
		go c.dispatch(t, index, h)
	}
	c.metrics.setQueue(len(c.queue), c.activeTasks)
}

func (c *Connection) dispatch(t *task, index int, h *host) {
	resp, err := roundTrip(t, index, h)
	c.complete(t, index, resp, err)
}

func roundTrip(t *task, index int, h *host) (*Response, error) {
	req, err := t.wire.toHTTP(t.ctx, h.url, h.transport.Scheme)
	if err != nil {
		return nil, err
	}
	httpResp, err := h.transport.RoundTripper.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "c8: reading response from %s", h.url)
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Host:       index,
		URL:        h.url + t.wire.target,
	}, nil
}

func (c *Connection) complete(t *task, index int, raw *Response, netErr error) {
	var (
		resp   *Response
		leader string
		result outcome
		err    = netErr
	)
	if netErr != nil {
		result = outcomeNetwork
	} else {
		resp, leader, result, err = classify(raw, t.wire.expectBinary)
	}
	c.metrics.observe(result)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeTasks--
	defer c.runQueueLocked()
	switch result {
	case outcomeRedirect:
		c.redirectLocked(t, index, leader)
	case outcomeNetwork:
		c.networkErrorLocked(t, index, err)
	default:
		c.log.V(1).Info("request settled", "task", t.id, "outcome", string(result))
		t.call.settle(resp, err)
	}
}

// +checklocks:c.mu
func (c *Connection) redirectLocked(t *task, index int, leader string) {
	if c.closed {
		t.call.settle(nil, ErrClosed)
		return
	}
	if t.redirects >= c.maxRedirects {
		t.call.settle(nil, errors.Wrapf(ErrTooManyRedirects, "gave up after %d, last to %s", t.redirects, leader))
		return
	}
	target := c.addToHostListLocked(leader)[0]
	if index == c.activeHost {
		c.activeHost = target
	}
	c.log.Info("following leader redirect", "task", t.id, "from", c.hosts[index].url, "to", c.hosts[target].url)
	c.metrics.redirect()
	t.host, t.pinned = target, true
	t.redirects++
	c.requeueLocked(t, 0)
}

// +checklocks:c.mu
func (c *Connection) networkErrorLocked(t *task, index int, err error) {
	refused := errors.Is(err, syscall.ECONNREFUSED)
	if refused && !t.pinned && len(c.hosts) > 1 && c.policy.Failover() && index == c.activeHost {
		c.activeHost = (c.activeHost + 1) % len(c.hosts)
		c.log.Info("failing over", "from", c.hosts[index].url, "to", c.hosts[c.activeHost].url)
		c.metrics.failover()
	}
	if refused && !t.pinned && c.retries && t.retries < c.maxRetriesLocked() {
		t.retries++
		c.log.V(1).Info("retrying request", "task", t.id, "retries", t.retries, "error", err.Error())
		c.metrics.retry()
		c.requeueLocked(t, c.retryDelay)
		return
	}
	t.call.settle(nil, err)
}

// +checklocks:c.mu
func (c *Connection) maxRetriesLocked() int {
	if c.maxRetries != nil {
		return *c.maxRetries
	}
	return len(c.hosts) - 1
}

// +checklocks:c.mu
func (c *Connection) requeueLocked(t *task, delay time.Duration) {
	if c.closed {
		t.call.settle(nil, ErrClosed)
		return
	}
	if delay <= 0 {
		c.queue = append(c.queue, t)
		return
	}
	c.delayed[t] = c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.delayed[t]; !ok {
			return
		}
		delete(c.delayed, t)
		c.queue = append(c.queue, t)
		c.runQueueLocked()
	})
}

// Close settles every queued request with ErrClosed, unregisters the
// connection's metrics and releases the host transports. Requests already
// in flight still complete.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := c.queue
	c.queue = nil
	for t, timer := range c.delayed {
		timer.Stop()
		pending = append(pending, t)
	}
	clear(c.delayed)
	hosts := slices.Clone(c.hosts)
	c.mu.Unlock()
	c.metrics.unregister()

	for _, t := range pending {
		t.call.settle(nil, ErrClosed)
	}
	grp, _ := errgroup.WithContext(context.Background())
	for _, h := range hosts {
		if h.transport.Close == nil {
			continue
		}
		grp.Go(func() error {
			h.transport.Close()
			return nil
		})
	}
	return grp.Wait()
}

// SetFabricName changes the fabric that later requests are scoped to.
func (c *Connection) SetFabricName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.absolute {
		return ErrAbsoluteMode
	}
	c.fabricName = name
	return nil
}

// SetTenantName changes the tenant of the connection.
func (c *Connection) SetTenantName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.absolute {
		return ErrAbsoluteMode
	}
	c.tenantName, c.tenantExplicit = name, true
	return nil
}

// SetHeader sets a header sent with every later request.
func (c *Connection) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// Headers returns a copy of the headers sent with every request.
func (c *Connection) Headers() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers.Clone()
}

// FabricName returns the fabric that requests are scoped to.
func (c *Connection) FabricName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fabricName
}

// TenantName returns the tenant of the connection, or "" if none is known.
func (c *Connection) TenantName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tenantName
}

// Absolute reports whether the connection is in absolute URL mode.
func (c *Connection) Absolute() bool {
	return c.absolute
}

// URLs returns the known base URLs, in host index order.
func (c *Connection) URLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	urls := make([]string, len(c.hosts))
	for i, h := range c.hosts {
		urls[i] = h.url
	}
	return urls
}

// ActiveURL returns the base URL of the host that serves the next request
// that is not pinned.
func (c *Connection) ActiveURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hosts[c.activeHost].url
}
