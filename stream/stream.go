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

// Package stream publishes to and consumes from C8 streams over the
// WebSocket interface of the stream service.
//
// A Target names one stream topic. It is usually derived from a
// connection with TargetFor, then opened as a Producer or a Consumer.
// Both keep the socket alive with periodic pings, and both must be closed.
package stream

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Macrometacorp/jsC8-sub000/internal"
	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
)

// DefaultTenant is used for targets whose endpoint has no tenant.
const DefaultTenant = "_mm"

// ErrClosed is returned by operations on a closed producer or consumer.
var ErrClosed = errors.New("stream: closed")

// Endpoint is the part of *c8.Connection a Target is derived from.
type Endpoint interface {
	ActiveURL() string
	TenantName() string
	FabricName() string
	Headers() http.Header
}

// Target identifies a stream topic.
type Target struct {
	// BaseURL is the HTTP base URL of the region to connect to.
	BaseURL string
	Tenant  string
	Fabric  string
	Topic   string
	// Local selects a region-local stream instead of a global one.
	Local bool
	// Header is sent with the WebSocket handshake.
	Header http.Header
}

// TargetFor returns the target of topic on the active host of e, carrying
// the connection's authorization headers.
func TargetFor(e Endpoint, topic string, local bool) Target {
	tenant := e.TenantName()
	if tenant == "" {
		tenant = DefaultTenant
	}
	return Target{
		BaseURL: e.ActiveURL(),
		Tenant:  tenant,
		Fabric:  e.FabricName(),
		Topic:   topic,
		Local:   local,
		Header:  e.Headers(),
	}
}

func (t Target) scope() string {
	if t.Local {
		return "c8local"
	}
	return "c8global"
}

// ProducerURL returns the WebSocket URL producers of t connect to.
func (t Target) ProducerURL() (string, error) {
	return t.socketURL("producer", "")
}

// ConsumerURL returns the WebSocket URL consumers of t connect to with the
// given subscription.
func (t Target) ConsumerURL(subscription string) (string, error) {
	if subscription == "" {
		return "", errors.New("stream: empty subscription name")
	}
	return t.socketURL("consumer", subscription)
}

func (t Target) socketURL(role, subscription string) (string, error) {
	if t.Topic == "" {
		return "", errors.New("stream: empty topic")
	}
	base, err := url.Parse(strings.TrimSuffix(t.BaseURL, "/"))
	if err != nil {
		return "", errors.Wrapf(err, "stream: invalid base URL %q", t.BaseURL)
	}
	switch base.Scheme {
	case "https", "ssl", "wss":
		base.Scheme = "wss"
	case "http", "tcp", "h2c", "ws":
		base.Scheme = "ws"
	default:
		return "", errors.Newf("stream: unsupported scheme %q", base.Scheme)
	}
	tenant := t.Tenant
	if tenant == "" {
		tenant = DefaultTenant
	}
	segments := []string{
		"_ws", "ws", "v2", role, "persistent",
		tenant,
		t.scope() + "." + t.Fabric,
		t.scope() + "s." + t.Topic,
	}
	if subscription != "" {
		segments = append(segments, subscription)
	}
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	base.Path = "/" + strings.Join(segments, "/")
	return base.String(), nil
}

// Option is an option used to customize a producer or consumer.
type Option interface {
	apply(*options)
}

// WithLogger configures the logger of a producer or consumer.
func WithLogger(logger logr.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
		opts.hasLogger = true
	})
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return optionFunc(func(opts *options) {
		opts.dialer = dialer
	})
}

// WithPingInterval sets how often a ping control frame is sent. If zero or
// no WithPingInterval option is used, it defaults to 30 seconds.
func WithPingInterval(interval time.Duration) Option {
	return optionFunc(func(opts *options) {
		opts.pingInterval = interval
	})
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

type options struct {
	logger       logr.Logger
	hasLogger    bool
	dialer       *websocket.Dialer
	pingInterval time.Duration
	clock        internal.Clock
}

func (opts *options) applyDefaults() {
	if !opts.hasLogger {
		opts.logger = logr.Discard()
	}
	if opts.dialer == nil {
		opts.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		}
	}
	if opts.pingInterval <= 0 {
		opts.pingInterval = 30 * time.Second
	}
	if opts.clock == nil {
		opts.clock = internal.NewRealClock()
	}
}
