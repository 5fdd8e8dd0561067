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
	"time"

	"github.com/Macrometacorp/jsC8-sub000/internal"
	"github.com/Macrometacorp/jsC8-sub000/picker"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
)

// Option is an option used to customize the behavior of a connection.
// Options take precedence over the corresponding Config fields.
type Option interface {
	apply(*connOptions)
}

// WithLogger configures the logger used by the connection. Per-request
// events are logged at V(1). If no WithLogger option is used, nothing is
// logged.
func WithLogger(logger logr.Logger) Option {
	return optionFunc(func(opts *connOptions) {
		opts.logger = logger
		opts.hasLogger = true
	})
}

// WithTransportFactory registers the factory used to create transports for
// base URLs with the given scheme. The "http" and "https" schemes default to
// a *http.Transport and "h2c" to an HTTP/2 clear-text transport.
func WithTransportFactory(scheme string, factory TransportFactory) Option {
	return optionFunc(func(opts *connOptions) {
		if opts.factories == nil {
			opts.factories = map[string]TransportFactory{}
		}
		opts.factories[scheme] = factory
	})
}

// WithPicker replaces the policy selected by Config.LoadBalancingStrategy.
func WithPicker(policy picker.Policy) Option {
	return optionFunc(func(opts *connOptions) {
		opts.policy = policy
	})
}

// WithMetrics registers the connection's metrics with the given registerer.
// They are unregistered again by Close. Connections that are open at the
// same time may share a registry only if each of them registers through
// its own [prometheus.WrapRegistererWith] wrapper, all using the same label
// names with distinct values.
func WithMetrics(registerer prometheus.Registerer) Option {
	return optionFunc(func(opts *connOptions) {
		opts.registerer = registerer
	})
}

// WithRetryDelay delays the re-queueing of a request that is retried after a
// refused connection. Leader redirects are always followed immediately.
func WithRetryDelay(delay time.Duration) Option {
	return optionFunc(func(opts *connOptions) {
		opts.retryDelay = delay
	})
}

// WithMaxTasks caps the number of requests in flight at once. If not
// specified the cap is Agent.MaxSockets, doubled when keep-alive is enabled.
func WithMaxTasks(n int) Option {
	return optionFunc(func(opts *connOptions) {
		opts.maxTasks = n
	})
}

// WithMaxRetries sets how many times a request is retried after a refused
// connection. Without it, and without Config.MaxRetries, a request may be
// retried once per additional known host.
func WithMaxRetries(n int) Option {
	return optionFunc(func(opts *connOptions) {
		opts.maxRetries = &n
	})
}

// WithRetries enables or disables retries after refused connections.
func WithRetries(enabled bool) Option {
	return optionFunc(func(opts *connOptions) {
		opts.retries = &enabled
	})
}

// WithDialer configures the connection to use the given function to
// establish network connections. If no WithDialer option is provided,
// a default [net.Dialer] is used with a 30-second dial timeout and TCP
// keep-alive every Agent.KeepAliveInterval.
func WithDialer(dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return optionFunc(func(opts *connOptions) {
		opts.dialFunc = dialFunc
	})
}

// WithTLSConfig adds custom TLS configuration for "https" hosts. The given
// timeout is applied to the TLS handshake step. If the given timeout
// is zero or no WithTLSConfig option is used, a default timeout of 10
// seconds will be used.
func WithTLSConfig(config *tls.Config, handshakeTimeout time.Duration) Option {
	return optionFunc(func(opts *connOptions) {
		opts.tlsClientConfig = config
		opts.tlsHandshakeTimeout = handshakeTimeout
	})
}

type optionFunc func(*connOptions)

func (f optionFunc) apply(opts *connOptions) {
	f(opts)
}

type connOptions struct {
	logger              logr.Logger
	hasLogger           bool
	factories           map[string]TransportFactory
	policy              picker.Policy
	registerer          prometheus.Registerer
	retryDelay          time.Duration
	maxTasks            int
	maxRetries          *int
	retries             *bool
	dialFunc            func(ctx context.Context, network, addr string) (net.Conn, error)
	tlsClientConfig     *tls.Config
	tlsHandshakeTimeout time.Duration
	clock               internal.Clock
}

func (opts *connOptions) applyDefaults(cfg *Config) error {
	if !opts.hasLogger {
		opts.logger = logr.Discard()
	}
	if opts.factories == nil {
		opts.factories = map[string]TransportFactory{}
	}
	for scheme, factory := range map[string]TransportFactory{
		"http":  simpleFactory{},
		"https": simpleFactory{},
		"h2c":   h2cFactory{},
	} {
		if _, ok := opts.factories[scheme]; !ok {
			opts.factories[scheme] = factory
		}
	}
	if opts.policy == nil {
		policy, err := picker.ForStrategy(cfg.LoadBalancingStrategy)
		if err != nil {
			return err
		}
		opts.policy = policy
	}
	if opts.maxTasks <= 0 {
		opts.maxTasks = cfg.Agent.MaxSockets
		if *cfg.Agent.KeepAlive {
			opts.maxTasks *= 2
		}
	}
	if opts.maxRetries == nil {
		opts.maxRetries = cfg.MaxRetries
	}
	if opts.retries == nil {
		enabled := !cfg.DisableRetries
		opts.retries = &enabled
	}
	if opts.dialFunc == nil {
		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: cfg.Agent.KeepAliveInterval,
		}
		opts.dialFunc = dialer.DialContext
	}
	if opts.tlsHandshakeTimeout == 0 {
		opts.tlsHandshakeTimeout = 10 * time.Second
	}
	if opts.clock == nil {
		opts.clock = internal.NewRealClock()
	}
	return nil
}

func (opts *connOptions) transportConfig(cfg *Config) TransportConfig {
	return TransportConfig{
		DialFunc:               opts.dialFunc,
		TLSClientConfig:        opts.tlsClientConfig,
		TLSHandshakeTimeout:    opts.tlsHandshakeTimeout,
		MaxSockets:             cfg.Agent.MaxSockets,
		KeepAlive:              *cfg.Agent.KeepAlive,
		IdleConnTimeout:        90 * time.Second,
		ResponseHeaderTimeout:  cfg.Agent.Timeout,
		MaxResponseHeaderBytes: 1 << 20,
	}
}
