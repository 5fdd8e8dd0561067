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

package c8_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	c8 "github.com/Macrometacorp/jsC8-sub000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func versionHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_fabric/_system/_api/version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"server":"c8","proto":"`+r.Proto+`"}`)
	})
}

func TestNewConnection_HTTP(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svr := httptest.NewServer(versionHandler(t))
	t.Cleanup(svr.Close)

	conn, err := c8.NewConnection(c8.Config{URLs: []string{svr.URL}})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})

	resp, err := conn.Do(ctx, &c8.Request{Path: "/_api/version"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"server": "c8", "proto": "HTTP/1.1"}, resp.Data)

	_, err = conn.Do(ctx, &c8.Request{Path: "/missing"})
	var httpErr *c8.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestNewConnection_H2C(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svr := httptest.NewServer(h2c.NewHandler(versionHandler(t), &http2.Server{}))
	t.Cleanup(svr.Close)

	conn, err := c8.NewConnection(c8.Config{URLs: []string{strings.Replace(svr.URL, "http://", "h2c://", 1)}})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})

	resp, err := conn.Do(ctx, &c8.Request{Path: "/_api/version"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"server": "c8", "proto": "HTTP/2.0"}, resp.Data)
}

func TestNewConnection_TLS(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svr := httptest.NewTLSServer(versionHandler(t))
	t.Cleanup(svr.Close)

	tlsConfig := svr.Client().Transport.(*http.Transport).TLSClientConfig //nolint:forcetypeassert
	conn, err := c8.NewConnection(c8.Config{URLs: []string{strings.Replace(svr.URL, "https://", "ssl://", 1)}},
		c8.WithTLSConfig(tlsConfig, time.Second))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})

	_, err = conn.Do(ctx, &c8.Request{Path: "/_api/version"})
	require.NoError(t, err)
}

func TestFailoverOnRealRefusedConnection(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Grab a free port and close it so that dialing it is refused.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadURL := "tcp://" + listener.Addr().String()
	require.NoError(t, listener.Close())
	svr := httptest.NewServer(versionHandler(t))
	t.Cleanup(svr.Close)

	conn, err := c8.NewConnection(c8.Config{URLs: []string{deadURL, svr.URL}})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})

	resp, err := conn.Do(ctx, &c8.Request{Path: "/_api/version"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Host)

	_, err = conn.Do(ctx, &c8.Request{Path: "/_api/version", Host: 0, PinHost: true})
	require.ErrorIs(t, err, syscall.ECONNREFUSED)
}
