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
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	c8 "github.com/Macrometacorp/jsC8-sub000"
	"github.com/Macrometacorp/jsC8-sub000/internal/c8testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	url    *url.URL
	header http.Header
	body   []byte
}

// capture answers every request with an empty JSON object and sends the
// request on the returned channel.
func capture(hosts *c8testing.FakeHosts, baseURL string) <-chan capturedRequest {
	requests := make(chan capturedRequest, 16)
	hosts.Handle(baseURL, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		requests <- capturedRequest{method: req.Method, url: req.URL, header: req.Header, body: body}
		return c8testing.JSONResponse(req, http.StatusOK, map[string]any{})
	})
	return requests
}

func TestRequestURL(t *testing.T) {
	t.Parallel()
	ctx := awaitCtx(t)
	hosts := c8testing.NewFakeHosts()
	requests := capture(hosts, "http://a:8529")
	conn := newFakeConnection(t, hosts, c8.Config{URLs: []string{"http://a:8529/"}})

	_, err := conn.Do(ctx, &c8.Request{
		BasePath: "/_api/document",
		Path:     "/users/alice",
		Query:    map[string]any{"returnNew": true, "limit": 5, "skip": nil},
	})
	require.NoError(t, err)
	got := <-requests
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/_fabric/_system/_api/document/users/alice", got.url.Path)
	assert.Equal(t, "limit=5&returnNew=true", got.url.RawQuery)

	require.NoError(t, conn.SetFabricName("geo"))
	assert.Equal(t, "geo", conn.FabricName())
	_, err = conn.Do(ctx, &c8.Request{Path: "/_api/collection", Query: "?excludeSystem=true"})
	require.NoError(t, err)
	got = <-requests
	assert.Equal(t, "/_fabric/geo/_api/collection", got.url.Path)
	assert.Equal(t, "excludeSystem=true", got.url.RawQuery)

	_, err = conn.Do(ctx, &c8.Request{Path: "/_api/database", Absolute: true})
	require.NoError(t, err)
	got = <-requests
	assert.Equal(t, "/_api/database", got.url.Path)
}

func TestAbsoluteMode(t *testing.T) {
	t.Parallel()
	ctx := awaitCtx(t)
	hosts := c8testing.NewFakeHosts()
	requests := capture(hosts, "http://a")
	conn := newFakeConnection(t, hosts, c8.Config{URLs: []string{"http://a"}, Absolute: true, TenantName: "acme"})

	require.ErrorIs(t, conn.SetFabricName("x"), c8.ErrAbsoluteMode)
	require.ErrorIs(t, conn.SetTenantName("y"), c8.ErrAbsoluteMode)
	assert.Equal(t, c8.DefaultFabricName, conn.FabricName())
	assert.Equal(t, "acme", conn.TenantName())
	assert.True(t, conn.Absolute())

	_, err := conn.Do(ctx, &c8.Request{Path: "/_api/version"})
	require.NoError(t, err)
	got := <-requests
	assert.Equal(t, "/_api/version", got.url.Path)
}

func TestRequestHeadersAndBody(t *testing.T) {
	t.Parallel()
	ctx := awaitCtx(t)
	hosts := c8testing.NewFakeHosts()
	requests := capture(hosts, "http://a")
	conn := newFakeConnection(t, hosts, c8.Config{
		URLs:    []string{"http://a"},
		Headers: map[string]string{"x-c8-client": "test"},
	})
	conn.SetHeader("X-Fixed", "1")
	assert.Equal(t, "1", conn.Headers().Get("X-Fixed"))

	_, err := conn.Do(ctx, &c8.Request{
		Method:  http.MethodPost,
		Headers: http.Header{"x-fixed": {"2"}},
		Body:    map[string]string{"_key": "alice"},
	})
	require.NoError(t, err)
	got := <-requests
	assert.Equal(t, "test", got.header.Get("X-C8-Client"))
	assert.Equal(t, "2", got.header.Get("X-Fixed"))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.JSONEq(t, `{"_key":"alice"}`, string(got.body))

	_, err = conn.Do(ctx, &c8.Request{Method: http.MethodPut, Body: "plain"})
	require.NoError(t, err)
	got = <-requests
	assert.Equal(t, "text/plain", got.header.Get("Content-Type"))
	assert.Equal(t, "plain", string(got.body))

	_, err = conn.Do(ctx, &c8.Request{
		Method:   http.MethodPut,
		Body:     strings.NewReader("\x00\x01"),
		IsBinary: true,
		Headers:  http.Header{"Content-Type": {"application/octet-stream"}},
	})
	require.NoError(t, err)
	got = <-requests
	assert.Equal(t, "application/octet-stream", got.header.Get("Content-Type"))
	assert.Equal(t, []byte{0, 1}, got.body)

	_, err = conn.Do(ctx, &c8.Request{Method: http.MethodPatch, Body: json.RawMessage(`[1]`)})
	require.NoError(t, err)
	got = <-requests
	assert.Equal(t, "[1]", string(got.body))

	// Fixed headers are copied per request.
	assert.Equal(t, "1", conn.Headers().Get("X-Fixed"))
}

func TestEncodeQuery(t *testing.T) {
	t.Parallel()
	type listOptions struct {
		ExcludeSystem bool   `url:"excludeSystem"`
		Cursor        string `url:"cursor,omitempty"`
	}
	testCases := []struct {
		name     string
		query    any
		expected string
	}{
		{name: "nil", query: nil, expected: ""},
		{name: "string", query: "?a=1&b=2", expected: "a=1&b=2"},
		{name: "values", query: url.Values{"b": {"2"}, "a": {"1", "3"}}, expected: "a=1&a=3&b=2"},
		{name: "string map", query: map[string]string{"q": "a b"}, expected: "q=a+b"},
		{name: "any map", query: map[string]any{"n": 1.5, "ids": []string{"x", "y"}}, expected: "ids=x&ids=y&n=1.5"},
		{name: "struct", query: listOptions{ExcludeSystem: true}, expected: "excludeSystem=true"},
		{name: "struct pointer", query: &listOptions{Cursor: "c1"}, expected: "cursor=c1&excludeSystem=false"},
		{name: "nil struct pointer", query: (*listOptions)(nil), expected: ""},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			encoded, err := c8.EncodeQuery(testCase.query)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, encoded)
		})
	}
	_, err := c8.EncodeQuery(42)
	require.ErrorContains(t, err, "unsupported query type")
}

func TestIsJSONContentType(t *testing.T) {
	t.Parallel()
	testCases := map[string]bool{
		"application/json":                true,
		"application/json; charset=utf-8": true,
		"application/x-c8+json":           true,
		"APPLICATION/JSON":                true,
		"text/plain":                      false,
		"application/octet-stream":        false,
		"text/json":                       false,
		"":                                false,
		"not a ; type ;;":                 false,
	}
	for contentType, expected := range testCases {
		assert.Equal(t, expected, c8.IsJSONContentType(contentType), contentType)
	}
}
