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
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// LeaderEndpointHeader is set by the server on a 503 response to name the
// host that currently leads for the request.
const LeaderEndpointHeader = "X-Arango-Endpoint"

// Response is the result of a successful call.
type Response struct {
	StatusCode int
	Header     http.Header
	// Body is always the raw response body.
	Body []byte
	// Data holds the decoded body when the server sent JSON.
	Data any
	// Host is the index of the host that served the response.
	Host int
	URL  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.Newf("c8: empty response body from %s", r.URL)
	}
	return errors.Wrapf(json.Unmarshal(r.Body, v), "c8: decoding response from %s", r.URL)
}

type outcome string

const (
	outcomeSuccess    outcome = "success"
	outcomeRedirect   outcome = "redirect"
	outcomeC8Error    outcome = "c8_error"
	outcomeHTTPError  outcome = "http_error"
	outcomeParseError outcome = "parse_error"
	outcomeNetwork    outcome = "network_error"
)

// classify turns a completed exchange into exactly one outcome. When the
// outcome is a redirect, the returned string is the leader URL and both the
// response and the error are nil.
func classify(resp *Response, expectBinary bool) (*Response, string, outcome, error) {
	if resp.StatusCode == http.StatusServiceUnavailable {
		if leader := resp.Header.Get(LeaderEndpointHeader); leader != "" {
			return nil, leader, outcomeRedirect, nil
		}
	}
	if len(resp.Body) > 0 && isJSONContentType(resp.Header.Get("Content-Type")) {
		var data any
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			if !expectBinary {
				return nil, "", outcomeParseError, errors.Wrapf(err, "c8: invalid JSON in response from %s", resp.URL)
			}
		} else {
			resp.Data = data
		}
	}
	if c8Err := envelopeError(resp); c8Err != nil {
		return nil, "", outcomeC8Error, c8Err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", outcomeHTTPError, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body, Response: resp}
	}
	return resp, "", outcomeSuccess, nil
}

func envelopeError(resp *Response) *C8Error {
	fields, ok := resp.Data.(map[string]any)
	if !ok {
		return nil
	}
	flag, hasFlag := fields["error"]
	code, hasCode := fields["code"]
	msg, hasMsg := fields["errorMessage"]
	num, hasNum := fields["errorNum"]
	if !hasFlag || !hasCode || !hasMsg || !hasNum || !truthy(flag) {
		return nil
	}
	c8Err := &C8Error{Code: toInt(code), ErrorNum: toInt(num), Response: resp}
	if s, ok := msg.(string); ok {
		c8Err.ErrorMessage = s
	}
	return c8Err
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}

func toInt(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

// isJSONContentType accepts application/json and any application/*+json
// type, with or without parameters.
func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/json" {
		return true
	}
	return strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json")
}
