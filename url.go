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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/go-querystring/query"
)

// wireRequest is a request that has been serialized once and can be
// replayed against any host.
type wireRequest struct {
	method string
	// target is the path and query, relative to a host's base URL.
	target       string
	header       http.Header
	body         []byte
	expectBinary bool
}

func (w *wireRequest) toHTTP(ctx context.Context, baseURL, scheme string) (*http.Request, error) {
	rawURL := baseURL + w.target
	var body io.Reader
	if w.body != nil {
		body = bytes.NewReader(w.body)
	}
	req, err := http.NewRequestWithContext(ctx, w.method, rawURL, body)
	if err != nil {
		return nil, errors.Wrapf(err, "c8: building request to %s", rawURL)
	}
	if scheme != "" {
		req.URL.Scheme = scheme
	}
	req.Header = w.header.Clone()
	return req, nil
}

// fabricPath is the path prefix that scopes requests to a fabric.
func fabricPath(name string) string {
	return "/_fabric/" + url.PathEscape(name)
}

func buildTarget(prefix string, req *Request) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(req.BasePath)
	sb.WriteString(req.Path)
	q, err := encodeQuery(req.Query)
	if err != nil {
		return "", err
	}
	if q != "" {
		sb.WriteByte('?')
		sb.WriteString(q)
	}
	return sb.String(), nil
}

func encodeQuery(q any) (string, error) {
	switch q := q.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimPrefix(q, "?"), nil
	case url.Values:
		return q.Encode(), nil
	case map[string]string:
		values := make(url.Values, len(q))
		for k, v := range q {
			values.Set(k, v)
		}
		return values.Encode(), nil
	case map[string]any:
		values := make(url.Values, len(q))
		for k, v := range q {
			switch v := v.(type) {
			case nil:
			case []string:
				values[k] = v
			default:
				values.Set(k, fmtQueryValue(v))
			}
		}
		return values.Encode(), nil
	}
	v := reflect.ValueOf(q)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", errors.Newf("c8: unsupported query type %T", q)
	}
	values, err := query.Values(q)
	if err != nil {
		return "", errors.Wrap(err, "c8: encoding query")
	}
	return values.Encode(), nil
}

func fmtQueryValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	// Numbers and everything else print the way JSON would spell them.
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.Trim(string(data), `"`)
}

// encodeBody serializes a request body once so it can be replayed on
// retries. The returned content type is empty when none applies.
func encodeBody(req *Request) ([]byte, string, error) {
	if req.Body == nil {
		return nil, "", nil
	}
	if req.IsBinary {
		switch body := req.Body.(type) {
		case []byte:
			return body, "", nil
		case string:
			return []byte(body), "", nil
		case io.Reader:
			data, err := io.ReadAll(body)
			if err != nil {
				return nil, "", errors.Wrap(err, "c8: reading request body")
			}
			return data, "", nil
		}
	}
	switch body := req.Body.(type) {
	case json.RawMessage:
		return body, "application/json", nil
	case string:
		return []byte(body), "text/plain", nil
	case []byte:
		return body, "application/octet-stream", nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "c8: encoding request body")
	}
	return data, "application/json", nil
}
