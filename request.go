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

import "net/http"

// Request describes one logical request. The zero value is a GET of the
// fabric root.
type Request struct {
	Method string
	// BasePath, if set, is placed between the fabric prefix and Path.
	BasePath string
	Path     string
	// Absolute suppresses the /_fabric/<name> prefix for this request only.
	Absolute bool
	// Query is nil, a pre-encoded string, url.Values, map[string]string,
	// map[string]any or a struct with `url` tags.
	Query   any
	Headers http.Header
	// Body is JSON encoded unless IsBinary is set, in which case a []byte,
	// string or io.Reader is sent as is.
	Body     any
	IsBinary bool
	// ExpectBinary keeps the raw body even when the server claims a JSON
	// content type that does not parse.
	ExpectBinary bool
	// Host pins the request to a host index when PinHost is set. Pinned
	// requests are never retried nor failed over.
	Host    int
	PinHost bool
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}
