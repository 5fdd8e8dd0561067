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
	"fmt"
	"net/http"

	"github.com/Macrometacorp/jsC8-sub000/picker"
	"github.com/cockroachdb/errors"
)

//nolint:gochecknoglobals
var (
	// ErrAbsoluteMode is returned when the fabric or tenant of a connection
	// in absolute URL mode is changed.
	ErrAbsoluteMode = errors.New("c8: cannot change fabric or tenant of an absolute-mode connection")
	// ErrClosed settles every call issued on, or still queued by, a closed
	// connection.
	ErrClosed = errors.New("c8: connection closed")
	// ErrTooManyRedirects is wrapped by the error of a call that kept getting
	// redirected to another leader.
	ErrTooManyRedirects = errors.New("c8: too many leader redirects")
	// ErrNoURLs is returned by NewConnection when no base URL is configured.
	ErrNoURLs = errors.New("c8: no URLs configured")
	// ErrInvalidStrategy is returned for an unknown load-balancing strategy.
	ErrInvalidStrategy = picker.ErrInvalidStrategy
)

// Error numbers reported by the server that mean "not found".
const (
	ErrorNumDocumentNotFound   = 1202
	ErrorNumCollectionNotFound = 1203
	ErrorNumDatabaseNotFound   = 1228
)

// C8Error is an error reported by the server in its structured error
// envelope: a JSON body with error, code, errorMessage and errorNum fields.
// It may be returned for any HTTP status, including 200.
type C8Error struct {
	Code         int
	ErrorNum     int
	ErrorMessage string
	// Response is the response that carried the envelope.
	Response *Response
}

func (e *C8Error) Error() string {
	return fmt.Sprintf("c8: %s (code %d, errorNum %d)", e.ErrorMessage, e.Code, e.ErrorNum)
}

// HTTPError is returned for a response with a status of 400 or above
// that does not carry an error envelope.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Response   *Response
}

func (e *HTTPError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = "unknown status"
	}
	return fmt.Sprintf("c8: HTTP %d %s", e.StatusCode, text)
}

// IsC8Error reports whether err wraps a *C8Error.
func IsC8Error(err error) bool {
	var c8Err *C8Error
	return errors.As(err, &c8Err)
}

// IsNotFound reports whether err means the requested document, collection
// or fabric does not exist.
func IsNotFound(err error) bool {
	var c8Err *C8Error
	if errors.As(err, &c8Err) {
		switch c8Err.ErrorNum {
		case ErrorNumDocumentNotFound, ErrorNumCollectionNotFound, ErrorNumDatabaseNotFound:
			return true
		}
		return c8Err.Code == http.StatusNotFound
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound
	}
	return false
}
