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

// Package collection wraps the collection and document endpoints of a
// fabric. A collection's type is resolved once, when it is looked up or
// created, into either a *DocumentCollection or an *EdgeCollection. Only
// edge collections offer edge traversal.
package collection

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	c8 "github.com/Macrometacorp/jsC8-sub000"
	"github.com/cockroachdb/errors"
)

// ErrInvalidHandle is returned, before any request is made, for document
// selectors that are empty or name another collection.
var ErrInvalidHandle = errors.New("collection: invalid document handle")

// Requester sends requests on behalf of a collection. *c8.Connection
// implements it.
type Requester = c8.Requester

// Type is the collection type as reported by the server.
type Type int

const (
	DocumentType Type = 2
	EdgeType     Type = 3
)

func (t Type) String() string {
	switch t {
	case DocumentType:
		return "document"
	case EdgeType:
		return "edge"
	default:
		return "unknown"
	}
}

// Collection is implemented by *DocumentCollection and *EdgeCollection.
type Collection interface {
	Name() string
	Type() Type
	// Info returns the server's description of the collection.
	Info(ctx context.Context) (Info, error)
	// Exists reports whether the collection exists.
	Exists(ctx context.Context) (bool, error)
	// Create creates the collection with the type of the receiver.
	Create(ctx context.Context, opts *CreateOptions) (Info, error)
	Drop(ctx context.Context) error
	Truncate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)

	// Document decodes the selected document into out. The selector is a
	// key or a "collection/key" handle.
	Document(ctx context.Context, selector string, out any) error
	DocumentExists(ctx context.Context, selector string) (bool, error)
	Save(ctx context.Context, doc any, opts *WriteOptions) (DocumentMeta, error)
	Replace(ctx context.Context, selector string, doc any, opts *WriteOptions) (DocumentMeta, error)
	Update(ctx context.Context, selector string, patch any, opts *WriteOptions) (DocumentMeta, error)
	Remove(ctx context.Context, selector string, opts *WriteOptions) (DocumentMeta, error)

	sealed()
}

// New returns the collection variant for typ without contacting the server.
func New(r Requester, name string, typ Type) (Collection, error) {
	b := base{r: r, name: name}
	switch typ {
	case DocumentType:
		return &DocumentCollection{base: b}, nil
	case EdgeType:
		return &EdgeCollection{base: b}, nil
	default:
		return nil, errors.Newf("collection: unknown type %d for %q", int(typ), name)
	}
}

// Get looks up the type of the named collection and returns its variant.
func Get(ctx context.Context, r Requester, name string) (Collection, error) {
	info, err := base{r: r, name: name}.Info(ctx)
	if err != nil {
		return nil, err
	}
	return New(r, name, info.Type)
}

// Info describes a collection.
type Info struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   int    `json:"status"`
	Type     Type   `json:"type"`
	IsSystem bool   `json:"isSystem"`
	// Stream reports whether the collection has a change stream.
	Stream bool `json:"hasStream"`
}

// CreateOptions are the optional properties of a new collection.
type CreateOptions struct {
	WaitForSync bool `json:"waitForSync,omitempty"`
	IsSystem    bool `json:"isSystem,omitempty"`
	// Stream enables the collection's change stream.
	Stream bool `json:"stream,omitempty"`
	// IsLocal keeps the collection in the local region only.
	IsLocal bool `json:"isLocal,omitempty"`
}

// WriteOptions tune document writes. Fields map onto query parameters,
// except IfMatch, which is sent as the If-Match header.
type WriteOptions struct {
	WaitForSync  bool   `url:"waitForSync,omitempty"`
	ReturnNew    bool   `url:"returnNew,omitempty"`
	ReturnOld    bool   `url:"returnOld,omitempty"`
	Silent       bool   `url:"silent,omitempty"`
	Overwrite    bool   `url:"overwrite,omitempty"`
	KeepNull     *bool  `url:"keepNull,omitempty"`
	MergeObjects *bool  `url:"mergeObjects,omitempty"`
	IfMatch      string `url:"-"`
}

func (o *WriteOptions) headers() http.Header {
	if o == nil || o.IfMatch == "" {
		return nil
	}
	return http.Header{"If-Match": {o.IfMatch}}
}

type base struct {
	r    Requester
	name string
}

func (b base) Name() string {
	return b.name
}

func (base) sealed() {}

func (b base) collectionPath(suffix string) string {
	return "/_api/collection/" + url.PathEscape(b.name) + suffix
}

func (b base) Info(ctx context.Context) (Info, error) {
	return c8.Do(ctx, b.r, &c8.Request{Path: b.collectionPath("")}, c8.Decode[Info])
}

func (b base) Exists(ctx context.Context) (bool, error) {
	_, err := b.Info(ctx)
	if c8.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (b base) create(ctx context.Context, typ Type, opts *CreateOptions) (Info, error) {
	body := struct {
		Name string `json:"name"`
		Type Type   `json:"type"`
		*CreateOptions
	}{Name: b.name, Type: typ, CreateOptions: opts}
	return c8.Do(ctx, b.r, &c8.Request{
		Method: http.MethodPost,
		Path:   "/_api/collection",
		Body:   body,
	}, c8.Decode[Info])
}

func (b base) Drop(ctx context.Context) error {
	_, err := b.r.Do(ctx, &c8.Request{Method: http.MethodDelete, Path: b.collectionPath("")})
	return err
}

func (b base) Truncate(ctx context.Context) error {
	_, err := b.r.Do(ctx, &c8.Request{Method: http.MethodPut, Path: b.collectionPath("/truncate")})
	return err
}

func (b base) Count(ctx context.Context) (int64, error) {
	count, err := c8.Do(ctx, b.r, &c8.Request{Path: b.collectionPath("/count")}, c8.Decode[struct {
		Count int64 `json:"count"`
	}])
	return count.Count, err
}

// documentPath validates a selector and returns the document's path.
func (b base) documentPath(selector string) (string, error) {
	key := selector
	if coll, rest, ok := strings.Cut(selector, "/"); ok {
		if coll != b.name {
			return "", errors.Wrapf(ErrInvalidHandle, "%q does not belong to collection %q", selector, b.name)
		}
		key = rest
	}
	if key == "" || strings.Contains(key, "/") {
		return "", errors.Wrapf(ErrInvalidHandle, "%q", selector)
	}
	return "/_api/document/" + url.PathEscape(b.name) + "/" + url.PathEscape(key), nil
}

func (b base) Document(ctx context.Context, selector string, out any) error {
	path, err := b.documentPath(selector)
	if err != nil {
		return err
	}
	resp, err := b.r.Do(ctx, &c8.Request{Path: path})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (b base) DocumentExists(ctx context.Context, selector string) (bool, error) {
	path, err := b.documentPath(selector)
	if err != nil {
		return false, err
	}
	_, err = b.r.Do(ctx, &c8.Request{Method: http.MethodHead, Path: path})
	if c8.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (b base) Save(ctx context.Context, doc any, opts *WriteOptions) (DocumentMeta, error) {
	return b.write(ctx, http.MethodPost, "/_api/document/"+url.PathEscape(b.name), doc, opts)
}

func (b base) Replace(ctx context.Context, selector string, doc any, opts *WriteOptions) (DocumentMeta, error) {
	path, err := b.documentPath(selector)
	if err != nil {
		return DocumentMeta{}, err
	}
	return b.write(ctx, http.MethodPut, path, doc, opts)
}

func (b base) Update(ctx context.Context, selector string, patch any, opts *WriteOptions) (DocumentMeta, error) {
	path, err := b.documentPath(selector)
	if err != nil {
		return DocumentMeta{}, err
	}
	return b.write(ctx, http.MethodPatch, path, patch, opts)
}

func (b base) Remove(ctx context.Context, selector string, opts *WriteOptions) (DocumentMeta, error) {
	path, err := b.documentPath(selector)
	if err != nil {
		return DocumentMeta{}, err
	}
	return b.write(ctx, http.MethodDelete, path, nil, opts)
}

func (b base) write(ctx context.Context, method, path string, body any, opts *WriteOptions) (DocumentMeta, error) {
	return c8.Do(ctx, b.r, &c8.Request{
		Method:  method,
		Path:    path,
		Query:   opts,
		Headers: opts.headers(),
		Body:    body,
	}, c8.Decode[DocumentMeta])
}
