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

package collection

import (
	"context"
	"encoding/json"
	"net/url"

	c8 "github.com/Macrometacorp/jsC8-sub000"
)

// DocumentMeta identifies a document revision returned by a write.
type DocumentMeta struct {
	ID     string `json:"_id"`
	Key    string `json:"_key"`
	Rev    string `json:"_rev"`
	OldRev string `json:"_oldRev,omitempty"`
	// New and Old are only set when requested with WriteOptions.
	New json.RawMessage `json:"new,omitempty"`
	Old json.RawMessage `json:"old,omitempty"`
}

// DocumentCollection is a collection of plain documents.
type DocumentCollection struct {
	base
}

var _ Collection = (*DocumentCollection)(nil)

func (*DocumentCollection) Type() Type {
	return DocumentType
}

func (c *DocumentCollection) Create(ctx context.Context, opts *CreateOptions) (Info, error) {
	return c.create(ctx, DocumentType, opts)
}

// EdgeCollection is a collection of edges between documents.
type EdgeCollection struct {
	base
}

var _ Collection = (*EdgeCollection)(nil)

func (*EdgeCollection) Type() Type {
	return EdgeType
}

func (c *EdgeCollection) Create(ctx context.Context, opts *CreateOptions) (Info, error) {
	return c.create(ctx, EdgeType, opts)
}

// Edge is an edge document. Raw holds the whole document.
type Edge struct {
	ID   string          `json:"_id"`
	Key  string          `json:"_key"`
	Rev  string          `json:"_rev"`
	From string          `json:"_from"`
	To   string          `json:"_to"`
	Raw  json.RawMessage `json:"-"`
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	type plain Edge
	if err := json.Unmarshal(data, (*plain)(e)); err != nil {
		return err
	}
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// SaveEdge saves data as an edge from one document handle to another.
// Any _from or _to in data is overridden.
func (c *EdgeCollection) SaveEdge(ctx context.Context, from, to string, data map[string]any, opts *WriteOptions) (DocumentMeta, error) {
	doc := make(map[string]any, len(data)+2)
	for k, v := range data {
		doc[k] = v
	}
	doc["_from"], doc["_to"] = from, to
	return c.Save(ctx, doc, opts)
}

// Edges returns the edges starting or ending at the given vertex handle.
func (c *EdgeCollection) Edges(ctx context.Context, vertex string) ([]Edge, error) {
	return c.edges(ctx, vertex, "")
}

// InEdges returns the edges ending at the given vertex handle.
func (c *EdgeCollection) InEdges(ctx context.Context, vertex string) ([]Edge, error) {
	return c.edges(ctx, vertex, "in")
}

// OutEdges returns the edges starting at the given vertex handle.
func (c *EdgeCollection) OutEdges(ctx context.Context, vertex string) ([]Edge, error) {
	return c.edges(ctx, vertex, "out")
}

func (c *EdgeCollection) edges(ctx context.Context, vertex, direction string) ([]Edge, error) {
	query := url.Values{"vertex": {vertex}}
	if direction != "" {
		query.Set("direction", direction)
	}
	result, err := c8.Do(ctx, c.r, &c8.Request{
		Path:  "/_api/edges/" + url.PathEscape(c.name),
		Query: query,
	}, c8.Decode[struct {
		Edges []Edge `json:"edges"`
	}])
	return result.Edges, err
}
