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

package collection_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	c8 "github.com/Macrometacorp/jsC8-sub000"
	"github.com/Macrometacorp/jsC8-sub000/collection"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "/_fabric/_system"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, errorNum int) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": true, "code": 404, "errorMessage": "not found", "errorNum": errorNum,
	})
}

func newServer(t *testing.T) *c8.Connection {
	t.Helper()
	types := map[string]collection.Type{"users": collection.DocumentType, "knows": collection.EdgeType}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+prefix+"/_api/collection/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		typ, ok := types[name]
		if !ok {
			notFound(w, c8.ErrorNumCollectionNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "42", "name": name, "type": typ, "status": 3})
	})
	mux.HandleFunc("POST "+prefix+"/_api/collection", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "43", "name": body["name"], "type": body["type"], "hasStream": body["stream"] == true,
		})
	})
	mux.HandleFunc("GET "+prefix+"/_api/collection/users/count", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 2})
	})
	mux.HandleFunc("PUT "+prefix+"/_api/collection/users/truncate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"name": "users"})
	})
	mux.HandleFunc("DELETE "+prefix+"/_api/collection/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "42"})
	})
	mux.HandleFunc(prefix+"/_api/document/users/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if key != "alice" {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			notFound(w, c8.ErrorNumDocumentNotFound)
			return
		}
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"_id": "users/alice", "_key": "alice", "_rev": "1", "name": "Alice"})
		case http.MethodPut, http.MethodPatch, http.MethodDelete:
			if r.Header.Get("If-Match") == "stale" {
				writeJSON(w, http.StatusPreconditionFailed, map[string]any{
					"error": true, "code": 412, "errorMessage": "conflict", "errorNum": 1200,
				})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]any{"_id": "users/alice", "_key": "alice", "_rev": "2", "_oldRev": "1"})
		}
	})
	mux.HandleFunc("POST "+prefix+"/_api/document/{name}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		resp := map[string]any{"_id": r.PathValue("name") + "/new", "_key": "new", "_rev": "1"}
		if r.URL.Query().Get("returnNew") == "true" {
			resp["new"] = json.RawMessage(body)
		}
		writeJSON(w, http.StatusCreated, resp)
	})
	mux.HandleFunc("GET "+prefix+"/_api/edges/knows", func(w http.ResponseWriter, r *http.Request) {
		edges := []map[string]any{
			{"_id": "knows/1", "_key": "1", "_rev": "1", "_from": "users/alice", "_to": "users/bob", "since": 2020},
			{"_id": "knows/2", "_key": "2", "_rev": "1", "_from": "users/carol", "_to": "users/alice"},
		}
		var selected []map[string]any
		vertex := r.URL.Query().Get("vertex")
		for _, edge := range edges {
			switch r.URL.Query().Get("direction") {
			case "out":
				if edge["_from"] != vertex {
					continue
				}
			case "in":
				if edge["_to"] != vertex {
					continue
				}
			}
			selected = append(selected, edge)
		}
		writeJSON(w, http.StatusOK, map[string]any{"edges": selected})
	})
	svr := httptest.NewServer(mux)
	t.Cleanup(svr.Close)

	conn, err := c8.NewConnection(c8.Config{URLs: []string{svr.URL}})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})
	return conn
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGetResolvesType(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	conn := newServer(t)

	users, err := collection.Get(ctx, conn, "users")
	require.NoError(t, err)
	assert.IsType(t, &collection.DocumentCollection{}, users)
	assert.Equal(t, collection.DocumentType, users.Type())
	assert.Equal(t, "users", users.Name())

	knows, err := collection.Get(ctx, conn, "knows")
	require.NoError(t, err)
	edges, ok := knows.(*collection.EdgeCollection)
	require.True(t, ok)
	assert.Equal(t, "edge", edges.Type().String())

	_, err = collection.Get(ctx, conn, "missing")
	require.True(t, c8.IsNotFound(err))

	_, err = collection.New(conn, "x", collection.Type(9))
	require.ErrorContains(t, err, "unknown type 9")
}

func TestCollectionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	conn := newServer(t)

	users, err := collection.New(conn, "users", collection.DocumentType)
	require.NoError(t, err)
	exists, err := users.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := collection.New(conn, "missing", collection.EdgeType)
	require.NoError(t, err)
	exists, err = missing.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	info, err := missing.Create(ctx, &collection.CreateOptions{Stream: true})
	require.NoError(t, err)
	assert.Equal(t, collection.Info{ID: "43", Name: "missing", Type: collection.EdgeType, Stream: true}, info)

	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.NoError(t, users.Truncate(ctx))
	require.NoError(t, users.Drop(ctx))
}

func TestDocuments(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	conn := newServer(t)
	users, err := collection.New(conn, "users", collection.DocumentType)
	require.NoError(t, err)

	var doc struct {
		Key  string `json:"_key"`
		Name string `json:"name"`
	}
	require.NoError(t, users.Document(ctx, "users/alice", &doc))
	assert.Equal(t, "alice", doc.Key)
	assert.Equal(t, "Alice", doc.Name)

	err = users.Document(ctx, "bob", &doc)
	var c8Err *c8.C8Error
	require.ErrorAs(t, err, &c8Err)
	assert.Equal(t, c8.ErrorNumDocumentNotFound, c8Err.ErrorNum)

	exists, err := users.DocumentExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = users.DocumentExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	meta, err := users.Save(ctx, map[string]string{"name": "Dave"}, &collection.WriteOptions{ReturnNew: true})
	require.NoError(t, err)
	assert.Equal(t, "users/new", meta.ID)
	assert.JSONEq(t, `{"name":"Dave"}`, string(meta.New))

	meta, err = users.Replace(ctx, "alice", map[string]string{"name": "Al"}, nil)
	require.NoError(t, err)
	assert.Equal(t, collection.DocumentMeta{ID: "users/alice", Key: "alice", Rev: "2", OldRev: "1"}, meta)

	_, err = users.Update(ctx, "alice", map[string]string{"name": "Al"}, &collection.WriteOptions{IfMatch: "stale"})
	require.ErrorAs(t, err, &c8Err)
	assert.Equal(t, 412, c8Err.Code)

	meta, err = users.Remove(ctx, "users/alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "2", meta.Rev)
}

func TestEdges(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	conn := newServer(t)
	knows, err := collection.Get(ctx, conn, "knows")
	require.NoError(t, err)
	edges := knows.(*collection.EdgeCollection) //nolint:forcetypeassert

	all, err := edges.Edges(ctx, "users/alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	out, err := edges.OutEdges(ctx, "users/alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "users/bob", out[0].To)
	var extra struct {
		Since int `json:"since"`
	}
	require.NoError(t, json.Unmarshal(out[0].Raw, &extra))
	assert.Equal(t, 2020, extra.Since)

	in, err := edges.InEdges(ctx, "users/alice")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "users/carol", in[0].From)
}

type countingRequester struct {
	calls atomic.Int32
}

func (r *countingRequester) Do(context.Context, *c8.Request) (*c8.Response, error) {
	r.calls.Add(1)
	return nil, errors.New("unexpected request")
}

func TestInvalidHandlesFailLocally(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	requester := &countingRequester{}
	users, err := collection.New(requester, "users", collection.DocumentType)
	require.NoError(t, err)

	for _, selector := range []string{"", "users/", "other/alice", "users/a/b"} {
		err := users.Document(ctx, selector, &struct{}{})
		require.ErrorIs(t, err, collection.ErrInvalidHandle, selector)
		_, err = users.Remove(ctx, selector, nil)
		require.ErrorIs(t, err, collection.ErrInvalidHandle, selector)
	}
	assert.Equal(t, int32(0), requester.calls.Load())
}

func TestSaveEdge(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	conn := newServer(t)
	coll, err := collection.New(conn, "knows", collection.EdgeType)
	require.NoError(t, err)
	edges := coll.(*collection.EdgeCollection) //nolint:forcetypeassert

	meta, err := edges.SaveEdge(ctx, "users/alice", "users/dave",
		map[string]any{"_from": "ignored", "since": 2024}, &collection.WriteOptions{ReturnNew: true})
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.Unmarshal(meta.New, &saved))
	assert.Equal(t, map[string]any{"_from": "users/alice", "_to": "users/dave", "since": 2024.0}, saved)
}
