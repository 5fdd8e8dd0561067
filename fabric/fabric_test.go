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

package fabric_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	c8 "github.com/Macrometacorp/jsC8-sub000"
	"github.com/Macrometacorp/jsC8-sub000/collection"
	"github.com/Macrometacorp/jsC8-sub000/fabric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeFabrics serves the fabric endpoints over an in-memory fabric list.
type fakeFabrics struct {
	mu      sync.Mutex
	fabrics []string
}

func (f *fakeFabrics) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_fabric/{fabric}/_api/database/current", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := r.PathValue("fabric")
		for _, known := range f.fabrics {
			if known == name {
				writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{
					"id": "1", "name": name, "path": "/data/" + name, "isSystem": name == c8.DefaultFabricName,
				}})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": true, "code": 404, "errorMessage": "database not found", "errorNum": c8.ErrorNumDatabaseNotFound,
		})
	})
	mux.HandleFunc("GET /_fabric/_system/_api/database", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"result": f.fabrics})
	})
	mux.HandleFunc("GET /_fabric/_system/_api/database/user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"result": []string{c8.DefaultFabricName}})
	})
	mux.HandleFunc("POST /_fabric/_system/_api/database", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name    string `json:"name"`
			Options struct {
				DCList []string `json:"dcList"`
			} `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Options.DCList) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": true, "code": 400, "errorMessage": "dcList required", "errorNum": 10,
			})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.fabrics = append(f.fabrics, body.Name)
		writeJSON(w, http.StatusCreated, map[string]any{"result": true})
	})
	mux.HandleFunc("DELETE /_fabric/_system/_api/database/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		kept := f.fabrics[:0]
		for _, name := range f.fabrics {
			if name != r.PathValue("name") {
				kept = append(kept, name)
			}
		}
		f.fabrics = kept
		writeJSON(w, http.StatusOK, map[string]any{"result": true})
	})
	// excludeSystem is ignored here, the client filters as well.
	mux.HandleFunc("GET /_fabric/{fabric}/_api/collection", func(w http.ResponseWriter, _ *http.Request) {
		infos := []map[string]any{
			{"id": "1", "name": "_users", "type": 2, "isSystem": true},
			{"id": "2", "name": "cities", "type": 2},
			{"id": "3", "name": "roads", "type": 3},
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": infos})
	})
	mux.HandleFunc("GET /_fabric/{fabric}/_api/collection/{name}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"name": r.PathValue("name"), "type": 3})
	})
	return mux
}

func setup(t *testing.T) (*c8.Connection, *fakeFabrics) {
	t.Helper()
	fake := &fakeFabrics{fabrics: []string{c8.DefaultFabricName}}
	svr := httptest.NewServer(fake.handler())
	t.Cleanup(svr.Close)
	conn, err := c8.NewConnection(c8.Config{URLs: []string{svr.URL}})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})
	return conn, fake
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFabricLifecycle(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	conn, _ := setup(t)
	fab := fabric.New(conn)

	info, err := fab.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, fabric.Info{ID: "1", Name: "_system", Path: "/data/_system", IsSystem: true}, info)

	err = fab.Create(ctx, "geo", nil, nil)
	var c8Err *c8.C8Error
	require.ErrorAs(t, err, &c8Err)
	assert.Equal(t, 400, c8Err.Code)

	require.NoError(t, fab.Create(ctx, "geo", []fabric.User{{Username: "root"}},
		&fabric.CreateOptions{Regions: []string{"eu-west"}}))
	names, err := fab.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"_system", "geo"}, names)

	// Management requests stay on _system after switching fabrics.
	require.NoError(t, conn.SetFabricName("geo"))
	assert.Equal(t, "geo", fab.Name())
	exists, err := fab.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, fab.Drop(ctx, "geo"))
	exists, err = fab.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	names, err = fab.ListUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"_system"}, names)
}

func TestCollections(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	conn, _ := setup(t)
	fab := fabric.New(conn)

	infos, err := fab.Collections(ctx, false)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "cities", infos[0].Name)
	assert.Equal(t, collection.EdgeType, infos[1].Type)

	infos, err = fab.Collections(ctx, true)
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	roads, err := fab.Collection(ctx, "roads")
	require.NoError(t, err)
	assert.IsType(t, &collection.EdgeCollection{}, roads)
}
