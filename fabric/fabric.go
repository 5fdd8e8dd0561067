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

// Package fabric wraps the fabric (database) endpoints. Fabric management
// requests always go to the _system fabric, whatever fabric the connection
// is scoped to.
package fabric

import (
	"context"
	"net/http"
	"net/url"

	c8 "github.com/Macrometacorp/jsC8-sub000"
	"github.com/Macrometacorp/jsC8-sub000/collection"
)

// Conn is the part of *c8.Connection a Fabric needs.
type Conn interface {
	c8.Requester
	FabricName() string
}

// Fabric is the fabric a connection is currently scoped to.
type Fabric struct {
	conn Conn
}

// New returns the fabric of conn.
func New(conn Conn) *Fabric {
	return &Fabric{conn: conn}
}

// Name returns the fabric name of the underlying connection.
func (f *Fabric) Name() string {
	return f.conn.FabricName()
}

// Info describes a fabric.
type Info struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsSystem bool   `json:"isSystem"`
}

// CreateOptions are the optional properties of a new fabric.
type CreateOptions struct {
	// Regions lists the data centers the fabric spans.
	Regions []string `json:"dcList,omitempty"`
	// SpotRegion is the data center allowed to run spot operations.
	SpotRegion string `json:"spotDc,omitempty"`
}

// User is granted access to a new fabric.
type User struct {
	Username string `json:"username"`
	Active   *bool  `json:"active,omitempty"`
}

type result[T any] struct {
	Result T `json:"result"`
}

func decodeResult[T any](resp *c8.Response) (T, error) {
	r, err := c8.Decode[result[T]](resp)
	return r.Result, err
}

func systemPath(suffix string) string {
	return "/_fabric/" + url.PathEscape(c8.DefaultFabricName) + "/_api/database" + suffix
}

// Info returns the description of the current fabric.
func (f *Fabric) Info(ctx context.Context) (Info, error) {
	return c8.Do(ctx, f.conn, &c8.Request{Path: "/_api/database/current"}, decodeResult[Info])
}

// Exists reports whether the current fabric exists.
func (f *Fabric) Exists(ctx context.Context) (bool, error) {
	_, err := f.Info(ctx)
	if c8.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// List returns the names of all fabrics.
func (f *Fabric) List(ctx context.Context) ([]string, error) {
	return c8.Do(ctx, f.conn, &c8.Request{Path: systemPath(""), Absolute: true}, decodeResult[[]string])
}

// ListUser returns the names of the fabrics the current user can access.
func (f *Fabric) ListUser(ctx context.Context) ([]string, error) {
	return c8.Do(ctx, f.conn, &c8.Request{Path: systemPath("/user"), Absolute: true}, decodeResult[[]string])
}

// Create creates a fabric.
func (f *Fabric) Create(ctx context.Context, name string, users []User, opts *CreateOptions) error {
	body := struct {
		Name    string         `json:"name"`
		Users   []User         `json:"users,omitempty"`
		Options *CreateOptions `json:"options,omitempty"`
	}{Name: name, Users: users, Options: opts}
	_, err := f.conn.Do(ctx, &c8.Request{
		Method:   http.MethodPost,
		Path:     systemPath(""),
		Absolute: true,
		Body:     body,
	})
	return err
}

// Drop deletes a fabric.
func (f *Fabric) Drop(ctx context.Context, name string) error {
	_, err := f.conn.Do(ctx, &c8.Request{
		Method:   http.MethodDelete,
		Path:     systemPath("/" + url.PathEscape(name)),
		Absolute: true,
	})
	return err
}

// Collections lists the collections of the current fabric. System
// collections are left out unless includeSystem is set.
func (f *Fabric) Collections(ctx context.Context, includeSystem bool) ([]collection.Info, error) {
	infos, err := c8.Do(ctx, f.conn, &c8.Request{
		Path:  "/_api/collection",
		Query: map[string]any{"excludeSystem": !includeSystem},
	}, decodeResult[[]collection.Info])
	if err != nil || includeSystem {
		return infos, err
	}
	filtered := infos[:0]
	for _, info := range infos {
		if !info.IsSystem {
			filtered = append(filtered, info)
		}
	}
	return filtered, nil
}

// Collection looks up a collection of the current fabric.
func (f *Fabric) Collection(ctx context.Context, name string) (collection.Collection, error) {
	return collection.Get(ctx, f.conn, name)
}
