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

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	c8 "github.com/Macrometacorp/jsC8-sub000"
	"github.com/Macrometacorp/jsC8-sub000/collection"
	"github.com/Macrometacorp/jsC8-sub000/fabric"
	"github.com/Macrometacorp/jsC8-sub000/picker"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// connect builds a connection from the config file, if any, overridden by
// the command line.
func (f *globalFlags) connect(cmd *cobra.Command) (*c8.Connection, error) {
	var cfg c8.Config
	if f.configPath != "" {
		var err error
		if cfg, err = c8.LoadConfig(f.configPath); err != nil {
			return nil, err
		}
	}
	if len(f.urls) > 0 {
		cfg.URLs = f.urls
	}
	if f.fabric != "" {
		cfg.FabricName = f.fabric
	}
	if f.tenant != "" {
		cfg.TenantName = f.tenant
	}
	if f.apiKey != "" {
		cfg.APIKey = f.apiKey
	}
	if f.token != "" {
		cfg.Token = f.token
	}
	if f.strategy != "" {
		strategy, err := picker.ParseStrategy(f.strategy)
		if err != nil {
			return nil, err
		}
		cfg.LoadBalancingStrategy = strategy
	}
	if len(cfg.URLs) == 0 {
		return nil, errors.New("no URL given; use --url or --config")
	}
	return c8.NewConnection(cfg, c8.WithLogger(f.logger(cmd.ErrOrStderr())))
}

func newRequestCmd(flags *globalFlags) *cobra.Command {
	var (
		data     string
		absolute bool
	)
	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "send a raw request and print the response body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			req := &c8.Request{
				Method:   strings.ToUpper(args[0]),
				Path:     args[1],
				Absolute: absolute,
			}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data is not valid JSON")
				}
				req.Body = json.RawMessage(data)
			}
			resp, err := conn.Do(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(resp.Body))
			return err
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().BoolVar(&absolute, "absolute", false, "do not prefix PATH with the fabric")
	return cmd
}

func newCollectionsCmd(flags *globalFlags) *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "list the collections of the fabric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := flags.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			infos, err := fabric.New(conn).Collections(cmd.Context(), system)
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.Name, info.Type)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "include system collections")
	return cmd
}

func newFabricsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fabrics",
		Short: "list the fabrics the current user can access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := flags.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			names, err := fabric.New(conn).ListUser(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newDocumentCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "document COLLECTION KEY",
		Short: "print one document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			coll, err := collection.Get(cmd.Context(), conn, args[0])
			if err != nil {
				return err
			}
			var doc json.RawMessage
			if err := coll.Document(cmd.Context(), args[1], &doc); err != nil {
				if c8.IsNotFound(err) {
					return errors.Newf("document %s/%s not found", args[0], args[1])
				}
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		},
	}
}
