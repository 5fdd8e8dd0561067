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
	"fmt"

	"github.com/Macrometacorp/jsC8-sub000/stream"
	"github.com/spf13/cobra"
)

func newPublishCmd(flags *globalFlags) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "publish TOPIC MESSAGE...",
		Short: "publish messages to a stream",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			target := stream.TargetFor(conn, args[0], local)
			producer, err := stream.NewProducer(cmd.Context(), target,
				stream.WithLogger(flags.logger(cmd.ErrOrStderr())))
			if err != nil {
				return err
			}
			defer producer.Close()
			for _, msg := range args[1:] {
				id, err := producer.Send(cmd.Context(), []byte(msg), nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "publish to a region-local stream")
	return cmd
}
