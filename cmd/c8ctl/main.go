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

// Command c8ctl issues requests against a C8 fabric from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	urls       []string
	fabric     string
	tenant     string
	apiKey     string
	token      string
	strategy   string
	verbosity  int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:          "c8ctl",
		Short:        "talk to a C8 fabric",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML connection config")
	pf.StringSliceVar(&flags.urls, "url", nil, "base URL of a host (repeatable)")
	pf.StringVar(&flags.fabric, "fabric", "", "fabric name")
	pf.StringVar(&flags.tenant, "tenant", "", "tenant name")
	pf.StringVar(&flags.apiKey, "api-key", os.Getenv("C8_API_KEY"), "API key")
	pf.StringVar(&flags.token, "token", os.Getenv("C8_TOKEN"), "JWT bearer token")
	pf.StringVar(&flags.strategy, "strategy", "", "load balancing strategy (NONE, ROUND_ROBIN, ONE_RANDOM)")
	pf.IntVarP(&flags.verbosity, "verbose", "v", 0, "log verbosity")

	root.AddCommand(
		newRequestCmd(&flags),
		newCollectionsCmd(&flags),
		newDocumentCmd(&flags),
		newFabricsCmd(&flags),
		newPublishCmd(&flags),
	)
	return root
}

func (f *globalFlags) logger(w io.Writer) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: f.verbosity})
}
