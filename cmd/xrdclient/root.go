// Copyright 2026 The xrootd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/spf13/cobra"
)

// rootCmd builds the xrdclient command tree. It is a plain cobra tree
// rather than a hand-rolled flag registry, since this CLI has exactly
// one real subcommand; cobra's own flag binding covers it without the
// extra indirection.
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xrdclient",
		Short: "Connects to an XRootD-like endpoint and prints its handshake progress",
		Long: `xrdclient is a small demonstration client for the xrdcl socket
handler: it dials one endpoint, drives the connect/handshake/TLS state
machine to PhaseReady (or a fault), and prints each phase transition as
it happens.`,
	}
	root.AddCommand(connectCmd())
	return root
}
