// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of wr.
//
//  wr is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  wr is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with wr. If not, see <http://www.gnu.org/licenses/>.

// Command lifecycledriver is the daemon entrypoint: "lifecycledriver serve"
// (run with no subcommand, the binary prints its help) starts the admin surface and
// the worker pool and blocks until signalled; "lifecycledriver worker" is
// a hidden subcommand only ever invoked by the pool's own re-exec of
// itself, never by an operator. This mirrors app.py/__main__.py's
// init_app entrypoint, generalised to cover both roles a single binary
// now plays.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "lifecycledriver",
		Short: "Resource lifecycle driver: runs Install/Configure/Start/Stop/Find playbooks on request",
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newWorkerCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
