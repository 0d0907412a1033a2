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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/lifecycledriver/lifecycledriver/driverfiles"
)

func newDiskUsageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disk-usage <base-dir>",
		Short: "Report the total size of all request working directories under base-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDiskUsage(args[0])
		},
	}
	return cmd
}

func runDiskUsage(baseDir string) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("disk-usage: reading %s: %w", baseDir, err)
	}

	var total int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		size, err := driverfiles.DirSize(path)
		if err != nil {
			return fmt.Errorf("disk-usage: measuring %s: %w", path, err)
		}
		total += size
		fmt.Printf("%-40s %s\n", entry.Name(), bytefmt.ByteSize(uint64(size)))
	}

	fmt.Printf("%-40s %s\n", "TOTAL", bytefmt.ByteSize(uint64(total)))
	return nil
}
