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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lifecycledriver/lifecycledriver/admin"
)

func newStatusCommand() *cobra.Command {
	var addr string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running driver's admin surface and print pool/worker status",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStatus(addr, timeout)
		},
	}
	cmd.Flags().StringVar(&addr, "admin-addr", "127.0.0.1:8622", "admin.listenAddress of the running driver")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func runStatus(addr string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", addr))
	if err != nil {
		return fmt.Errorf("querying %s: %w", addr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("querying %s: unexpected status %s", addr, resp.Status)
	}

	var status admin.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decoding status from %s: %w", addr, err)
	}

	printStatus(status)
	return nil
}

// printStatus renders status as two tables: pool/worker snapshot and
// recent outcomes. Colour is only used when stdout is a real terminal,
// so piping the output elsewhere (a log, `less`) never embeds escape
// codes.
func printStatus(status admin.Status) {
	colorize := isatty.IsTerminal(os.Stdout.Fd())
	activeLabel := activeBadge(status.Active, colorize)
	fmt.Printf("driver active: %s  pool size: %d\n\n", activeLabel, status.PoolSize)

	workerTable := tablewriter.NewWriter(os.Stdout)
	workerTable.SetHeader([]string{"Index", "Pid", "Child processes"})
	for _, w := range status.Workers {
		workerTable.Append([]string{
			strconv.Itoa(w.Index),
			strconv.Itoa(w.Pid),
			strconv.Itoa(w.ChildProcesses),
		})
	}
	workerTable.Render()

	if len(status.RecentOutcomes) == 0 {
		return
	}

	fmt.Println()
	idWidth := requestIDColumnWidth()
	outcomeTable := tablewriter.NewWriter(os.Stdout)
	outcomeTable.SetHeader([]string{"Request ID", "Status"})
	for _, o := range status.RecentOutcomes {
		label := o.Status
		if colorize {
			label = outcomeColor(o.Status).Sprint(o.Status)
		}
		outcomeTable.Append([]string{truncateID(o.RequestID, idWidth), label})
	}
	outcomeTable.Render()
}

// requestIDColumnWidth narrows the request-ID column on a narrow
// terminal so the status table never wraps; a fixed default is used
// when stdout isn't a terminal (piped output, no width to query).
func requestIDColumnWidth() int {
	const (
		defaultWidth = 36
		minWidth     = 8
	)
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	// "Status" plus table borders/padding take up roughly 20 columns.
	available := width - 20
	if available < minWidth {
		return minWidth
	}
	if available > defaultWidth {
		return defaultWidth
	}
	return available
}

func truncateID(id string, width int) string {
	if len(id) <= width {
		return id
	}
	if width <= 3 {
		return id[:width]
	}
	return id[:width-3] + "..."
}

func activeBadge(active bool, colorize bool) string {
	if !colorize {
		if active {
			return "yes"
		}
		return "no"
	}
	if active {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}

func outcomeColor(status string) *color.Color {
	switch status {
	case "COMPLETE":
		return color.New(color.FgGreen)
	case "FAILED":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
