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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lifecycledriver/lifecycledriver/config"
	"github.com/lifecycledriver/lifecycledriver/publisher"
	"github.com/lifecycledriver/lifecycledriver/workerpool"
)

// newWorkerCommand builds the hidden "worker" subcommand: the body of
// one re-exec'd child Pool.spawn launches. Never invoked by an
// operator directly; its bootstrap arrives over stdin, written by the
// parent's Pool.spawn immediately after starting it.
func newWorkerCommand() *cobra.Command {
	var index int
	var configPath string
	cmd := &cobra.Command{
		Use:    "worker",
		Hidden: true,
		Short:  "Internal: run as one re-exec'd pool worker",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWorker(index, configPath)
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "this worker's index within the pool")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	return cmd
}

func runWorker(index int, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.Logging.Level).New("worker", index)

	exec, err := buildExecutor(cfg, logger.New("component", "executor"))
	if err != nil {
		return fmt.Errorf("building executor: %w", err)
	}

	// No audit.Guard here: bbolt holds an exclusive lock on its file,
	// so only a single process may have the audit store open at once.
	// The dedupe-warning/audit trail is an in-process convenience in
	// this architecture, same as the response cache and debug feed.
	queues := workerpool.MangosQueueOpeners(cfg.Queue.MangosURL)
	publishers := workerpool.PublisherOpeners{
		workerpool.PublisherKindMangos: publisher.MangosOpener(cfg.Publisher.MangosURL),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
		<-sig
		cancel()
	}()

	return workerpool.RunWorker(ctx, os.Stdin, queues, publishers, exec, nil, logger)
}
