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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	daemon "github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"

	"github.com/lifecycledriver/lifecycledriver/admin"
	"github.com/lifecycledriver/lifecycledriver/audit"
	"github.com/lifecycledriver/lifecycledriver/config"
	"github.com/lifecycledriver/lifecycledriver/executor"
	"github.com/lifecycledriver/lifecycledriver/publisher"
	"github.com/lifecycledriver/lifecycledriver/queue"
	"github.com/lifecycledriver/lifecycledriver/responsecache"
	"github.com/lifecycledriver/lifecycledriver/workerpool"
)

// localBootstrapKind is the bootstrap kind name in-process workers
// register under: it never leaves this binary (unlike
// workerpool.QueueKindMangos/PublisherKindMangos, which also name a
// re-exec'd worker's registry entry), so any name is fine.
const localBootstrapKind = "local"

func newServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lifecycle driver's worker pool and admin HTTP surface",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.Logging.Level)
	cache := responsecache.New(cfg.ResponseCacheConfig())

	var debugHub *publisher.WebsocketPublisher
	if cfg.Admin.ListenAddress != "" {
		debugHub = publisher.NewWebsocketPublisher()
		defer func() { _ = debugHub.Close() }()
	}

	var guard *audit.Guard
	if cfg.Audit.DBPath != "" {
		store, err := audit.Open(cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer func() { _ = store.Close() }()
		guard = audit.NewGuard(store, logger.New("component", "audit"))
	}

	exec, err := buildExecutor(cfg, logger.New("component", "executor"))
	if err != nil {
		return fmt.Errorf("building executor: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var pool *workerpool.Pool
	var memQueue *queue.MemoryQueue

	if cfg.Process.UseProcessPool {
		pool, err = startProcessPool(cfg, configPath, logger)
		if err != nil {
			return fmt.Errorf("starting worker pool: %w", err)
		}
	} else {
		memQueue, err = startInProcessWorkers(ctx, cfg, exec, guard, cache, debugHub, logger, &wg)
		if err != nil {
			return fmt.Errorf("starting in-process workers: %w", err)
		}
	}

	var adminServer *admin.Server
	var httpServer *http.Server
	if cfg.Admin.ListenAddress != "" {
		var statusFunc admin.PoolStatusFunc
		if pool != nil {
			statusFunc = pool.AdminStatusFunc()
		}
		adminServer = admin.New(statusFunc, cache.AdminRecentFunc(), debugHub)
		httpServer = &http.Server{Addr: cfg.Admin.ListenAddress, Handler: adminServer}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin server exited", "err", err)
			}
		}()
		logger.Info("admin surface listening", "address", cfg.Admin.ListenAddress)
	}

	waitForShutdownSignal(logger)

	logger.Info("shutting down")
	if adminServer != nil {
		adminServer.MarkInactive()
	}
	cancel()
	if memQueue != nil {
		_ = memQueue.Close()
	}
	if pool != nil {
		_ = pool.Shutdown()
	}
	wg.Wait()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	return nil
}

// startInProcessWorkers runs cfg.Process.PoolSize goroutines, each
// driving workerpool.RunWorker against one shared MemoryQueue. This is
// the only mode that works with Queue.Kind "memory": a Go channel
// supports many concurrent readers just fine, it just can't cross a
// re-exec'd process boundary the way Process.UseProcessPool needs.
func startInProcessWorkers(ctx context.Context, cfg *config.Config, exec *executor.Executor, guard *audit.Guard,
	cache *responsecache.Cache, debugHub *publisher.WebsocketPublisher, logger log15.Logger, wg *sync.WaitGroup) (*queue.MemoryQueue, error) {
	if cfg.Queue.Kind != "memory" {
		return nil, fmt.Errorf("queue kind %q is not supported without process.useProcessPool; use \"memory\"", cfg.Queue.Kind)
	}

	memQueue := queue.NewMemoryQueue(cfg.Process.MaxQueueSize)

	primary, err := buildPrimaryPublisher(cfg, debugHub)
	if err != nil {
		return nil, err
	}
	combined := responsecache.Wrap(withDebugFeed(primary, debugHub), cache)

	queues := workerpool.QueueOpeners{localBootstrapKind: memQueue.Opener()}
	publishers := workerpool.PublisherOpeners{
		localBootstrapKind: func(string) (publisher.ResponsePublisher, error) { return combined, nil },
	}

	for i := 0; i < cfg.Process.PoolSize; i++ {
		bootstrap := workerpool.WorkerBootstrap{
			WorkerName:    fmt.Sprintf("worker-%d", i),
			QueueKind:     localBootstrapKind,
			PublisherKind: localBootstrapKind,
			RetryConfig:   cfg.RetryConfig(),
			ReducerConfig: cfg.ReducerConfig(),
			KeepFiles:     cfg.ResourceDriver.KeepScripts,
		}

		var buf bytes.Buffer
		if err := workerpool.EncodeBootstrap(&buf, bootstrap); err != nil {
			return nil, fmt.Errorf("encoding bootstrap for worker %d: %w", i, err)
		}

		wg.Add(1)
		go func(index int, control bytes.Buffer) {
			defer wg.Done()
			if err := workerpool.RunWorker(ctx, &control, queues, publishers, exec, guard, logger.New("worker", index)); err != nil {
				logger.Error("worker exited with error", "worker", index, "err", err)
			}
		}(i, buf)
	}

	return memQueue, nil
}

// startProcessPool launches a re-exec'd workerpool.Pool. Only the
// mangos queue/publisher kinds can be used here: each child process
// opens its own socket, unlike the memory kind's single shared Go
// channel.
func startProcessPool(cfg *config.Config, configPath string, logger log15.Logger) (*workerpool.Pool, error) {
	if cfg.Queue.Kind != workerpool.QueueKindMangos {
		return nil, fmt.Errorf("process.useProcessPool requires queue.kind %q, got %q", workerpool.QueueKindMangos, cfg.Queue.Kind)
	}
	if cfg.Publisher.Kind != workerpool.PublisherKindMangos {
		return nil, fmt.Errorf("process.useProcessPool requires publisher.kind %q, got %q", workerpool.PublisherKindMangos, cfg.Publisher.Kind)
	}

	bootstrapFor := func(index int) workerpool.WorkerBootstrap {
		return workerpool.WorkerBootstrap{
			WorkerName:    fmt.Sprintf("worker-%d", index),
			QueueKind:     workerpool.QueueKindMangos,
			PublisherKind: workerpool.PublisherKindMangos,
			RetryConfig:   cfg.RetryConfig(),
			ReducerConfig: cfg.ReducerConfig(),
			KeepFiles:     cfg.ResourceDriver.KeepScripts,
		}
	}

	var extraArgs []string
	if configPath != "" {
		extraArgs = []string{"--config", configPath}
	}

	pool, err := workerpool.New(workerpool.Config{
		Size:        cfg.Process.PoolSize,
		GracePeriod: cfg.Process.ShutdownGracePeriod,
		ExtraArgs:   extraArgs,
	}, bootstrapFor, logger.New("component", "pool"))
	if err != nil {
		return nil, err
	}
	if err := pool.Start(); err != nil {
		return nil, err
	}
	return pool, nil
}

// waitForShutdownSignal blocks until SIGTERM, SIGINT or SIGHUP arrives,
// using go-daemon's signal machinery rather than signal.Notify
// directly so a future daemonised deployment (Context.Reborn) shares
// the same handler registration path.
func waitForShutdownSignal(logger log15.Logger) {
	triggered := make(chan os.Signal, 1)
	handler := func(sig os.Signal) error {
		select {
		case triggered <- sig:
		default:
		}
		return nil
	}

	daemon.SetSigHandler(handler, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		if err := daemon.ServeSignals(); err != nil {
			logger.Error("signal handling stopped", "err", err)
		}
	}()

	sig := <-triggered
	logger.Info("signal received", "signal", sig)
}
