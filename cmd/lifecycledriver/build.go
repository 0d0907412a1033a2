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

	"github.com/inconshreveable/log15"

	"github.com/lifecycledriver/lifecycledriver/config"
	"github.com/lifecycledriver/lifecycledriver/executor"
	"github.com/lifecycledriver/lifecycledriver/internal/concurrency"
	"github.com/lifecycledriver/lifecycledriver/playbook"
	"github.com/lifecycledriver/lifecycledriver/publisher"
	"github.com/lifecycledriver/lifecycledriver/rendercontext"
)

// buildExecutor assembles the Executor every worker (in-process
// goroutine or re-exec'd process alike) drives requests through. Built
// fresh per process since none of its dependencies cross a process
// boundary.
func buildExecutor(cfg *config.Config, logger log15.Logger) (*executor.Executor, error) {
	cache, err := rendercontext.NewCache()
	if err != nil {
		return nil, fmt.Errorf("building render cache: %w", err)
	}

	var engine rendercontext.Engine = rendercontext.PassthroughEngine{}
	if cfg.TemplateEngine.Binary != "" {
		engine = rendercontext.SubprocessEngine{Binary: cfg.TemplateEngine.Binary}
	} else {
		logger.Warn("no templateEngine.binary configured, rendering templates as a no-op")
	}

	runner := &playbook.Runner{Binary: cfg.Ansible.PlaybookBinary}

	var limiter *concurrency.Limiter
	if cfg.Process.MaxConcurrentAnsibleProcesses > 0 {
		limiter, err = concurrency.New(cfg.Process.MaxConcurrentAnsibleProcesses)
		if err != nil {
			return nil, fmt.Errorf("building concurrency limiter: %w", err)
		}
	}

	return executor.New(runner, engine, cache, cfg.RetryConfig(), cfg.ReducerConfig(), nil, limiter, logger), nil
}

// buildPrimaryPublisher resolves the single configured production
// transport a worker's outcomes are delivered over, independent of the
// admin debug feed.
func buildPrimaryPublisher(cfg *config.Config, debugHub *publisher.WebsocketPublisher) (publisher.ResponsePublisher, error) {
	switch cfg.Publisher.Kind {
	case "memory":
		return publisher.NewMemoryPublisher(), nil
	case "mangos":
		return publisher.DialMangosPublisher(cfg.Publisher.MangosURL)
	case "websocket":
		if debugHub == nil {
			return nil, fmt.Errorf("publisher kind %q requires admin.listenAddress to be set", cfg.Publisher.Kind)
		}
		return debugHub, nil
	default:
		return nil, fmt.Errorf("unknown publisher kind %q", cfg.Publisher.Kind)
	}
}

// withDebugFeed tees primary's calls to debugHub too, unless primary
// already is debugHub (publisher kind "websocket") or there's no admin
// surface to feed.
func withDebugFeed(primary publisher.ResponsePublisher, debugHub *publisher.WebsocketPublisher) publisher.ResponsePublisher {
	if debugHub == nil || publisher.ResponsePublisher(debugHub) == primary {
		return primary
	}
	return publisher.Fanout(primary, debugHub)
}
