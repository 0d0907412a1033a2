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

// Package executor drives one LifecycleRequest through location
// resolution, inventory and key materialisation, template rendering,
// and a retried playbook run, always returning a LifecycleOutcome and
// unconditionally cleaning up everything it allocated.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grafov/bcast"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"

	"github.com/lifecycledriver/lifecycledriver/internal/concurrency"
	"github.com/lifecycledriver/lifecycledriver/inventory"
	"github.com/lifecycledriver/lifecycledriver/keys"
	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
	"github.com/lifecycledriver/lifecycledriver/location"
	"github.com/lifecycledriver/lifecycledriver/playbook"
	"github.com/lifecycledriver/lifecycledriver/reducer"
	"github.com/lifecycledriver/lifecycledriver/rendercontext"
	"github.com/lifecycledriver/lifecycledriver/retry"
)

// Executor runs LifecycleRequests. Constructed once per process and
// reused across requests (shared by every in-process worker goroutine,
// or one per re-exec'd worker process); everything per-request is scoped inside
// Execute and released before it returns.
type Executor struct {
	Runner         *playbook.Runner
	TemplateEngine rendercontext.Engine
	RenderCache    *rendercontext.Cache
	RetryConfig    retry.Config
	ReducerConfig  reducer.Config

	// Events, when non-nil, is this executor's publishing handle onto a
	// shared bcast.Group: every ProgressEvent a run raises is sent here
	// in addition to the reducer, so the admin surface and the response
	// publisher can each Join() the same group and tail live progress
	// independently.
	Events *bcast.Member

	// Concurrency, when non-nil, caps how many playbook subprocesses
	// this Executor will have running at once: Execute acquires a slot
	// before each attempt at Runner.Run and releases it immediately
	// after, regardless of outcome.
	Concurrency *concurrency.Limiter

	Log log15.Logger
}

// New constructs an Executor with the given dependencies. log may be
// nil, in which case a disabled logger is used. concurrency may be nil,
// in which case playbook runs are never gated.
func New(runner *playbook.Runner, engine rendercontext.Engine, cache *rendercontext.Cache, retryCfg retry.Config,
	reducerCfg reducer.Config, events *bcast.Member, limiter *concurrency.Limiter, logger log15.Logger) *Executor {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	return &Executor{
		Runner:         runner,
		TemplateEngine: engine,
		RenderCache:    cache,
		RetryConfig:    retryCfg,
		ReducerConfig:  reducerCfg,
		Events:         events,
		Concurrency:    limiter,
		Log:            logger,
	}
}

// Execute runs req to completion, always returning a LifecycleOutcome
// rather than an error. A request that fails Validate is answered at
// once, before anything is resolved or cleaned up. Every later stage,
// whether it fails or succeeds, ends in cleanup: the driver files tree
// is removed first (unless req.KeepFiles), then the materialised key
// files, then the deployment location's kubeconfig. Cleanup errors are
// logged, not returned.
func (e *Executor) Execute(ctx context.Context, req lifecyclereq.LifecycleRequest) lifecyclereq.LifecycleOutcome {
	log := e.Log.New("requestId", req.RequestID)

	if err := req.Validate(); err != nil {
		return lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError, err.Error())
	}

	log.Debug("executing lifecycle request", "request", req.Redacted())

	var cleanup multierror.Error
	defer func() {
		if err := cleanup.ErrorOrNil(); err != nil {
			log.Warn("cleanup encountered errors", "err", err)
		}
	}()

	dl, err := location.New(req.DeploymentLocation, req.DriverFiles.Path("config"))
	if err != nil {
		return e.cleanupAndReturn(req, &cleanup, lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError,
			"resolving deployment location: "+err.Error()))
	}
	defer func() {
		if err := dl.Release(); err != nil {
			cleanup.Errors = append(cleanup.Errors, err)
		}
	}()

	playbookPath, found := resolvePlaybookPath(req.DriverFiles, req.LifecycleName)
	if !found {
		return e.cleanupAndReturn(req, &cleanup, lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError,
			fmt.Sprintf("No playbook to run for lifecycle %s", req.LifecycleName)))
	}

	inventoryPath, err := inventory.Path(req.DriverFiles, dl.Type)
	if err != nil {
		return e.cleanupAndReturn(req, &cleanup, lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError,
			"resolving inventory: "+err.Error()))
	}

	keyProcessor, err := keys.NewProcessor(req.DriverFiles.Path("config"))
	if err != nil {
		return e.cleanupAndReturn(req, &cleanup, lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError,
			"preparing key processor: "+err.Error()))
	}
	defer func() {
		if err := keyProcessor.Cleanup(); err != nil {
			cleanup.Errors = append(cleanup.Errors, err)
		}
	}()

	if err := keyProcessor.ProcessAll(req.ResourceProperties, req.SystemProperties, dl.Properties); err != nil {
		return e.cleanupAndReturn(req, &cleanup, lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError,
			"materialising keys: "+err.Error()))
	}

	scope, err := rendercontext.Build(req.SystemProperties, req.ResourceProperties, req.RequestProperties, dl.Properties, req.AssociatedTopology)
	if err != nil {
		return e.cleanupAndReturn(req, &cleanup, lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError,
			"building render context: "+err.Error()))
	}

	if req.DriverFiles.HasDirectory("config") {
		if err := rendercontext.RenderTree(req.DriverFiles.Path("config"), e.TemplateEngine, scope, e.RenderCache); err != nil {
			return e.cleanupAndReturn(req, &cleanup, lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError,
				"rendering templates: "+err.Error()))
		}
	}

	outcome := e.runWithRetries(ctx, req, dl, inventoryPath, playbookPath, scope)
	return e.cleanupAndReturn(req, &cleanup, outcome)
}

func (e *Executor) runWithRetries(ctx context.Context, req lifecyclereq.LifecycleRequest, dl *location.DeploymentLocation, inventoryPath, playbookPath string, scope map[string]interface{}) lifecyclereq.LifecycleOutcome {
	controller := retry.New(e.RetryConfig)
	var last lifecyclereq.LifecycleOutcome

	_, err := controller.Run(func() (bool, error) {
		red := reducer.New(req.RequestID, e.ReducerConfig)
		sink := playbook.EventSinkFunc(func(ev lifecyclereq.ProgressEvent) {
			ev = red.Apply(ev)
			if e.Events != nil {
				e.Events.Send(ev)
			}
		})

		release, err := e.acquireSlot(ctx)
		if err != nil {
			last = lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError, err.Error())
			return false, err
		}

		runErr := e.Runner.Run(ctx, playbook.Params{
			RequestID:      req.RequestID,
			ConnectionType: string(dl.ConnectionType),
			InventoryPath:  inventoryPath,
			PlaybookPath:   playbookPath,
			Vars:           scope,
		}, sink)
		release()

		last = red.Result()
		if runErr != nil {
			last = lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError, runErr.Error())
			return false, runErr
		}
		return red.Unreachable(), nil
	})

	if err != nil {
		return lifecyclereq.NewFailedOutcome(req.RequestID, lifecyclereq.FailureInternalError, err.Error())
	}
	return last
}

// acquireSlot blocks until e.Concurrency grants a playbook-run slot or
// ctx is done, returning a func to release it. If e.Concurrency is
// nil, every request is granted immediately.
func (e *Executor) acquireSlot(ctx context.Context) (func(), error) {
	if e.Concurrency == nil {
		return func() {}, nil
	}

	release, err := e.Concurrency.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring a playbook run slot: %w", err)
	}
	return release, nil
}

func (e *Executor) cleanupAndReturn(req lifecyclereq.LifecycleRequest, cleanup *multierror.Error, outcome lifecyclereq.LifecycleOutcome) lifecyclereq.LifecycleOutcome {
	if !req.KeepFiles && req.DriverFiles != nil {
		if err := req.DriverFiles.RemoveAll(); err != nil {
			cleanup.Errors = append(cleanup.Errors, fmt.Errorf("removing driver files: %w", err))
		}
	}
	return outcome
}

func resolvePlaybookPath(driverFiles lifecyclereq.DriverFiles, lifecycleName string) (string, bool) {
	scripts := driverFiles.Path("scripts")
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(scripts, lifecycleName+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
