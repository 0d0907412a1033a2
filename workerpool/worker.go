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

package workerpool

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/lifecycledriver/lifecycledriver/audit"
	"github.com/lifecycledriver/lifecycledriver/executor"
	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
	"github.com/lifecycledriver/lifecycledriver/publisher"
	"github.com/lifecycledriver/lifecycledriver/queue"
)

// workerState tracks whether a worker is still accepting requests.
// Flipped false the instant shutdown begins, so a request that's
// already been dequeued (or is mid-run) gets answered with a capacity
// failure rather than silently dropped or left to run past shutdown.
type workerState struct {
	mu     sync.Mutex
	active bool
}

func (s *workerState) setActive(v bool) {
	s.mu.Lock()
	s.active = v
	s.mu.Unlock()
}

func (s *workerState) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// QueueOpeners and PublisherOpeners map the plain-string "kind" carried
// in a WorkerBootstrap to the concrete Opener that actually knows how
// to build one. A worker never hardcodes a transport: cmd/lifecycledriver
// registers whichever kinds the running configuration calls for
// (kafka is out of scope; "memory", "mangos" and "websocket" are wired
// in this module) and a re-exec'd child only ever sees the kind name.
type QueueOpeners map[string]queue.Opener
type PublisherOpeners map[string]publisher.Opener

// RunWorker is the body of the hidden "worker" subcommand: it decodes
// its WorkerBootstrap from control, opens its queue and publisher, and
// pulls requests until the queue is closed or ctx is cancelled. It
// mirrors AnsibleRequestHandler's loop in the original service, minus
// the multiprocessing bookkeeping Go's model doesn't need.
func RunWorker(ctx context.Context, control io.Reader, queues QueueOpeners, publishers PublisherOpeners,
	exec *executor.Executor, guard *audit.Guard, logger log15.Logger) error {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}

	bootstrap, err := DecodeBootstrap(control)
	if err != nil {
		return fmt.Errorf("workerpool: worker startup: %w", err)
	}

	openQueue, ok := queues[bootstrap.QueueKind]
	if !ok {
		return fmt.Errorf("workerpool: no queue opener registered for kind %q", bootstrap.QueueKind)
	}
	openPublisher, ok := publishers[bootstrap.PublisherKind]
	if !ok {
		return fmt.Errorf("workerpool: no publisher opener registered for kind %q", bootstrap.PublisherKind)
	}

	q, err := openQueue(bootstrap.WorkerName)
	if err != nil {
		return fmt.Errorf("workerpool: opening queue: %w", err)
	}
	defer func() { _ = q.Close() }()

	pub, err := openPublisher(bootstrap.WorkerName)
	if err != nil {
		return fmt.Errorf("workerpool: opening publisher: %w", err)
	}
	defer func() { _ = pub.Close() }()

	metrics := newRunMetrics()

	log := logger.New("worker", bootstrap.WorkerName)
	log.Info("worker ready")

	state := &workerState{active: true}

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		state.setActive(false)
		close(stop)
		_ = q.Close()
	}()

	for {
		select {
		case <-stop:
			log.Info("worker stopping")
			return nil
		default:
		}

		ok := q.Next(func(req lifecyclereq.LifecycleRequest) {
			handleRequest(ctx, state, exec, pub, guard, metrics, log, req)
		})
		if !ok {
			log.Info("queue closed, worker exiting")
			return nil
		}
	}
}

// driverInactiveOutcome is what a request gets when it's delivered
// while this worker is no longer active, or when ctx is cancelled
// before its playbook run completes: the caller gets a definitive
// answer instead of silence, and can resubmit elsewhere.
func driverInactiveOutcome(requestID string) lifecyclereq.LifecycleOutcome {
	return lifecyclereq.NewFailedOutcome(requestID, lifecyclereq.FailureInsufficientCapacity, "Driver is inactive")
}

func handleRequest(ctx context.Context, state *workerState, exec *executor.Executor, pub publisher.ResponsePublisher,
	guard *audit.Guard, metrics *runMetrics, log log15.Logger, req lifecyclereq.LifecycleRequest) {
	guard.WarnIfAlreadySeen(req.RequestID)

	var outcome lifecyclereq.LifecycleOutcome
	if !state.isActive() {
		outcome = driverInactiveOutcome(req.RequestID)
	} else {
		started := metrics.start()
		outcome = exec.Execute(ctx, req)
		metrics.finish(started)

		if outcome.Status != lifecyclereq.StatusComplete && ctx.Err() != nil {
			outcome = driverInactiveOutcome(req.RequestID)
		}
	}

	log.Info("request handled", "requestId", req.RequestID, "lifecycle", req.LifecycleName,
		"status", outcome.Status, "avgSeconds", metrics.average(), "stddevSeconds", metrics.stddev())

	if err := pub.PublishOutcome(outcome); err != nil {
		log.Error("failed to publish outcome", "requestId", req.RequestID, "err", err)
	}
	guard.RecordPublished(outcome, time.Now())
}
