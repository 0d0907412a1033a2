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

// Package publisher declares ResponsePublisher, the named seam an
// out-of-scope outbound transport plugs into, plus two concrete
// transports (a mangos PUSH socket and a debug websocket fan-out) that
// exercise it without pulling in the orchestrator's real Kafka broker.
package publisher

import "github.com/lifecycledriver/lifecycledriver/lifecyclereq"

// ResponsePublisher is the one-way outbound channel a worker publishes
// outcomes and progress events to. Publication is not assumed
// idempotent; the core publishes each outcome exactly once per
// accepted request.
type ResponsePublisher interface {
	// PublishOutcome sends the terminal result of one request. Errors
	// propagate to the caller, which logs and continues — the request
	// is considered delivered regardless.
	PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error

	// PublishEvent sends a best-effort progress observation. A
	// publisher that doesn't support progress streaming may no-op.
	PublishEvent(requestID string, event lifecyclereq.ProgressEvent) error

	// Close releases the underlying transport. Safe to call more than
	// once.
	Close() error
}

// Opener constructs a ResponsePublisher for the named worker.
type Opener func(workerName string) (ResponsePublisher, error)
