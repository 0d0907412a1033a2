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

// Package queue declares RequestQueue, the named seam an out-of-scope
// message transport (Kafka, in the source driver) plugs into. Each
// worker process constructs its own RequestQueue from an Opener it was
// handed at bootstrap, mirroring the source driver's "each forked
// worker builds its own Kafka consumer" model.
package queue

import "github.com/lifecycledriver/lifecycledriver/lifecyclereq"

// Handler processes one delivered request and returns once it has been
// fully handled (including publishing its outcome); RequestQueue
// implementations acknowledge delivery only after Handler returns.
type Handler func(lifecyclereq.LifecycleRequest)

// RequestQueue is the opaque transport a worker consumes lifecycle
// requests from. Next blocks until a request is available or the queue
// is closed, whichever comes first.
type RequestQueue interface {
	// Next blocks for the next request and invokes handler with it.
	// Returns false once the queue is closed and will yield no more
	// requests.
	Next(handler Handler) (ok bool)

	// Close unblocks any in-progress or future Next call. Safe to call
	// more than once.
	Close() error
}

// Opener constructs a RequestQueue for the named worker, using
// connection parameters supplied out of band (environment, config
// file) — the out-of-scope transport's own concern, not this
// package's.
type Opener func(workerName string) (RequestQueue, error)
