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

package audit

import (
	"time"

	"github.com/inconshreveable/log15"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// Guard is the best-effort, never-fail view of a Store that WorkerPool
// holds: a lookup failure or an already-seen requestId is logged and
// otherwise ignored, never blocking or altering dispatch. A nil *Guard
// (or one built over a nil Store) is a safe no-op, so callers that run
// without an audit store configured don't need a separate code path.
type Guard struct {
	store *Store
	log   log15.Logger
}

// NewGuard wraps store. Passing a nil store yields a Guard whose
// methods are no-ops.
func NewGuard(store *Store, logger log15.Logger) *Guard {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	return &Guard{store: store, log: logger}
}

// WarnIfAlreadySeen logs a warning if requestId already has an audit
// entry. This never changes behaviour: the request is still executed
// and published per the at-most-once contract; it only gives an
// operator a breadcrumb when the upstream queue's delivery semantics
// misbehave.
func (g *Guard) WarnIfAlreadySeen(requestID string) {
	if g == nil || g.store == nil {
		return
	}
	entry, found, err := g.store.Lookup(requestID)
	if err != nil {
		g.log.Warn("audit lookup failed, ignoring", "requestId", requestID, "err", err)
		return
	}
	if found {
		g.log.Warn("requestId already recorded in audit store before dispatch",
			"requestId", requestID, "previousStatus", entry.Status, "previouslyPublishedAt", entry.PublishedAt)
	}
}

// RecordPublished records that outcome was published at publishedAt. A
// write failure is logged and ignored.
func (g *Guard) RecordPublished(outcome lifecyclereq.LifecycleOutcome, publishedAt time.Time) {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.RecordPublished(outcome.RequestID, string(outcome.Status), publishedAt); err != nil {
		g.log.Warn("audit record failed, ignoring", "requestId", outcome.RequestID, "err", err)
	}
}
