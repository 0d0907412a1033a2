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

// Package admin is additive ambient tooling: a small HTTP surface for an
// operator (/healthz, /status, a /debug/events websocket feed), never on
// the path of request processing. Its absence or failure must never
// affect Execute(); nothing in this package ever answers a query for a
// specific requestId's outcome, which would be the job-store API
// spec.md's Non-goals rule out.
package admin

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
)

// WorkerSnapshot is one worker's point-in-time status, independent of
// workerpool's own type so this package doesn't need to import it.
type WorkerSnapshot struct {
	Index          int `json:"index"`
	Pid            int `json:"pid"`
	ChildProcesses int `json:"childProcesses"`
}

// RecentOutcome is the admin-facing shape of one recently published
// outcome.
type RecentOutcome struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

// PoolStatusFunc is the seam admin uses to ask whatever supervises the
// worker fleet for a current snapshot. workerpool.Pool.AdminStatusFunc
// adapts Pool.Snapshot's result into this package's own WorkerSnapshot
// type; workerpool imports admin, admin never imports workerpool.
type PoolStatusFunc func() (active bool, workers []WorkerSnapshot)

// RecentOutcomesFunc is the seam admin uses for the best-effort
// "recent activity" figures /status reports; responsecache.Cache's
// AdminRecentFunc adapts Cache.Recent's result the same way.
type RecentOutcomesFunc func(n int) []RecentOutcome

// Status is the JSON body of GET /status.
type Status struct {
	Active         bool             `json:"active"`
	PoolSize       int              `json:"poolSize"`
	Workers        []WorkerSnapshot `json:"workers"`
	RecentOutcomes []RecentOutcome  `json:"recentOutcomes"`
}

// Server hosts the admin HTTP surface.
type Server struct {
	router *mux.Router
	active int32

	pool  PoolStatusFunc
	cache RecentOutcomesFunc
	debug DebugEventsHandler
}

// DebugEventsHandler serves the /debug/events websocket upgrade.
// publisher.WebsocketPublisher.HandleDebug already implements this: the
// same hub a worker publishes into over the "websocket" transport is
// what this surface exposes to a human dashboard, rather than admin
// maintaining a second fan-out of its own.
type DebugEventsHandler interface {
	HandleDebug(w http.ResponseWriter, r *http.Request)
}

// New builds a Server. pool and cache may be nil: /status then leaves
// the fields they would fill at their zero values. debug may be nil: the
// route is then simply unregistered.
func New(pool PoolStatusFunc, cache RecentOutcomesFunc, debug DebugEventsHandler) *Server {
	s := &Server{router: mux.NewRouter(), pool: pool, cache: cache, debug: debug}
	atomic.StoreInt32(&s.active, 1)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	if debug != nil {
		s.router.HandleFunc("/debug/events", debug.HandleDebug)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// MarkInactive flips /healthz to 503; called once shutdown begins.
func (s *Server) MarkInactive() { atomic.StoreInt32(&s.active, 0) }

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if atomic.LoadInt32(&s.active) == 0 {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := Status{Active: atomic.LoadInt32(&s.active) != 0}

	if s.pool != nil {
		poolActive, workers := s.pool()
		status.Active = status.Active && poolActive
		status.PoolSize = len(workers)
		status.Workers = workers
	}
	if s.cache != nil {
		status.RecentOutcomes = s.cache(20)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
