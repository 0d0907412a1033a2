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

// Package reducer folds a playbook run's event stream into a
// lifecyclereq.LifecycleOutcome, classifying task failures as either
// real infrastructure failures or host-unreachable conditions eligible
// for retry.
package reducer

import (
	"strings"

	"github.com/sasha-s/go-deadlock"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

const (
	defaultOutputPrefix   = "output__"
	defaultTopologyPrefix = "associated_topology__"
)

// Config carries the configurable fact-name prefixes the reducer
// recognises; an empty field selects the default prefix (see New).
type Config struct {
	OutputPrefix   string
	TopologyPrefix string
}

// Reducer accumulates the state of a single playbook run: at most one
// failure classification wins (first writer), outputs and topology
// accrete across every task-OK event. Safe for the PlaybookRunner to
// call from the single goroutine driving one run; the deadlock-checking
// mutex only guards against an accidental second caller being introduced
// later, since a run's events are otherwise strictly sequential.
type Reducer struct {
	requestID string
	cfg       Config

	mu          deadlock.Mutex
	failed      bool
	unreachable bool
	failure     *lifecyclereq.Failure
	outputs     map[string]interface{}
	topology    lifecyclereq.AssociatedTopology
	plays       []string
	lastPlay    string
}

// New creates a Reducer for one playbook run. A zero Config selects the
// spec's default prefixes.
func New(requestID string, cfg Config) *Reducer {
	if cfg.OutputPrefix == "" {
		cfg.OutputPrefix = defaultOutputPrefix
	}
	if cfg.TopologyPrefix == "" {
		cfg.TopologyPrefix = defaultTopologyPrefix
	}
	return &Reducer{
		requestID: requestID,
		cfg:       cfg,
		outputs:   map[string]interface{}{},
		topology:  lifecyclereq.AssociatedTopology{},
	}
}

// Apply folds one ProgressEvent into the reducer's state. It returns the
// same event unchanged; callers stream it on to an event sink after
// calling Apply, matching EventReducer's role as a pass-through observer
// plus accumulator (spec.md §4.8).
func (r *Reducer) Apply(ev lifecyclereq.ProgressEvent) lifecyclereq.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case lifecyclereq.EventPlayStarted:
		r.lastPlay = ev.PlayName
		r.plays = append(r.plays, ev.PlayName)
	case lifecyclereq.EventTaskCompletedOnHost:
		r.extractFacts(ev.Result)
	case lifecyclereq.EventTaskFailedOnHost:
		r.classifyFailure(ev.TaskName, ev.Result)
	case lifecyclereq.EventHostUnreachable:
		r.markUnreachable(ev.TaskName, ev.Result)
	}
	return ev
}

// classifyFailure applies the reclassification heuristic: a failure
// whose shape matches a privilege-escalation timeout or an SSH
// unreachable error is treated as unreachable, not a real failure.
func (r *Reducer) classifyFailure(taskName string, result lifecyclereq.TaskResult) {
	if looksUnreachable(result) {
		r.markUnreachable(taskName, result)
		return
	}
	if r.failed || r.unreachable {
		return
	}
	r.failed = true
	r.failure = &lifecyclereq.Failure{
		Code:        lifecyclereq.FailureInfrastructureError,
		Description: "task " + taskName + " failed: " + describeResult(result),
	}
}

func (r *Reducer) markUnreachable(taskName string, result lifecyclereq.TaskResult) {
	if r.failed || r.unreachable {
		return
	}
	r.unreachable = true
	r.failure = &lifecyclereq.Failure{
		Code:        lifecyclereq.FailureResourceNotFound,
		Description: "Resource unreachable (task " + taskName + " failed: " + describeResult(result) + ")",
	}
}

func looksUnreachable(result lifecyclereq.TaskResult) bool {
	if strings.Contains(result.Msg, "Timeout") && strings.Contains(result.Msg, "waiting for privilege escalation prompt") {
		return true
	}
	if strings.HasPrefix(result.ModuleStderr, "ssh:") && strings.Contains(result.ModuleStderr, "Host is unreachable") {
		return true
	}
	return false
}

func describeResult(result lifecyclereq.TaskResult) string {
	if result.Msg != "" {
		return result.Msg
	}
	if result.ModuleStderr != "" {
		return result.ModuleStderr
	}
	return "no further detail"
}

// Result returns the outcome folded so far: COMPLETE unless a real
// failure or an unreachable condition was seen, in which case FAILED
// with the first classified failure. Safe to call mid-run (RetryController
// calls it once the stream has ended for this attempt).
func (r *Reducer) Result() lifecyclereq.LifecycleOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failed || r.unreachable {
		return lifecyclereq.LifecycleOutcome{
			RequestID:          r.requestID,
			Status:             lifecyclereq.StatusFailed,
			Failure:            r.failure,
			Outputs:            copyOutputs(r.outputs),
			AssociatedTopology: copyTopology(r.topology),
		}
	}
	return lifecyclereq.NewCompleteOutcome(r.requestID, copyOutputs(r.outputs), copyTopology(r.topology))
}

// Unreachable reports whether the run-so-far was classified unreachable,
// the signal RetryController uses to decide whether to retry.
func (r *Reducer) Unreachable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unreachable
}

func copyOutputs(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTopology(t lifecyclereq.AssociatedTopology) lifecyclereq.AssociatedTopology {
	out := make(lifecyclereq.AssociatedTopology, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
