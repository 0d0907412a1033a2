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

// Package playbook runs a rendered playbook against an inventory,
// translating the subprocess's newline-delimited JSON event stream into
// lifecyclereq.ProgressEvent values and delivering them synchronously to
// an EventSink. The actual playbook engine (the binary this package
// execs) is an external collaborator; this package only owns the
// subprocess lifecycle, event decoding and output capture around it.
package playbook

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/lifecycledriver/lifecycledriver/internal/iocap"
	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// stderrCaptureBytes bounds how much of a failed run's stderr is kept
// for the eventual failure description.
const stderrCaptureBytes = 32 * 1024

// EventSink receives every ProgressEvent a run produces, in order,
// before Run returns. The executor's sink feeds the reducer and, when
// Executor.Events is set, a bcast member; workers do not publish
// progress events to the response publisher, only outcomes.
type EventSink interface {
	Handle(lifecyclereq.ProgressEvent)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(lifecyclereq.ProgressEvent)

// Handle implements EventSink.
func (f EventSinkFunc) Handle(ev lifecyclereq.ProgressEvent) { f(ev) }

// Params describes one playbook invocation.
type Params struct {
	RequestID      string
	ConnectionType string
	InventoryPath  string
	PlaybookPath   string
	Vars           map[string]interface{}
}

// Runner execs an external playbook-engine binary per run, decoding its
// stdout as one JSON-encoded wireEvent per line.
type Runner struct {
	// Binary is the path to the playbook-engine executable. Its wire
	// protocol (one JSON object per stdout line, schema below) is a
	// contract this driver defines but does not implement the other
	// side of.
	Binary string

	// EventRateLimit caps how fast events are forwarded to the sink,
	// smoothing a burst of rapid-fire task events from a large fan-out
	// play into something a slow downstream publisher can keep up
	// with. Zero disables limiting.
	EventRateLimit rate.Limit
	EventBurst     int
}

// wireEvent is the schema a playbook-engine subprocess emits, one per
// stdout line.
type wireEvent struct {
	Kind       string                            `json:"kind"`
	Play       string                            `json:"play,omitempty"`
	Task       string                            `json:"task,omitempty"`
	Host       string                            `json:"host,omitempty"`
	Args       map[string]interface{}            `json:"args,omitempty"`
	ArgsHidden bool                              `json:"argsHidden,omitempty"`
	ItemLabel  string                            `json:"itemLabel,omitempty"`
	Result     *lifecyclereq.TaskResult          `json:"result,omitempty"`
	VarName    string                            `json:"varName,omitempty"`
	VarPriv    bool                              `json:"varPrivate,omitempty"`
	Status     string                            `json:"status,omitempty"`
	Stats      map[string]lifecyclereq.HostStats `json:"stats,omitempty"`
}

// Run execs the playbook engine, streams its events to sink, and blocks
// until the subprocess tree exits or ctx is cancelled. On cancellation
// the whole process group is signalled, so child processes the engine
// itself spawned are reaped too.
func (r *Runner) Run(ctx context.Context, params Params, sink EventSink) error {
	varsJSON, err := json.Marshal(params.Vars)
	if err != nil {
		return fmt.Errorf("playbook: encoding vars: %w", err)
	}

	cmd := exec.Command(r.Binary,
		"--connection", params.ConnectionType,
		"--inventory", params.InventoryPath,
		"--playbook", params.PlaybookPath,
	)
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("playbook: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("playbook: stderr pipe: %w", err)
	}

	varsPipe, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("playbook: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("playbook: starting %s: %w", r.Binary, err)
	}

	cancelled := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		case <-cancelled:
		}
	}()
	defer close(cancelled)

	if _, err := varsPipe.Write(varsJSON); err != nil {
		return fmt.Errorf("playbook: writing vars: %w", err)
	}
	if err := varsPipe.Close(); err != nil {
		return fmt.Errorf("playbook: closing vars pipe: %w", err)
	}

	stderrCapture := &iocap.PrefixSuffixSaver{N: stderrCaptureBytes}
	stderrDone := make(chan error, 1)
	go func() {
		_, copyErr := io.Copy(stderrCapture, stderr)
		stderrDone <- copyErr
	}()

	var limiter *rate.Limiter
	if r.EventRateLimit > 0 {
		limiter = rate.NewLimiter(r.EventRateLimit, r.EventBurst)
	}

	decodeErr := decodeEvents(ctx, stdout, sink, limiter, params.RequestID)

	<-stderrDone
	waitErr := cmd.Wait()

	if decodeErr != nil {
		return decodeErr
	}
	if waitErr != nil {
		if stderrCapture.Bytes() != nil && len(stderrCapture.Bytes()) > 0 {
			return fmt.Errorf("playbook: %s exited: %w (stderr: %s)", r.Binary, waitErr, stderrCapture.Bytes())
		}
		return fmt.Errorf("playbook: %s exited: %w", r.Binary, waitErr)
	}
	return nil
}

func decodeEvents(ctx context.Context, stdout io.Reader, sink EventSink, limiter *rate.Limiter, requestID string) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var we wireEvent
		if err := json.Unmarshal(line, &we); err != nil {
			return fmt.Errorf("playbook: decoding event for %s: %w", requestID, err)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("playbook: event rate limiter: %w", err)
			}
		}

		sink.Handle(toProgressEvent(we))
	}
	return scanner.Err()
}

func toProgressEvent(we wireEvent) lifecyclereq.ProgressEvent {
	ev := lifecyclereq.ProgressEvent{
		Kind:             lifecyclereq.EventKind(we.Kind),
		PlayName:         we.Play,
		TaskName:         we.Task,
		Host:             we.Host,
		ArgsHidden:       we.ArgsHidden,
		ItemLabel:        we.ItemLabel,
		VarPromptName:    we.VarName,
		VarPromptPrivate: we.VarPriv,
		PlaybookStatus:   we.Status,
		PlaybookStats:    we.Stats,
	}
	// no_log hides only args, never the task name or result payload
	// (spec's resolved no_log-scope open question): never surface Args
	// when the engine reports the task as hidden.
	if !we.ArgsHidden {
		ev.Args = we.Args
	}
	if we.Result != nil {
		ev.Result = *we.Result
	}
	return ev
}
