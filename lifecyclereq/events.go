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

package lifecyclereq

// EventKind discriminates the ProgressEvent variants raised while a
// playbook runs, mirroring the callback hooks the source driver's
// ResultCallback implements.
type EventKind string

// The progress event kinds the reducer folds over.
const (
	EventPlayStarted         EventKind = "PLAY_STARTED"
	EventPlayMatchedNoHosts  EventKind = "PLAY_MATCHED_NO_HOSTS"
	EventTaskStarted         EventKind = "TASK_STARTED"
	EventTaskStartedOnHost   EventKind = "TASK_STARTED_ON_HOST"
	EventTaskCompletedOnHost EventKind = "TASK_COMPLETED_ON_HOST"
	EventTaskFailedOnHost    EventKind = "TASK_FAILED_ON_HOST"
	EventTaskSkippedOnHost   EventKind = "TASK_SKIPPED_ON_HOST"
	EventTaskRetryOnHost     EventKind = "TASK_RETRY_ON_HOST"
	EventHostUnreachable     EventKind = "HOST_UNREACHABLE"
	EventVarPrompt           EventKind = "VAR_PROMPT"
	EventPlaybookResult      EventKind = "PLAYBOOK_RESULT"
)

// TaskResult is the per-host payload of a play's task: the module's raw
// result dict, flattened to the fields the reducer actually inspects. Other
// keys (everything else ansible returns) still round-trip through Extra.
type TaskResult struct {
	Msg          string                 `json:"msg,omitempty"`
	ModuleStderr string                 `json:"moduleStderr,omitempty"`
	ModuleStdout string                 `json:"moduleStdout,omitempty"`
	Changed      bool                   `json:"changed,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// ProgressEvent is one observation raised by the playbook runner while a
// play executes. Exactly one of the *Detail fields is populated, selected
// by Kind; this mirrors the source driver's class-per-callback hierarchy
// without needing a type per variant.
type ProgressEvent struct {
	Kind EventKind

	PlayName string
	TaskName string
	Host     string

	// Args/ArgsHidden carry a TaskStarted/TaskStartedOnHost event's
	// module arguments, unless the task is marked no_log, in which case
	// ArgsHidden is true and Args is always empty: no_log hides only
	// args, never the task name or a result payload.
	Args       map[string]interface{}
	ArgsHidden bool

	// ItemLabel is the printable form of the current loop item for a
	// TaskCompletedOnHost/TaskFailedOnHost/TaskSkippedOnHost event
	// raised by a looped task; empty when the task isn't looped or no
	// printable form could be derived.
	ItemLabel string

	Result TaskResult

	// VarPromptName/VarPromptPrivate carry the detail of an
	// EventVarPrompt, raised when a playbook declares a vars_prompt the
	// driver cannot satisfy non-interactively; the executor treats this
	// as a configuration error rather than blocking for input.
	VarPromptName    string
	VarPromptPrivate bool

	// PlaybookStatus/PlaybookStats carry the detail of an
	// EventPlaybookResult, the terminal event a run always ends with,
	// win or lose.
	PlaybookStatus string
	PlaybookStats  map[string]HostStats
}

// HostStats is one host's row of the playbook's final tally.
type HostStats struct {
	OK          int `json:"ok"`
	Changed     int `json:"changed"`
	Unreachable int `json:"unreachable"`
	Failures    int `json:"failures"`
	Skipped     int `json:"skipped"`
}
