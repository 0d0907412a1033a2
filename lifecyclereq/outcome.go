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

// Status is the terminal (or, briefly, in-progress) state of a
// LifecycleOutcome.
type Status string

// The statuses a LifecycleOutcome may carry.
const (
	StatusComplete   Status = "COMPLETE"
	StatusFailed     Status = "FAILED"
	StatusInProgress Status = "IN_PROGRESS"
)

// FailureCode classifies why a LifecycleOutcome failed.
type FailureCode string

// The failure codes surfaced to the caller.
const (
	FailureInfrastructureError  FailureCode = "INFRASTRUCTURE_ERROR"
	FailureInternalError        FailureCode = "INTERNAL_ERROR"
	FailureResourceNotFound     FailureCode = "RESOURCE_NOT_FOUND"
	FailureInsufficientCapacity FailureCode = "INSUFFICIENT_CAPACITY"
)

// Failure carries the detail behind a FAILED outcome.
type Failure struct {
	Code        FailureCode `json:"code"`
	Description string      `json:"description"`
}

// LifecycleOutcome is published exactly once per accepted request.
type LifecycleOutcome struct {
	RequestID          string              `json:"requestId"`
	Status             Status              `json:"status"`
	Failure            *Failure            `json:"failure,omitempty"`
	Outputs            map[string]interface{} `json:"outputs"`
	AssociatedTopology AssociatedTopology  `json:"associatedTopology"`
}

// NewFailedOutcome builds the common FAILED shape used throughout the
// executor's stage-boundary error conversion.
func NewFailedOutcome(requestID string, code FailureCode, description string) LifecycleOutcome {
	return LifecycleOutcome{
		RequestID: requestID,
		Status:    StatusFailed,
		Failure:   &Failure{Code: code, Description: description},
		Outputs:   map[string]interface{}{},
		AssociatedTopology: AssociatedTopology{},
	}
}

// NewCompleteOutcome builds a COMPLETE outcome from reducer-harvested
// outputs/topology, defensively never returning nil maps (spec.md's
// "outputs, associatedTopology are non-null" invariant).
func NewCompleteOutcome(requestID string, outputs map[string]interface{}, topology AssociatedTopology) LifecycleOutcome {
	if outputs == nil {
		outputs = map[string]interface{}{}
	}
	if topology == nil {
		topology = AssociatedTopology{}
	}
	return LifecycleOutcome{
		RequestID:          requestID,
		Status:             StatusComplete,
		Outputs:            outputs,
		AssociatedTopology: topology,
	}
}
