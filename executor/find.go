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

package executor

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

const instanceIDProp = "instance_id"

// findLifecycleName is the fixed lifecycle FindExecutor always runs;
// resource packages that support Find ship a scripts/Find.yaml (or .yml).
const findLifecycleName = "Find"

// FindError is the domain error FindReference raises on failure; the
// caller (an HTTP handler, typically) maps Code to a transport status.
type FindError struct {
	Code        lifecyclereq.FailureCode
	Description string
}

func (e *FindError) Error() string {
	return fmt.Sprintf("find reference: %s: %s", e.Code, e.Description)
}

// FindExecutor runs the fixed Find lifecycle synchronously, near-identical
// to Execute but without a requestId and returning its answer directly
// instead of through a ResponsePublisher.
type FindExecutor struct {
	*Executor
}

// NewFindExecutor adapts an Executor already constructed for ordinary
// lifecycle runs; both share every stage but the last.
func NewFindExecutor(e *Executor) *FindExecutor {
	return &FindExecutor{Executor: e}
}

// FindReference runs scripts/Find.yaml(.yml) against req's deployment
// location and blocks for the result. It runs through Execute, so its
// cleanup is Execute's (same stages, same order).
func (f *FindExecutor) FindReference(ctx context.Context, req lifecyclereq.FindRequest) (lifecyclereq.FindReferenceResult, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return lifecyclereq.FindReferenceResult{}, fmt.Errorf("find reference: generating correlation id: %w", err)
	}

	outcome := f.Execute(ctx, lifecyclereq.LifecycleRequest{
		RequestID:          id.String(),
		LifecycleName:      findLifecycleName,
		DriverFiles:        req.DriverFiles,
		ResourceProperties: req.ResourceProperties,
		SystemProperties:   req.SystemProperties,
		RequestProperties:  req.RequestProperties,
		DeploymentLocation: req.DeploymentLocation,
		AssociatedTopology: req.AssociatedTopology,
		KeepFiles:          req.KeepFiles,
	})

	if outcome.Status == lifecyclereq.StatusFailed {
		code := lifecyclereq.FailureInternalError
		desc := "find reference failed"
		if outcome.Failure != nil {
			code = outcome.Failure.Code
			desc = outcome.Failure.Description
		}
		return lifecyclereq.FindReferenceResult{}, &FindError{Code: code, Description: desc}
	}

	properties := outcome.Outputs
	if properties == nil {
		properties = map[string]interface{}{}
	}

	var instanceID string
	if v, ok := properties[instanceIDProp]; ok {
		if s, ok := v.(string); ok {
			instanceID = s
		}
		delete(properties, instanceIDProp)
	}

	return lifecyclereq.FindReferenceResult{
		InstanceID:         instanceID,
		AssociatedTopology: outcome.AssociatedTopology,
		Properties:         properties,
	}, nil
}
