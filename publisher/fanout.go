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

package publisher

import (
	multierror "github.com/hashicorp/go-multierror"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// fanout publishes to every wrapped ResponsePublisher in order,
// collecting rather than short-circuiting on the first error so one
// dead transport (the debug feed, say) never hides delivery to another
// (the orchestrator's own transport).
type fanout []ResponsePublisher

// Fanout combines publishers into a single ResponsePublisher that
// forwards every call to all of them. Used to let the same worker
// publish outcomes to the configured production transport and the
// admin debug feed at once, without either one knowing about the
// other.
func Fanout(publishers ...ResponsePublisher) ResponsePublisher {
	if len(publishers) == 1 {
		return publishers[0]
	}
	return fanout(publishers)
}

func (f fanout) PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error {
	var errs multierror.Error
	for _, p := range f {
		if err := p.PublishOutcome(outcome); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	return errs.ErrorOrNil()
}

func (f fanout) PublishEvent(requestID string, event lifecyclereq.ProgressEvent) error {
	var errs multierror.Error
	for _, p := range f {
		if err := p.PublishEvent(requestID, event); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	return errs.ErrorOrNil()
}

func (f fanout) Close() error {
	var errs multierror.Error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	return errs.ErrorOrNil()
}
