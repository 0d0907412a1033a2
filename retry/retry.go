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

// Package retry implements the driver's retry-on-unreachable policy: a
// floor delay between attempts, not exponential backoff, and only for
// runs classified unreachable — infrastructure failures never retry.
package retry

import (
	"time"
)

// Config holds the two retry knobs spec.md §4.9 exposes via
// process-wide configuration.
type Config struct {
	MaxUnreachableRetries int
	UnreachableSleep      time.Duration
}

// DefaultConfig mirrors AnsibleProperties' defaults.
func DefaultConfig() Config {
	return Config{MaxUnreachableRetries: 1000, UnreachableSleep: 5 * time.Second}
}

// Attempt is one invocation of the playbook; it returns the outcome's
// "was this classified unreachable" bit alongside any transport error
// from the attempt itself (which is not retried).
type Attempt func() (unreachable bool, err error)

// Controller runs attempt up to cfg.MaxUnreachableRetries times, sleeping
// a floor delay between unreachable attempts. This is not exponential
// backoff: the driver's retry policy is "wait at least this long between
// attempts", with the sleep shortened by however long the attempt itself
// already took.
type Controller struct {
	cfg Config
}

// New creates a Controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Run invokes attempt, retrying while it reports unreachable, up to
// cfg.MaxUnreachableRetries times. The floor delay accounts for time
// already spent in the attempt: sleep = max(0, unreachableSleep - elapsed).
// sleepFn defaults to time.Sleep; tests substitute a fast stand-in.
func (c *Controller) Run(attempt Attempt) (unreachable bool, err error) {
	return c.run(attempt, time.Sleep)
}

func (c *Controller) run(attempt Attempt, sleepFn func(time.Duration)) (bool, error) {
	max := c.cfg.MaxUnreachableRetries
	if max <= 0 {
		max = 1
	}

	var lastUnreachable bool
	var lastErr error

	for i := 0; i < max; i++ {
		start := time.Now()
		lastUnreachable, lastErr = attempt()
		if lastErr != nil || !lastUnreachable {
			return lastUnreachable, lastErr
		}

		elapsed := time.Since(start)
		sleepFor := c.cfg.UnreachableSleep - elapsed
		if sleepFor < 0 {
			sleepFor = 0
		}
		if sleepFor > 0 && i < max-1 {
			sleepFn(sleepFor)
		}
	}
	return lastUnreachable, lastErr
}
