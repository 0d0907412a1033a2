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
	"sync"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// MemoryPublisher records every outcome and event published to it, for
// use in tests and single-process deployments where no real transport
// is wanted.
type MemoryPublisher struct {
	mu       sync.Mutex
	Outcomes []lifecyclereq.LifecycleOutcome
	Events   []lifecyclereq.ProgressEvent
	closed   bool
}

// NewMemoryPublisher creates an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

// PublishOutcome implements ResponsePublisher.
func (p *MemoryPublisher) PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Outcomes = append(p.Outcomes, outcome)
	return nil
}

// PublishEvent implements ResponsePublisher.
func (p *MemoryPublisher) PublishEvent(_ string, event lifecyclereq.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// Close implements ResponsePublisher. Safe to call more than once.
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Opener returns an Opener that always hands back this MemoryPublisher.
func (p *MemoryPublisher) Opener() Opener {
	return func(string) (ResponsePublisher, error) { return p, nil }
}
