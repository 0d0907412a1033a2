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

package responsecache

import "github.com/lifecycledriver/lifecycledriver/lifecyclereq"

// publisher is the slice of publisher.ResponsePublisher CachingPublisher
// wraps. Declared locally to avoid an import cycle: publisher doesn't
// need to know about responsecache, only the other way around.
type publisher interface {
	PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error
	PublishEvent(requestID string, event lifecyclereq.ProgressEvent) error
	Close() error
}

// CachingPublisher decorates a ResponsePublisher, recording every
// published outcome into a Cache before delegating. A failed delegate
// publish still leaves the outcome recorded: the cache exists for
// admin visibility into what this process attempted, regardless of
// whether the real transport accepted it.
type CachingPublisher struct {
	inner publisher
	cache *Cache
}

// Wrap returns a CachingPublisher that records into cache and forwards
// every call to inner.
func Wrap(inner publisher, cache *Cache) *CachingPublisher {
	return &CachingPublisher{inner: inner, cache: cache}
}

// PublishOutcome implements publisher.ResponsePublisher.
func (p *CachingPublisher) PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error {
	p.cache.RecordOutcome(outcome)
	return p.inner.PublishOutcome(outcome)
}

// PublishEvent implements publisher.ResponsePublisher.
func (p *CachingPublisher) PublishEvent(requestID string, event lifecyclereq.ProgressEvent) error {
	return p.inner.PublishEvent(requestID, event)
}

// Close implements publisher.ResponsePublisher.
func (p *CachingPublisher) Close() error { return p.inner.Close() }
