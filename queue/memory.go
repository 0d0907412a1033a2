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

package queue

import (
	"sync"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// MemoryQueue is an in-process RequestQueue, standing in for the
// out-of-scope Kafka transport in tests and single-process deployments.
type MemoryQueue struct {
	ch        chan lifecyclereq.LifecycleRequest
	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemoryQueue creates a MemoryQueue buffered to size.
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{
		ch:     make(chan lifecyclereq.LifecycleRequest, size),
		closed: make(chan struct{}),
	}
}

// Enqueue places req on the queue, blocking if it's full. Returns false
// if the queue is already closed.
func (q *MemoryQueue) Enqueue(req lifecyclereq.LifecycleRequest) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.ch <- req:
		return true
	case <-q.closed:
		return false
	}
}

// Next implements RequestQueue.
func (q *MemoryQueue) Next(handler Handler) bool {
	select {
	case req, ok := <-q.ch:
		if !ok {
			return false
		}
		handler(req)
		return true
	case <-q.closed:
		return false
	}
}

// Close implements RequestQueue. Safe to call more than once.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	return nil
}

// Opener returns an Opener that always hands back this MemoryQueue,
// for wiring a single in-process queue across a worker pool in tests.
func (q *MemoryQueue) Opener() Opener {
	return func(string) (RequestQueue, error) { return q, nil }
}
