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

// Package audit is an ambient diagnostic, not a job store: it records one
// entry per published outcome (requestId -> status, publishedAt) purely so
// an operator has a breadcrumb when the upstream queue's own delivery
// semantics misbehave. Nothing in this driver ever reads it to decide
// whether to run or suppress a request — that would be the job-store /
// idempotency API spec.md explicitly rules out.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var outcomesBucket = []byte("outcomes")

// Entry is one audit record.
type Entry struct {
	RequestID   string    `json:"requestId"`
	Status      string    `json:"status"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Store is a single-file embedded KV store of Entry records keyed by
// requestId.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bolt database at path and
// ensures its bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(outcomesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: preparing bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordPublished writes (or overwrites) the entry for requestID.
func (s *Store) RecordPublished(requestID, status string, publishedAt time.Time) error {
	data, err := json.Marshal(Entry{RequestID: requestID, Status: status, PublishedAt: publishedAt})
	if err != nil {
		return fmt.Errorf("audit: encoding entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(outcomesBucket).Put([]byte(requestID), data)
	})
}

// Lookup returns the entry for requestID, if one has been recorded.
func (s *Store) Lookup(requestID string) (Entry, bool, error) {
	var entry Entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(outcomesBucket).Get([]byte(requestID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("audit: looking up %s: %w", requestID, err)
	}
	return entry, found, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error { return s.db.Close() }
