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

package workerpool

import (
	"fmt"
	"io"

	"github.com/ugorji/go/codec"

	"github.com/lifecycledriver/lifecycledriver/reducer"
	"github.com/lifecycledriver/lifecycledriver/retry"
)

// WorkerBootstrap is the one message a re-exec'd child reads from its
// control pipe before entering its request loop: everything it needs
// to build its own RequestQueue and ResponsePublisher (by kind, not by
// function value — those can't cross exec) plus the per-request
// configuration the parent resolved once at startup.
type WorkerBootstrap struct {
	WorkerName string

	QueueKind       string
	QueueParams     map[string]string
	PublisherKind   string
	PublisherParams map[string]string

	RetryConfig   retry.Config
	ReducerConfig reducer.Config
	KeepFiles     bool
}

var cborHandle = &codec.CborHandle{}

// EncodeBootstrap writes b to w using a compact binary codec (cbor),
// the same family of encoding the teacher's own wire formats favour
// over a textual one for a parent-to-child control message.
func EncodeBootstrap(w io.Writer, b WorkerBootstrap) error {
	if err := codec.NewEncoder(w, cborHandle).Encode(b); err != nil {
		return fmt.Errorf("workerpool: encoding bootstrap: %w", err)
	}
	return nil
}

// DecodeBootstrap reads a WorkerBootstrap previously written by
// EncodeBootstrap.
func DecodeBootstrap(r io.Reader) (WorkerBootstrap, error) {
	var b WorkerBootstrap
	if err := codec.NewDecoder(r, cborHandle).Decode(&b); err != nil {
		return WorkerBootstrap{}, fmt.Errorf("workerpool: decoding bootstrap: %w", err)
	}
	return b, nil
}
