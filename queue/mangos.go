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
	"encoding/json"
	"fmt"

	"nanomsg.org/go-mangos"
	"nanomsg.org/go-mangos/protocol/pull"
	"nanomsg.org/go-mangos/transport/tcp"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// MangosQueue is a RequestQueue backed by a mangos PULL socket dialled
// at a single upstream PUSH endpoint. Unlike MemoryQueue this genuinely
// crosses process boundaries: every worker process dials the same
// address and nanomsg fair-queues each message to exactly one of them,
// giving a re-exec'd Pool the same "many processes draining one shared
// queue" shape the original driver got for free from
// multiprocessing.Queue, without needing Kafka to get it.
type MangosQueue struct {
	sock mangos.Socket
}

// DialMangosQueue opens a PULL socket dialled at url. Whatever plays
// the out-of-scope request-ingestion role is expected to Listen there
// with a PUSH socket and send one JSON-encoded lifecyclereq.LifecycleRequest
// per message.
func DialMangosQueue(url string) (*MangosQueue, error) {
	sock, err := pull.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("queue: creating pull socket: %w", err)
	}
	sock.AddTransport(tcp.NewTransport())
	if err := sock.Dial(url); err != nil {
		return nil, fmt.Errorf("queue: dialing %s: %w", url, err)
	}
	return &MangosQueue{sock: sock}, nil
}

// MangosQueueOpener returns an Opener that dials the same url for
// every worker, each getting its own PULL socket competing for
// deliveries against the others.
func MangosQueueOpener(url string) Opener {
	return func(string) (RequestQueue, error) { return DialMangosQueue(url) }
}

// Next implements RequestQueue. A malformed message is dropped rather
// than handed to handler, since there's no caller here to retry it
// against; the queue itself is otherwise still open.
func (q *MangosQueue) Next(handler Handler) bool {
	data, err := q.sock.Recv()
	if err != nil {
		return false
	}

	var req lifecyclereq.LifecycleRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return true
	}
	handler(req)
	return true
}

// Close implements RequestQueue. Unblocks any in-progress Recv.
func (q *MangosQueue) Close() error {
	return q.sock.Close()
}
