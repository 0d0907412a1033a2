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
	"encoding/json"
	"fmt"
	"sync"

	"nanomsg.org/go-mangos"
	"nanomsg.org/go-mangos/protocol/push"
	"nanomsg.org/go-mangos/transport/tcp"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// wireMessage is the envelope written to the PUSH socket, discriminating
// an outcome from a progress event on the receiving end.
type wireMessage struct {
	Kind      string                        `json:"kind"` // "outcome" or "event"
	RequestID string                        `json:"requestId,omitempty"`
	Outcome   *lifecyclereq.LifecycleOutcome `json:"outcome,omitempty"`
	Event     *lifecyclereq.ProgressEvent    `json:"event,omitempty"`
}

// MangosPublisher is a ResponsePublisher backed by a mangos PUSH socket
// dialled at a single downstream PULL socket — the simplest one-way
// transport that genuinely exercises go-mangos in place of the
// orchestrator's real (out-of-scope) Kafka topic.
type MangosPublisher struct {
	mu   sync.Mutex
	sock mangos.Socket
}

// DialMangosPublisher opens a PUSH socket dialled at url (e.g.
// "tcp://127.0.0.1:5560").
func DialMangosPublisher(url string) (*MangosPublisher, error) {
	sock, err := push.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("publisher: creating push socket: %w", err)
	}
	sock.AddTransport(tcp.NewTransport())
	if err := sock.Dial(url); err != nil {
		return nil, fmt.Errorf("publisher: dialing %s: %w", url, err)
	}
	return &MangosPublisher{sock: sock}, nil
}

// MangosOpener returns an Opener that dials the same url for every
// worker, each worker getting its own PUSH socket.
func MangosOpener(url string) Opener {
	return func(string) (ResponsePublisher, error) { return DialMangosPublisher(url) }
}

// PublishOutcome implements ResponsePublisher.
func (p *MangosPublisher) PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error {
	return p.send(wireMessage{Kind: "outcome", RequestID: outcome.RequestID, Outcome: &outcome})
}

// PublishEvent implements ResponsePublisher.
func (p *MangosPublisher) PublishEvent(requestID string, event lifecyclereq.ProgressEvent) error {
	return p.send(wireMessage{Kind: "event", RequestID: requestID, Event: &event})
}

func (p *MangosPublisher) send(msg wireMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("publisher: encoding message: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sock.Send(data)
}

// Close implements ResponsePublisher.
func (p *MangosPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sock.Close()
}
