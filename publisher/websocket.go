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
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebsocketPublisher is a ResponsePublisher that fans every outcome and
// event out to whatever debug clients are currently connected to its
// HandleDebug endpoint. It never blocks a worker on a slow or absent
// client: a client whose send buffer is full is dropped rather than
// backing up the publish path.
type WebsocketPublisher struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan wireMessage
}

// NewWebsocketPublisher creates an empty fan-out hub. Wire HandleDebug
// into the admin HTTP mux at something like GET /debug/events.
func NewWebsocketPublisher() *WebsocketPublisher {
	return &WebsocketPublisher{clients: make(map[*websocket.Conn]chan wireMessage)}
}

// HandleDebug upgrades the request to a websocket and streams every
// subsequent PublishOutcome/PublishEvent call to it until the client
// disconnects.
func (p *WebsocketPublisher) HandleDebug(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	out := make(chan wireMessage, 32)
	p.mu.Lock()
	p.clients[conn] = out
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.clients, conn)
		p.mu.Unlock()
		_ = conn.Close()
	}()

	for msg := range out {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (p *WebsocketPublisher) broadcast(msg wireMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for conn, out := range p.clients {
		select {
		case out <- msg:
		default:
			delete(p.clients, conn)
			_ = conn.Close()
		}
	}
}

// PublishOutcome implements ResponsePublisher.
func (p *WebsocketPublisher) PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error {
	p.broadcast(wireMessage{Kind: "outcome", RequestID: outcome.RequestID, Outcome: &outcome})
	return nil
}

// PublishEvent implements ResponsePublisher.
func (p *WebsocketPublisher) PublishEvent(requestID string, event lifecyclereq.ProgressEvent) error {
	p.broadcast(wireMessage{Kind: "event", RequestID: requestID, Event: &event})
	return nil
}

// Close disconnects every connected debug client.
func (p *WebsocketPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for conn, out := range p.clients {
		close(out)
		_ = conn.Close()
		delete(p.clients, conn)
	}
	return nil
}
