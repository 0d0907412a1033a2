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
	"github.com/lifecycledriver/lifecycledriver/publisher"
	"github.com/lifecycledriver/lifecycledriver/queue"
)

// Queue/publisher kind names carried in a WorkerBootstrap.
const (
	QueueKindMemory = "memory"
	QueueKindMangos = "mangos"

	PublisherKindMemory    = "memory"
	PublisherKindMangos    = "mangos"
	PublisherKindWebsocket = "websocket"
)

// MemoryQueueOpeners builds a QueueOpeners registry backed by a single
// shared in-process queue, for tests and single-binary deployments
// that skip a real broker entirely. Only valid for in-process workers:
// a re-exec'd child can't see another process's Go value, so this kind
// must never be requested by a worker started through Pool.
func MemoryQueueOpeners(q *queue.MemoryQueue) QueueOpeners {
	return QueueOpeners{QueueKindMemory: q.Opener()}
}

// MangosQueueOpeners builds a QueueOpeners registry where the "mangos"
// kind dials the given upstream PUSH URL per worker. Unlike the memory
// kind this is safe across a re-exec'd Pool: each child process opens
// its own socket independently.
func MangosQueueOpeners(url string) QueueOpeners {
	return QueueOpeners{QueueKindMangos: queue.MangosQueueOpener(url)}
}

// MemoryPublisherOpeners builds a PublisherOpeners registry backed by
// a single shared in-process publisher.
func MemoryPublisherOpeners(p *publisher.MemoryPublisher) PublisherOpeners {
	return PublisherOpeners{PublisherKindMemory: p.Opener()}
}

// MangosPublisherOpeners builds a PublisherOpeners registry where the
// "mangos" kind dials the given PUSH-socket URL per worker.
func MangosPublisherOpeners(url string) PublisherOpeners {
	return PublisherOpeners{PublisherKindMangos: publisher.MangosOpener(url)}
}

// WebsocketPublisherOpeners builds a PublisherOpeners registry where
// the "websocket" kind hands every worker the same debug fan-out hub.
func WebsocketPublisherOpeners(hub *publisher.WebsocketPublisher) PublisherOpeners {
	return PublisherOpeners{
		PublisherKindWebsocket: func(string) (publisher.ResponsePublisher, error) { return hub, nil },
	}
}
