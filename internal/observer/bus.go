// SPDX-License-Identifier: AGPL-3.0-or-later
// llrpclient - LLRP client for the Zebra FX9600 reader family
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package observer is the consumer-facing contract a session publishes to:
// a fan-out bus of typed lifecycle events, letting multiple consumers tell
// a tag read apart from a connection state change without type-switching
// on a domain struct.
package observer

import (
	"sync"

	"github.com/fx9600/llrpclient/internal/llrp"
)

// EventKind tags which field of an Event is populated.
type EventKind string

// Event kinds a Bus can publish.
const (
	EventConnected    EventKind = "connected"
	EventReady        EventKind = "ready"
	EventTag          EventKind = "tag"
	EventDisconnected EventKind = "disconnected"
	EventError        EventKind = "error"
)

// Event is one notification published on the bus. Only the field matching
// Kind is meaningful.
type Event struct {
	Kind             EventKind
	Tag              llrp.TagObservation
	Err              error
	DisconnectReason string
}

// busBufferSize bounds how many events a slow subscriber can fall behind
// by before Publish starts dropping for it, so one stalled consumer can
// never block the session's I/O goroutine.
const busBufferSize = 256

// Bus is an in-process fan-out of session events. The zero value is not
// usable; construct one with NewBus.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener and returns its channel along with an
// unsubscribe function. The caller must call unsubscribe when done
// listening, or the channel leaks.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, busBufferSize)
	b.subs[id] = ch
	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish fans ev out to every current subscriber. A subscriber whose
// channel is full is skipped for this event rather than blocking the
// publisher.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close unsubscribes and closes every current listener's channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
