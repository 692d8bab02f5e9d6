// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge connects the transfer engine to a vehicle through a
// mavlink2rest style bridge over HTTP or WebSocket, or through a framed
// serial link. Every channel exposes the same fire-and-forget Send and a
// Poll that returns only the most recent message of a type.
package bridge

import (
	"sync"
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
)

// Mailbox keeps the last received message of each type. Older messages
// are overwritten, never queued. It is safe for concurrent use.
type Mailbox struct {
	mu       sync.Mutex
	last     map[string]mavlink.Message
	counters map[string]uint64
	taps     []func(mavlink.Message)
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		last:     make(map[string]mavlink.Message),
		counters: make(map[string]uint64),
	}
}

// Put stores m as the latest message of its type and returns it with its
// counter and receive time filled in.
func (mb *Mailbox) Put(m mavlink.Message) mavlink.Message {
	mb.mu.Lock()
	mb.counters[m.Type]++
	m.Counter = mb.counters[m.Type]
	if m.Received.IsZero() {
		m.Received = time.Now()
	}
	mb.last[m.Type] = m
	taps := mb.taps
	mb.mu.Unlock()

	for _, fn := range taps {
		fn(m)
	}
	return m
}

// Get returns a copy of the latest message of msgType, or nil.
func (mb *Mailbox) Get(msgType string) *mavlink.Message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	m, ok := mb.last[msgType]
	if !ok {
		return nil
	}
	return &m
}

// Counter returns how many messages of msgType have been stored.
func (mb *Mailbox) Counter(msgType string) uint64 {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.counters[msgType]
}

// Clear forgets every stored message. Counters keep counting.
func (mb *Mailbox) Clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.last = make(map[string]mavlink.Message)
}

// Tap registers fn to be called with every stored message, outside the
// mailbox lock.
func (mb *Mailbox) Tap(fn func(mavlink.Message)) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.taps = append(mb.taps, fn)
}
