// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/pkg/errors"
)

// Direction of a transfer.
type Direction int

const (
	DirectionUpload Direction = iota
	DirectionDownload
)

func (d Direction) String() string {
	switch d {
	case DirectionUpload:
		return "UPLOAD"
	case DirectionDownload:
		return "DOWNLOAD"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Status is the outcome of a session.
type Status int

const (
	StatusInProgress Status = iota
	StatusSucceeded
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusFailed:
		return "FAILED"
	case StatusTimedOut:
		return "TIMED_OUT"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is a step of the upload or download state machine.
type State int

const (
	StateInit State = iota

	// upload
	StateCountSent
	StateAwaitingRequests

	// download
	StateRequestCount
	StateAwaitingCount
	StateRequestItem
	StateAwaitingItem
	StateAckSent

	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:             "INIT",
	StateCountSent:        "COUNT_SENT",
	StateAwaitingRequests: "AWAITING_REQUESTS",
	StateRequestCount:     "REQUEST_COUNT",
	StateAwaitingCount:    "AWAITING_COUNT",
	StateRequestItem:      "REQUEST_ITEM",
	StateAwaitingItem:     "AWAITING_ITEM",
	StateAckSent:          "ACK_SENT",
	StateDone:             "DONE",
	StateFailed:           "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// transitions lists the legal successors of each non-terminal state.
// Every non-terminal state may also move to StateFailed.
var transitions = map[Direction]map[State][]State{
	DirectionUpload: {
		StateInit:             {StateCountSent},
		StateCountSent:        {StateAwaitingRequests},
		StateAwaitingRequests: {StateDone},
	},
	DirectionDownload: {
		StateInit:          {StateRequestCount},
		StateRequestCount:  {StateAwaitingCount},
		StateAwaitingCount: {StateRequestItem, StateDone},
		StateRequestItem:   {StateAwaitingItem},
		StateAwaitingItem:  {StateRequestItem, StateAckSent},
		StateAckSent:       {StateDone},
	},
}

// Session is the state of one transfer. It is owned by the goroutine
// running the transfer.
type Session struct {
	ID        uuid.UUID
	Direction Direction
	State     State
	Status    Status

	// Seq is the sequence number being transferred, Total the mission
	// size including home.
	Seq   int
	Total int

	// Retries counts polls since the last progress; Resends counts
	// repeated messages over the whole session.
	Retries int
	Resends int

	Started      time.Time
	LastActivity time.Time
	Err          error
}

func newSession(dir Direction) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New(),
		Direction:    dir,
		State:        StateInit,
		Status:       StatusInProgress,
		Started:      now,
		LastActivity: now,
	}
}

// transition moves the session to next. An illegal transition is a bug in
// the engine and panics.
func (s *Session) transition(next State) {
	if !s.canTransition(next) {
		panic(fmt.Sprintf("transfer: invalid %s transition %s -> %s", s.Direction, s.State, next))
	}
	s.State = next
	s.LastActivity = time.Now()

	switch next {
	case StateDone:
		s.Status = StatusSucceeded
	case StateFailed:
		s.Status = StatusFailed
	}
}

func (s *Session) canTransition(next State) bool {
	if s.State.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	for _, allowed := range transitions[s.Direction][s.State] {
		if allowed == next {
			return true
		}
	}
	return false
}

// fail ends the session with err. A context deadline maps to
// StatusTimedOut.
func (s *Session) fail(err error) {
	s.transition(StateFailed)
	s.Err = err
	if errors.Is(err, context.DeadlineExceeded) {
		s.Status = StatusTimedOut
	}
}

// Result is the outcome of an Upload or Download.
type Result struct {
	SessionID uuid.UUID
	Direction Direction
	Status    Status

	// Items holds the downloaded mission on the wire, home at seq 0. It
	// is empty for uploads and for failed downloads.
	Items []mission.Item
	Total int

	Resends int
	Elapsed time.Duration
}

func (s *Session) result(items []mission.Item) *Result {
	if items == nil {
		items = []mission.Item{}
	}
	return &Result{
		SessionID: s.ID,
		Direction: s.Direction,
		Status:    s.Status,
		Items:     items,
		Total:     s.Total,
		Resends:   s.Resends,
		Elapsed:   time.Since(s.Started),
	}
}

// Mission splits a downloaded mission into the home position at seq 0 and
// the remaining items renumbered from 1.
func (r *Result) Mission() (mission.Position, []mission.Item) {
	if r == nil || len(r.Items) == 0 {
		return mission.Position{}, []mission.Item{}
	}
	home := r.Items[0].Position()
	rest := make([]mission.Item, len(r.Items)-1)
	copy(rest, r.Items[1:])
	for i := range rest {
		rest[i].Current = false
	}
	return home, mission.Renumber(rest, 1)
}
