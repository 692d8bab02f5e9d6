// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transfer

import "github.com/google/uuid"

// Observer receives progress reports. Progress is called synchronously
// from the transfer goroutine and must not block.
type Observer interface {
	Progress(current, total int, msg string)
}

// SessionObserver is implemented by observers that need the session id
// before the first progress report.
type SessionObserver interface {
	SessionStarted(id uuid.UUID, dir Direction)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(current, total int, msg string)

func (f ObserverFunc) Progress(current, total int, msg string) {
	f(current, total, msg)
}

// Observers fans progress out to every non-nil observer in order.
type Observers []Observer

func (o Observers) Progress(current, total int, msg string) {
	for _, obs := range o {
		if obs != nil {
			obs.Progress(current, total, msg)
		}
	}
}

func (o Observers) SessionStarted(id uuid.UUID, dir Direction) {
	for _, obs := range o {
		if so, ok := obs.(SessionObserver); ok {
			so.SessionStarted(id, dir)
		}
	}
}

// nopObserver discards progress.
type nopObserver struct{}

func (nopObserver) Progress(int, int, string) {}
