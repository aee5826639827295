package events

import "time"

// Kind discriminates session events. Values are dot-namespaced strings; the
// package documentation lists the namespaces in use.
type Kind string

// Event is the common surface of every session event.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields shared by all events. Embed it and build it with
// NewBase so the creation time is always recorded.
type Base struct {
	kind Kind
	at   time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, at: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

// Timestamp reports when the event was created, not when it was dispatched.
func (b Base) Timestamp() time.Time { return b.at }
