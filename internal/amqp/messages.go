package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventKind names what happened. Routing happens on the kind in the worker.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
	ImportRequested    EventKind = "import.requested"
)

func (k EventKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionUpdated, TransactionDeleted, ImportRequested:
		return true
	}
	return false
}

// Event carries only an identifier; consumers load the current record from
// storage so that redelivered or reordered events stay harmless.
type Event struct {
	Kind      EventKind `json:"kind"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(kind EventKind, id string) Event {
	return Event{Kind: kind, ID: id, Timestamp: time.Now().UTC()}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and validates an event body.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if !e.Kind.Valid() {
		return Event{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.ID == "" {
		return Event{}, errors.New("event without id")
	}
	return e, nil
}
