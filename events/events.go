package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// MutationKind identifies which document change a trigger describes
type MutationKind string

const (
	MutationGroupUpdated    MutationKind = "group.updated"
	MutationWagerCreated    MutationKind = "wager.created"
	MutationWagerUpdated    MutationKind = "wager.updated"
	MutationReminderCreated MutationKind = "reminder.created"
)

// AllMutationKinds lists every trigger the service reacts to
func AllMutationKinds() []MutationKind {
	return []MutationKind{
		MutationGroupUpdated,
		MutationWagerCreated,
		MutationWagerUpdated,
		MutationReminderCreated,
	}
}

// Mutation is a single document-store change as delivered by the trigger host.
// Before is empty for creation events.
type Mutation struct {
	EventID   string          `json:"event_id"`
	Kind      MutationKind    `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
}

// DecodeMutation parses a JSON trigger envelope
func DecodeMutation(data []byte) (Mutation, error) {
	var m Mutation
	if err := json.Unmarshal(data, &m); err != nil {
		return Mutation{}, fmt.Errorf("failed to decode mutation: %w", err)
	}
	if m.Kind == "" {
		return Mutation{}, fmt.Errorf("failed to decode mutation: event_type is required")
	}
	return m, nil
}

// DecodeMutationAs parses an envelope delivered on a channel dedicated to one
// kind. A missing event_type is taken from kind; a conflicting one is an error.
func DecodeMutationAs(data []byte, kind MutationKind) (Mutation, error) {
	var m Mutation
	if err := json.Unmarshal(data, &m); err != nil {
		return Mutation{}, fmt.Errorf("failed to decode mutation: %w", err)
	}
	if m.Kind == "" {
		m.Kind = kind
	}
	if m.Kind != kind {
		return Mutation{}, fmt.Errorf("failed to decode mutation: event_type %q does not match %q", m.Kind, kind)
	}
	return m, nil
}

// IsKnown reports whether the service reacts to this kind
func (k MutationKind) IsKnown() bool {
	for _, known := range AllMutationKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// HasBefore reports whether a prior snapshot was delivered
func (m Mutation) HasBefore() bool {
	return hasSnapshot(m.Before)
}

// HasAfter reports whether a current snapshot was delivered
func (m Mutation) HasAfter() bool {
	return hasSnapshot(m.After)
}

func hasSnapshot(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// EventType represents the notify-worthy transitions
type EventType string

const (
	EventTypeChatMessage  EventType = "chat_message"
	EventTypeWagerCreated EventType = "new_bet"
	EventTypeWagerSettled EventType = "bet_settled"
	EventTypeWagerVoided  EventType = "bet_voided"
	EventTypeRemindSettle EventType = "remind_settle"
)

// Event is the base interface for classified events
type Event interface {
	Type() EventType
}

// ChatMessageEvent is the newest chat entry added to a group
type ChatMessageEvent struct {
	GroupID    string
	GroupName  string
	MessageID  string
	SenderID   string
	SenderName string
	Text       string
}

func (e ChatMessageEvent) Type() EventType {
	return EventTypeChatMessage
}

// WagerCreatedEvent is a wager newly created in a group
type WagerCreatedEvent struct {
	WagerID string
	GroupID string
	Title   string
}

func (e WagerCreatedEvent) Type() EventType {
	return EventTypeWagerCreated
}

// WagerSettledEvent is a wager whose status just became settled
type WagerSettledEvent struct {
	WagerID       string
	GroupID       string
	GroupName     string
	Title         string
	WinningOption string
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// WagerVoidedEvent is a wager whose status just became voided
type WagerVoidedEvent struct {
	WagerID   string
	GroupID   string
	GroupName string
	Title     string
}

func (e WagerVoidedEvent) Type() EventType {
	return EventTypeWagerVoided
}

// ReminderEvent asks a single user to settle a wager
type ReminderEvent struct {
	ReminderID string
	UserID     string
	Message    string
	GroupID    string
	GroupName  string
	WagerID    string
}

func (e ReminderEvent) Type() EventType {
	return EventTypeRemindSettle
}

// Handler is a function that handles mutations
type Handler func(ctx context.Context, m Mutation)

// Bus routes mutations from the ingress adapters to their handlers
type Bus struct {
	mu       sync.RWMutex
	handlers map[MutationKind][]Handler
}

// NewBus creates a new mutation bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[MutationKind][]Handler),
	}
}

// Subscribe adds a handler for a specific mutation kind
func (b *Bus) Subscribe(kind MutationKind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[kind] = append(b.handlers[kind], handler)

	log.WithFields(log.Fields{
		"mutationKind": kind,
		"handlerCount": len(b.handlers[kind]),
	}).Debug("Subscribed handler to mutation kind")
}

// Handles reports whether any handler is registered for kind
func (b *Bus) Handles(kind MutationKind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind]) > 0
}

// Emit runs every handler for the mutation's kind on the calling goroutine and
// returns once they have all finished. A panicking handler is logged and does
// not stop the others.
func (b *Bus) Emit(ctx context.Context, m Mutation) int {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[m.Kind]))
	copy(handlers, b.handlers[m.Kind])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"mutationKind": m.Kind,
		"eventId":      m.EventID,
		"handlerCount": len(handlers),
	}).Debug("Emitting mutation to handlers")

	for i, handler := range handlers {
		b.invoke(ctx, handler, i, m)
	}
	return len(handlers)
}

func (b *Bus) invoke(ctx context.Context, h Handler, handlerIndex int, m Mutation) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"mutationKind": m.Kind,
				"eventId":      m.EventID,
				"handlerIndex": handlerIndex,
				"panic":        r,
			}).Error("Mutation handler panicked")
		}
	}()
	h(ctx, m)
}
