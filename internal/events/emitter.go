// Package events publishes orchestration events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ConsultationRequested = "consultation.requested"
	ConsultationCancelled = "consultation.cancelled"
	PaymentProcessed      = "payment.processed"
	NotificationSent      = "notification.sent"
	UserSynced            = "user.synced"
)

// Event is one orchestration fact.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	Success    bool           `json:"success"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// New creates an event keyed by key (usually the user id).
func New(eventType, key string, success bool, payload map[string]any) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		Success:    success,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Emitter defines the interface for emitting orchestration events
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *Event) error

	// EmitBatch sends multiple events
	EmitBatch(ctx context.Context, events []*Event) error

	// Close closes the emitter connection
	Close() error
}
