// Package events defines the notifications pushed to connected clients and
// the publishers that deliver them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	AppointmentBooked    = "appointment.booked"
	AppointmentUpdated   = "appointment.updated"
	ConsultationCreated  = "consultation.created"
	ConsultationUpdated  = "consultation.updated"
	ConsultationReminder = "consultation.reminder"
	PrescriptionCreated  = "prescription.created"
	PrescriptionUpdated  = "prescription.updated"
	CallInvite           = "call.invite"
	VitalAlert           = "vital.alert"
)

// Event is a real-time notification routed to the subscribers of Topic.
type Event struct {
	Type         string          `json:"type"`
	Topic        string          `json:"topic"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers events. The websocket hub and the Redis bridge both
// implement it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// UserTopic is the per-user topic every client is subscribed to on connect.
func UserTopic(id uuid.UUID) string { return "user:" + id.String() }

// RoleTopic is the topic shared by every client holding role.
func RoleTopic(role string) string { return "role:" + role }

// New builds an event with data encoded as JSON. Topic is filled in by
// ToUsers or by the caller.
func New(typ, resourceType string, resourceID uuid.UUID, data interface{}) (Event, error) {
	ev := Event{
		Type:         typ,
		ResourceType: resourceType,
		ResourceID:   resourceID.String(),
		Timestamp:    time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s event: %w", typ, err)
		}
		ev.Data = raw
	}
	return ev, nil
}

// ToUsers publishes a copy of ev on the topic of each user. Nil ids and
// repeats are skipped. Every failure is returned.
func ToUsers(ctx context.Context, pub Publisher, ev Event, users ...uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(users))
	var errs []error
	for _, id := range users {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		ev.Topic = UserTopic(id)
		if err := pub.Publish(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("publish %s to %s: %w", ev.Type, ev.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
