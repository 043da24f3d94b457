// Package calendar talks to the clinic's appointment calendar. The Google
// implementation is the production backend; an in-memory scheduler backs
// tests and local development.
package calendar

import (
	"context"
	"time"
)

// Event is one appointment on the calendar.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Link        string
}

// Created reports a successful appointment creation.
type Created struct {
	EventID string
	Link    string
}

// Scheduler is the calendar collaborator contract. CreateAppointment
// returning (nil, nil) signals the slot was taken between the availability
// check and the write; that is the only conflict signal callers get, and
// the check-then-act gap is an accepted race.
type Scheduler interface {
	IsAvailable(ctx context.Context, start, end time.Time) (bool, error)
	CreateAppointment(ctx context.Context, name, phone string, start time.Time, reason, customerID string) (*Created, error)
	FindAppointment(ctx context.Context, name, phone, date string) (*Event, error)
	Reschedule(ctx context.Context, eventID string, newStart time.Time) (bool, error)
	Cancel(ctx context.Context, eventID string) error
}
