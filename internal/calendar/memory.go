package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryScheduler is an in-process Scheduler used by tests and the local
// console agent. It mirrors the Google implementation's matching rules.
type MemoryScheduler struct {
	mu          sync.Mutex
	events      map[string]*Event
	loc         *time.Location
	durationMin int
}

// NewMemoryScheduler builds an empty in-memory calendar.
func NewMemoryScheduler(loc *time.Location, durationMin int) *MemoryScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if durationMin <= 0 {
		durationMin = 10
	}
	return &MemoryScheduler{
		events:      make(map[string]*Event),
		loc:         loc,
		durationMin: durationMin,
	}
}

func (m *MemoryScheduler) IsAvailable(_ context.Context, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isFreeLocked(start, end), nil
}

func (m *MemoryScheduler) isFreeLocked(start, end time.Time) bool {
	for _, ev := range m.events {
		if start.Before(ev.End) && ev.Start.Before(end) {
			return false
		}
	}
	return true
}

func (m *MemoryScheduler) CreateAppointment(_ context.Context, name, phone string, start time.Time, reason, customerID string) (*Created, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := start.Add(time.Duration(m.durationMin) * time.Minute)
	if !m.isFreeLocked(start, end) {
		return nil, nil
	}

	id := uuid.NewString()
	ev := &Event{
		ID:          id,
		Summary:     "Dental - " + name,
		Description: eventDescription(name, phone, reason, customerID),
		Start:       start,
		End:         end,
		Link:        fmt.Sprintf("memory://events/%s", id),
	}
	m.events[id] = ev
	return &Created{EventID: id, Link: ev.Link}, nil
}

func (m *MemoryScheduler) FindAppointment(_ context.Context, name, phone, date string) (*Event, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", date, m.loc)
	if err != nil {
		return nil, fmt.Errorf("calendar: invalid appointment date %q: %w", date, err)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	var byName []*Event
	needle := strings.ToLower(name)
	for _, ev := range m.events {
		if ev.Start.Before(dayStart) || !ev.Start.Before(dayEnd) {
			continue
		}
		if strings.Contains(strings.ToLower(ev.Summary), needle) ||
			strings.Contains(strings.ToLower(ev.Description), needle) {
			byName = append(byName, ev)
		}
	}
	if len(byName) == 0 {
		return nil, nil
	}

	if phone != "" {
		for _, ev := range byName {
			desc := strings.NewReplacer("-", "", " ", "").Replace(ev.Description)
			if strings.Contains(desc, phone) {
				cp := *ev
				return &cp, nil
			}
		}
		return nil, nil
	}
	cp := *byName[0]
	return &cp, nil
}

func (m *MemoryScheduler) Reschedule(_ context.Context, eventID string, newStart time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[eventID]
	if !ok {
		return false, fmt.Errorf("calendar: event %s not found", eventID)
	}

	newEnd := newStart.Add(time.Duration(m.durationMin) * time.Minute)
	for id, other := range m.events {
		if id == eventID {
			continue
		}
		if newStart.Before(other.End) && other.Start.Before(newEnd) {
			return false, nil
		}
	}
	ev.Start = newStart
	ev.End = newEnd
	return true, nil
}

func (m *MemoryScheduler) Cancel(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[eventID]; !ok {
		return fmt.Errorf("calendar: event %s not found", eventID)
	}
	delete(m.events, eventID)
	return nil
}
