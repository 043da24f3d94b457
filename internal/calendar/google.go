package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleScheduler implements Scheduler against the Google Calendar API.
type GoogleScheduler struct {
	svc         *gcal.Service
	calendarID  string
	loc         *time.Location
	durationMin int
}

// NewGoogleScheduler builds a scheduler from a service-account credentials
// file. calendarID defaults to "primary".
func NewGoogleScheduler(ctx context.Context, credentialsFile, calendarID string, loc *time.Location, durationMin int) (*GoogleScheduler, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("calendar: google credentials file is required")
	}
	if strings.TrimSpace(calendarID) == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	if durationMin <= 0 {
		durationMin = 10
	}

	svc, err := gcal.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(gcal.CalendarScope))
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create google calendar service: %w", err)
	}

	return &GoogleScheduler{
		svc:         svc,
		calendarID:  calendarID,
		loc:         loc,
		durationMin: durationMin,
	}, nil
}

// IsAvailable reports whether no event overlaps [start, end).
func (g *GoogleScheduler) IsAvailable(ctx context.Context, start, end time.Time) (bool, error) {
	events, err := g.svc.Events.List(g.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("calendar: availability check failed: %w", err)
	}
	return len(events.Items) == 0, nil
}

// CreateAppointment writes the event after a final availability check.
// A (nil, nil) return means the slot was taken.
func (g *GoogleScheduler) CreateAppointment(ctx context.Context, name, phone string, start time.Time, reason, customerID string) (*Created, error) {
	end := start.Add(time.Duration(g.durationMin) * time.Minute)
	free, err := g.IsAvailable(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, nil
	}

	event := &gcal.Event{
		Summary:     "Dental - " + name,
		Description: eventDescription(name, phone, reason, customerID),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: g.loc.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: g.loc.String()},
	}
	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create appointment: %w", err)
	}
	return &Created{EventID: created.Id, Link: created.HtmlLink}, nil
}

// FindAppointment searches the given day by name, then narrows by phone
// digits appearing in the event description when a phone is supplied.
func (g *GoogleScheduler) FindAppointment(ctx context.Context, name, phone, date string) (*Event, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", date, g.loc)
	if err != nil {
		return nil, fmt.Errorf("calendar: invalid appointment date %q: %w", date, err)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := g.svc.Events.List(g.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		Q(name).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: appointment search failed: %w", err)
	}
	if len(events.Items) == 0 {
		return nil, nil
	}

	if phone != "" {
		for _, item := range events.Items {
			desc := strings.NewReplacer("-", "", " ", "").Replace(item.Description)
			if strings.Contains(desc, phone) {
				return fromGoogleEvent(item), nil
			}
		}
		return nil, nil
	}
	return fromGoogleEvent(events.Items[0]), nil
}

// Reschedule moves an event to a new start, keeping its duration fixed.
// Returns false when the new slot is occupied.
func (g *GoogleScheduler) Reschedule(ctx context.Context, eventID string, newStart time.Time) (bool, error) {
	newEnd := newStart.Add(time.Duration(g.durationMin) * time.Minute)
	free, err := g.IsAvailable(ctx, newStart, newEnd)
	if err != nil {
		return false, err
	}
	if !free {
		return false, nil
	}

	event, err := g.svc.Events.Get(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("calendar: failed to load event %s: %w", eventID, err)
	}
	event.Start.DateTime = newStart.Format(time.RFC3339)
	event.End.DateTime = newEnd.Format(time.RFC3339)
	if _, err := g.svc.Events.Update(g.calendarID, eventID, event).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("calendar: failed to reschedule event %s: %w", eventID, err)
	}
	return true, nil
}

// Cancel deletes the event.
func (g *GoogleScheduler) Cancel(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: failed to cancel event %s: %w", eventID, err)
	}
	return nil
}

func eventDescription(name, phone, reason, customerID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s\nPhone: %s\nReason: %s", name, phone, reason)
	if customerID != "" {
		fmt.Fprintf(&b, "\nCustomer ID: %s", customerID)
	}
	return b.String()
}

func fromGoogleEvent(item *gcal.Event) *Event {
	ev := &Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Link:        item.HtmlLink,
	}
	if item.Start != nil {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			ev.Start = t
		}
	}
	if item.End != nil {
		if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			ev.End = t
		}
	}
	return ev
}
