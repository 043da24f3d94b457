package conversation

import (
	"fmt"
	"time"
)

// ValidationError is a user-visible, field-specific failure. State is kept so
// the caller can correct just the offending field.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validator applies the business rules gating any calendar mutation: the
// booking window and the clinic's operating hours. Availability is the
// calendar collaborator's job and is checked at creation time.
type Validator struct {
	loc         *time.Location
	now         func() time.Time
	windowDays  int
	openingHour int
	closingHour int
}

// NewValidator builds a validator for the clinic's timezone and hours.
func NewValidator(loc *time.Location, windowDays, openingHour, closingHour int) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	if windowDays <= 0 {
		windowDays = 3
	}
	if closingHour <= openingHour {
		openingHour, closingHour = 9, 17
	}
	return &Validator{
		loc:         loc,
		now:         func() time.Time { return time.Now().In(loc) },
		windowDays:  windowDays,
		openingHour: openingHour,
		closingHour: closingHour,
	}
}

// WithClock overrides the validator's clock, for tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// ParseSlot combines a canonical date and time into one instant in the
// clinic's timezone.
func (v *Validator) ParseSlot(date, timeOfDay string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 3:04 PM", date+" "+timeOfDay, v.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("conversation: unparsable appointment slot %q %q: %w", date, timeOfDay, err)
	}
	return t, nil
}

// ValidateSlot runs the checks in fixed order, first failure short-circuits:
// parseability, booking window (today through today+windowDays inclusive,
// by calendar date), then operating hours (opening..closing exclusive upper
// bound, closed Sundays). The dateField/timeField arguments name the slots a
// corrective message should re-arm.
func (v *Validator) ValidateSlot(date, timeOfDay string, dateField, timeField Field) (time.Time, *ValidationError) {
	start, err := v.ParseSlot(date, timeOfDay)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   dateField,
			Message: "I couldn't make sense of that date and time. Could you give them once more?",
		}
	}

	now := v.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
	target := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, v.loc)
	windowEnd := today.AddDate(0, 0, v.windowDays)

	if target.Before(today) {
		return time.Time{}, &ValidationError{
			Field:   dateField,
			Message: fmt.Sprintf("That date has already passed. We can book from %s to %s.", today.Format("January 2"), windowEnd.Format("January 2")),
		}
	}
	if target.After(windowEnd) {
		return time.Time{}, &ValidationError{
			Field:   dateField,
			Message: fmt.Sprintf("We can only book appointments between %s and %s. Which day in that range works?", today.Format("January 2"), windowEnd.Format("January 2")),
		}
	}

	if start.Weekday() == time.Sunday {
		return time.Time{}, &ValidationError{
			Field:   dateField,
			Message: "We're closed on Sundays. Could you pick another day?",
		}
	}
	if start.Hour() < v.openingHour || start.Hour() >= v.closingHour {
		return time.Time{}, &ValidationError{
			Field:   timeField,
			Message: fmt.Sprintf("We're open %s to %s. What time in that range suits you?", formatHour(v.openingHour), formatHour(v.closingHour)),
		}
	}

	return start, nil
}

func formatHour(h int) string {
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}
