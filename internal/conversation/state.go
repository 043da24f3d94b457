package conversation

import (
	"regexp"
	"strings"
)

// Intent is the caller's high-level goal for the conversation.
type Intent string

const (
	IntentUnknown    Intent = ""
	IntentBook       Intent = "book"
	IntentReschedule Intent = "reschedule"
	IntentCancel     Intent = "cancel"
	IntentView       Intent = "view_appointments"
)

// PatientType distinguishes first-time callers from returning patients.
type PatientType string

const (
	PatientUnknown   PatientType = ""
	PatientNew       PatientType = "new"
	PatientReturning PatientType = "old"
)

// Field enumerates every slot the agent can solicit. The prompt table in
// resolver.go is total over this set.
type Field string

const (
	FieldNone                 Field = ""
	FieldPatientType          Field = "patient_type"
	FieldCustomerID           Field = "customer_id"
	FieldCustomerConfirmation Field = "customer_confirmation"
	FieldName                 Field = "name"
	FieldPhone                Field = "phone"
	FieldDate                 Field = "date"
	FieldTime                 Field = "time"
	FieldNewDate              Field = "new_date"
	FieldNewTime              Field = "new_time"
	FieldReason               Field = "reason"
)

var customerIDRE = regexp.MustCompile(`(?i)\bCUST\s*(\d{3})\b`)

// CanonicalCustomerID extracts and upper-cases a CUSTnnn identifier from raw
// text, or returns "" when none is present.
func CanonicalCustomerID(raw string) string {
	m := customerIDRE.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return "CUST" + m[1]
}

// State is the accumulated belief about one conversation session. Fields only
// move from unknown to known, or known to a different known value; a merge
// never clears anything.
type State struct {
	Intent      Intent      `json:"intent"`
	PatientType PatientType `json:"patient_type"`
	CustomerID  string      `json:"customer_id"`

	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`

	// Date and Time identify the appointment being acted on. For reschedule
	// and cancel this is the existing appointment; for book it is the target.
	Date string `json:"date"`
	Time string `json:"time"`

	// NewDate and NewTime are the target slot, reschedule only.
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`

	// CustomerConfirmed is set once a returning patient has affirmed the
	// identity looked up from the ledger.
	CustomerConfirmed bool `json:"customer_confirmed"`

	// Awaiting is the single field the agent just prompted for, if any.
	Awaiting Field `json:"awaiting_field"`
}

// NewState returns the empty state a session starts with.
func NewState() *State {
	return &State{}
}

// Reset clears everything. Called after a terminal action succeeds or on an
// explicit reset request, never on validation failure.
func (s *State) Reset() {
	*s = State{}
}

// Slot is a per-turn extraction value with an explicit presence marker, so
// "not mentioned this turn" is distinguishable from "explicitly empty".
type Slot struct {
	Present bool
	Value   string
}

// Extracted wraps a value the extractor produced this turn. Whitespace-only
// values become explicitly-empty.
func Extracted(v string) Slot {
	return Slot{Present: true, Value: strings.TrimSpace(v)}
}

// Known reports whether the slot carries a usable value.
func (s Slot) Known() bool {
	return s.Present && s.Value != ""
}

// ExtractionResult is the per-turn output of the extractor. Every field
// defaults to absent; merging an all-absent result is a no-op.
type ExtractionResult struct {
	Intent      Slot
	PatientType Slot
	CustomerID  Slot
	Name        Slot
	Phone       Slot
	Reason      Slot
	Date        Slot
	Time        Slot
	NewDate     Slot
	NewTime     Slot

	// Confirmation carries the outcome of a closed-vocabulary identity
	// confirmation: nil when the turn was not a confirmation answer.
	Confirmation *bool
}

// Merge folds a turn's extraction into the state. Only present, non-empty
// values overwrite; everything else is left alone. CustomerID is immutable
// once assigned.
func (s *State) Merge(r ExtractionResult) {
	if r.Intent.Known() {
		if intent := ParseIntent(r.Intent.Value); intent != IntentUnknown {
			s.Intent = intent
		}
	}
	if r.PatientType.Known() {
		if pt := ParsePatientType(r.PatientType.Value); pt != PatientUnknown {
			s.PatientType = pt
		}
	}
	if r.CustomerID.Known() && s.CustomerID == "" {
		if id := CanonicalCustomerID(r.CustomerID.Value); id != "" {
			s.CustomerID = id
		}
	}
	if r.Name.Known() {
		s.Name = r.Name.Value
	}
	if r.Phone.Known() {
		s.Phone = r.Phone.Value
	}
	if r.Reason.Known() {
		s.Reason = r.Reason.Value
	}
	if r.Date.Known() {
		s.Date = r.Date.Value
	}
	if r.Time.Known() {
		s.Time = r.Time.Value
	}
	if r.NewDate.Known() {
		s.NewDate = r.NewDate.Value
	}
	if r.NewTime.Known() {
		s.NewTime = r.NewTime.Value
	}
}

// FieldKnown reports whether the state already holds a value for a slot.
func (s *State) FieldKnown(f Field) bool {
	switch f {
	case FieldPatientType:
		return s.PatientType != PatientUnknown
	case FieldCustomerID:
		return s.CustomerID != ""
	case FieldCustomerConfirmation:
		return s.CustomerConfirmed
	case FieldName:
		return s.Name != ""
	case FieldPhone:
		return s.Phone != ""
	case FieldDate:
		return s.Date != ""
	case FieldTime:
		return s.Time != ""
	case FieldNewDate:
		return s.NewDate != ""
	case FieldNewTime:
		return s.NewTime != ""
	case FieldReason:
		return s.Reason != ""
	default:
		return false
	}
}

// ParseIntent maps free-form intent labels onto the enum.
func ParseIntent(raw string) Intent {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "book", "booking":
		return IntentBook
	case "reschedule", "rescheduling":
		return IntentReschedule
	case "cancel", "cancellation":
		return IntentCancel
	case "view_appointments", "view", "list":
		return IntentView
	default:
		return IntentUnknown
	}
}

// ParsePatientType maps free-form patient-type labels onto the enum.
func ParsePatientType(raw string) PatientType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "new":
		return PatientNew
	case "old", "existing", "returning":
		return PatientReturning
	default:
		return PatientUnknown
	}
}
