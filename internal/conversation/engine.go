package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smiledental/reception-agent/internal/calendar"
	"github.com/smiledental/reception-agent/internal/ledger"
	"github.com/smiledental/reception-agent/internal/observability/metrics"
	"github.com/smiledental/reception-agent/pkg/logging"
)

// Engine drives one conversation turn end to end: extract, merge, resolve
// the next missing field, and once nothing is missing, validate and dispatch
// the action. No turn outcome is fatal to the session.
type Engine struct {
	extractor *Extractor
	validator *Validator
	calendar  calendar.Scheduler
	ledger    ledger.Store
	logger    *logging.Logger
	metrics   *metrics.Conversation
	loc       *time.Location
	clinic    string
}

// NewEngine wires the turn pipeline. The calendar and ledger collaborators
// may not be nil; the metrics sink may be.
func NewEngine(extractor *Extractor, validator *Validator, cal calendar.Scheduler, led ledger.Store, logger *logging.Logger, m *metrics.Conversation, loc *time.Location, clinicName string) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if clinicName == "" {
		clinicName = "Smile Dental"
	}
	return &Engine{
		extractor: extractor,
		validator: validator,
		calendar:  cal,
		ledger:    led,
		logger:    logger,
		metrics:   m,
		loc:       loc,
		clinic:    clinicName,
	}
}

// Greeting opens a session.
func (e *Engine) Greeting() string {
	return fmt.Sprintf("Hello! Welcome to %s. How can I help you today?", e.clinic)
}

// Farewell closes a session, using the caller's name when known.
func (e *Engine) Farewell(st *State) string {
	if st != nil && st.Name != "" {
		return fmt.Sprintf("Thanks %s! Have a great day!", st.Name)
	}
	return fmt.Sprintf("Thanks for contacting %s. Goodbye!", e.clinic)
}

var exitWords = []string{"exit", "quit", "bye", "goodbye"}

// IsExitPhrase reports whether the utterance ends the session.
func IsExitPhrase(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, w := range exitWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

const apology = "Sorry, I had trouble with that. Could you repeat?"

// Turn processes one utterance against the session state and returns the
// agent's reply. State is mutated in place; it is reset only when a terminal
// action succeeds.
func (e *Engine) Turn(ctx context.Context, st *State, utterance string) string {
	res := e.extractor.Extract(ctx, utterance, st)

	if res.Confirmation != nil && st.Awaiting == FieldCustomerConfirmation {
		if reply, done := e.applyConfirmation(st, *res.Confirmation); done {
			return reply
		}
	}

	st.Merge(res)
	e.metrics.ObserveTurn(string(st.Intent))
	e.logger.Debug("turn merged",
		"intent", string(st.Intent),
		"awaiting", string(st.Awaiting),
		"customer_id", st.CustomerID)

	missing := MissingFields(st)
	if len(missing) > 0 {
		return e.promptNext(ctx, st, missing[0])
	}

	st.Awaiting = FieldNone
	switch st.Intent {
	case IntentReschedule:
		return e.dispatchReschedule(ctx, st)
	case IntentCancel:
		return e.dispatchCancel(ctx, st)
	case IntentView:
		return e.dispatchView(ctx, st)
	default:
		// An unstated intent is treated as a booking request.
		return e.dispatchBook(ctx, st)
	}
}

// applyConfirmation resolves a yes/no answer to the identity question. A
// denial discards the looked-up identity and restarts the patient-type
// question; the bool result reports whether the turn is fully handled.
func (e *Engine) applyConfirmation(st *State, confirmed bool) (string, bool) {
	if confirmed {
		st.CustomerConfirmed = true
		return "", false
	}
	st.CustomerID = ""
	st.Name = ""
	st.Phone = ""
	st.CustomerConfirmed = false
	st.PatientType = PatientUnknown
	st.Awaiting = FieldPatientType
	return "No problem, let's start over. " + PromptFor(FieldPatientType, st), true
}

// promptNext arms the awaiting field and returns its prompt. Asking for the
// identity confirmation carries the ledger-lookup side effect.
func (e *Engine) promptNext(ctx context.Context, st *State, next Field) string {
	if next == FieldCustomerConfirmation {
		return e.confirmIdentity(ctx, st)
	}
	st.Awaiting = next
	return PromptFor(next, st)
}

// confirmIdentity looks the claimed identifier up in the ledger. A hit
// pre-fills the contact details and asks for confirmation; on a miss the
// caller's name, when already given, resolves a mistyped identifier before
// the patient-type question restarts.
func (e *Engine) confirmIdentity(ctx context.Context, st *State) string {
	rec, err := e.ledger.GetCustomerByID(ctx, st.CustomerID)
	if err != nil {
		e.logger.Error("ledger lookup failed", "customer_id", st.CustomerID, "error", err)
		e.metrics.ObserveAction("identity_lookup", "error")
		return apology
	}
	if rec == nil && st.Name != "" {
		rec, err = e.ledger.GetCustomerByName(ctx, st.Name)
		if err != nil {
			e.logger.Error("ledger lookup failed", "name", st.Name, "error", err)
			e.metrics.ObserveAction("identity_lookup", "error")
			return apology
		}
	}
	if rec == nil {
		id := st.CustomerID
		st.CustomerID = ""
		st.PatientType = PatientUnknown
		st.Awaiting = FieldPatientType
		return fmt.Sprintf("I couldn't find a record for %s. %s", id, PromptFor(FieldPatientType, st))
	}

	st.CustomerID = rec.CustomerID
	if rec.Name != "" {
		st.Name = rec.Name
	}
	if rec.Phone != "" {
		st.Phone = rec.Phone
	}
	st.Awaiting = FieldCustomerConfirmation
	return fmt.Sprintf("I found a record for %s with phone %s. Is that you?", rec.Name, rec.Phone)
}

func (e *Engine) dispatchBook(ctx context.Context, st *State) string {
	start, verr := e.validator.ValidateSlot(st.Date, st.Time, FieldDate, FieldTime)
	if verr != nil {
		st.Awaiting = verr.Field
		return verr.Message
	}

	if st.PatientType != PatientReturning && st.CustomerID == "" {
		id, err := e.ledger.GenerateCustomerID(ctx)
		if err != nil {
			e.logger.Error("customer id generation failed", "error", err)
			e.metrics.ObserveAction("book", "error")
			return apology
		}
		st.CustomerID = id
	}

	created, err := e.calendar.CreateAppointment(ctx, st.Name, st.Phone, start, st.Reason, st.CustomerID)
	if err != nil {
		e.logger.Error("calendar create failed", "customer_id", st.CustomerID, "error", err)
		e.metrics.ObserveAction("book", "error")
		return apology
	}
	if created == nil {
		e.metrics.ObserveAction("book", "conflict")
		st.Awaiting = FieldTime
		return "That time slot is taken. Would you like to try a different time?"
	}

	// The calendar event already exists, so a ledger failure here is logged
	// and accepted rather than surfaced; a retry would double-book.
	if err := e.ledger.LogAppointment(ctx, ledger.Record{
		CustomerID: st.CustomerID,
		Name:       st.Name,
		Phone:      st.Phone,
		Date:       st.Date,
		Time:       st.Time,
		Reason:     st.Reason,
	}); err != nil {
		e.logger.Error("ledger log failed after booking", "customer_id", st.CustomerID, "event_id", created.EventID, "error", err)
	}

	e.metrics.ObserveAction("book", "success")
	reply := fmt.Sprintf("Perfect! Your appointment is confirmed for %s on %s at %s.", st.Name, st.Date, st.Time)
	if st.PatientType != PatientReturning {
		reply += fmt.Sprintf(" Your customer ID is %s, keep it handy for rescheduling or cancelling.", st.CustomerID)
	}
	reply += fmt.Sprintf(" We'll call you at %s if needed. See you then!", st.Phone)
	st.Reset()
	return reply
}

func (e *Engine) dispatchReschedule(ctx context.Context, st *State) string {
	event, err := e.calendar.FindAppointment(ctx, st.Name, st.Phone, st.Date)
	if err != nil {
		e.logger.Error("calendar search failed", "name", st.Name, "error", err)
		e.metrics.ObserveAction("reschedule", "error")
		return apology
	}
	if event == nil {
		e.metrics.ObserveAction("reschedule", "not_found")
		return fmt.Sprintf("I couldn't find an appointment for %s with phone %s on %s. Please check the details.", st.Name, st.Phone, st.Date)
	}

	newStart, verr := e.validator.ValidateSlot(st.NewDate, st.NewTime, FieldNewDate, FieldNewTime)
	if verr != nil {
		st.Awaiting = verr.Field
		return verr.Message
	}

	moved, err := e.calendar.Reschedule(ctx, event.ID, newStart)
	if err != nil {
		e.logger.Error("calendar reschedule failed", "event_id", event.ID, "error", err)
		e.metrics.ObserveAction("reschedule", "error")
		return apology
	}
	if !moved {
		e.metrics.ObserveAction("reschedule", "conflict")
		st.Awaiting = FieldNewTime
		return fmt.Sprintf("Sorry, %s at %s isn't available. Would you like to try another time?", st.NewDate, st.NewTime)
	}

	if st.CustomerID != "" {
		ok, err := e.ledger.UpdateAppointment(ctx, st.CustomerID, st.Date, st.Time, st.NewDate, st.NewTime)
		if err != nil || !ok {
			e.logger.Error("ledger update failed after reschedule", "customer_id", st.CustomerID, "error", err)
		}
	}

	e.metrics.ObserveAction("reschedule", "success")
	reply := fmt.Sprintf("Perfect! Your appointment has been rescheduled from %s at %s to %s at %s. See you then!", st.Date, st.Time, st.NewDate, st.NewTime)
	st.Reset()
	return reply
}

func (e *Engine) dispatchCancel(ctx context.Context, st *State) string {
	event, err := e.calendar.FindAppointment(ctx, st.Name, st.Phone, st.Date)
	if err != nil {
		e.logger.Error("calendar search failed", "name", st.Name, "error", err)
		e.metrics.ObserveAction("cancel", "error")
		return apology
	}
	if event == nil {
		e.metrics.ObserveAction("cancel", "not_found")
		return fmt.Sprintf("I couldn't find an appointment for %s with phone %s on %s. Please check the details.", st.Name, st.Phone, st.Date)
	}

	if err := e.calendar.Cancel(ctx, event.ID); err != nil {
		e.logger.Error("calendar cancel failed", "event_id", event.ID, "error", err)
		e.metrics.ObserveAction("cancel", "error")
		return apology
	}

	if st.CustomerID != "" {
		ok, err := e.ledger.DeleteAppointment(ctx, st.CustomerID, st.Date, st.Time)
		if err != nil || !ok {
			e.logger.Error("ledger clear failed after cancel", "customer_id", st.CustomerID, "error", err)
		}
	}

	e.metrics.ObserveAction("cancel", "success")
	reply := fmt.Sprintf("Your appointment on %s at %s has been cancelled. Is there anything else I can help you with?", st.Date, st.Time)
	st.Reset()
	return reply
}

func (e *Engine) dispatchView(ctx context.Context, st *State) string {
	if st.CustomerID == "" {
		st.Reset()
		return "I don't have a customer ID on record for you, so there are no appointments to show."
	}

	appts, err := e.ledger.AppointmentsByID(ctx, st.CustomerID)
	if err != nil {
		e.logger.Error("ledger list failed", "customer_id", st.CustomerID, "error", err)
		e.metrics.ObserveAction("view", "error")
		return apology
	}

	e.metrics.ObserveAction("view", "success")
	reply := e.formatAppointments(st.CustomerID, appts)
	st.Reset()
	return reply
}

func (e *Engine) formatAppointments(customerID string, appts []ledger.Record) string {
	var lines []string
	for _, a := range appts {
		if a.Date == "" && a.Time == "" {
			continue
		}
		line := fmt.Sprintf("%s at %s", a.Date, a.Time)
		if a.Reason != "" {
			line += fmt.Sprintf(" (%s)", a.Reason)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return fmt.Sprintf("I don't see any appointments on record for %s.", customerID)
	}
	return fmt.Sprintf("Here's what I have for %s: %s. Anything else?", customerID, strings.Join(lines, "; "))
}
