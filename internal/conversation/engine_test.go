package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smiledental/reception-agent/internal/calendar"
	"github.com/smiledental/reception-agent/internal/ledger"
)

// Tuesday noon; the booking window runs through Friday.
var engineNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) (*Engine, *calendar.MemoryScheduler, *ledger.MemoryStore) {
	t.Helper()
	clock := func() time.Time { return engineNow }

	ex := NewExtractor(nil, time.UTC, nil, nil).WithClock(clock)
	v := NewValidator(time.UTC, 3, 9, 17).WithClock(clock)
	cal := calendar.NewMemoryScheduler(time.UTC, 10)
	led := ledger.NewMemoryStore(time.UTC)

	return NewEngine(ex, v, cal, led, nil, nil, time.UTC, "Smile Dental"), cal, led
}

func TestEngineBookingEndToEnd(t *testing.T) {
	eng, _, led := testEngine(t)
	ctx := context.Background()
	st := NewState()

	turns := []struct {
		utterance string
		wantIn    string
	}{
		{"I'm a new patient", "What's your name?"},
		{"book an appointment", "What's your name?"},
		{"My name is Asha, phone 9876543210", "What date"},
		{"tomorrow at 10 AM", "reason"},
	}
	for _, turn := range turns {
		reply := eng.Turn(ctx, st, turn.utterance)
		if !strings.Contains(reply, turn.wantIn) {
			t.Fatalf("Turn(%q) = %q, want it to contain %q", turn.utterance, reply, turn.wantIn)
		}
	}

	reply := eng.Turn(ctx, st, "general checkup")
	if !strings.Contains(reply, "confirmed for Asha on 2026-03-11 at 10:00 AM") {
		t.Fatalf("final reply = %q, want a booking confirmation", reply)
	}
	if !strings.Contains(reply, "CUST001") {
		t.Fatalf("new patient confirmation should carry the generated id, got %q", reply)
	}
	if *st != (State{}) {
		t.Fatalf("state not reset after a successful booking: %+v", *st)
	}

	rec, err := led.GetCustomerByID(ctx, "CUST001")
	if err != nil || rec == nil {
		t.Fatalf("booking was not logged to the ledger: %+v, %v", rec, err)
	}
	if rec.Date != "2026-03-11" || rec.Time != "10:00 AM" || rec.Reason != "general checkup" {
		t.Fatalf("ledger row = %+v", rec)
	}
}

func TestEngineReturningPatientViewFlow(t *testing.T) {
	eng, _, led := testEngine(t)
	ctx := context.Background()

	seed := ledger.Record{CustomerID: "CUST001", Name: "Asha Rao", Phone: "9876543210", Date: "2026-03-12", Time: "2:00 PM", Reason: "filling"}
	if err := led.LogAppointment(ctx, seed); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	st := NewState()

	reply := eng.Turn(ctx, st, "show me my appointments")
	if !strings.Contains(reply, "new patient") {
		t.Fatalf("patient type must be asked first, got %q", reply)
	}

	reply = eng.Turn(ctx, st, "I'm an existing patient")
	if !strings.Contains(reply, "customer ID") {
		t.Fatalf("returning patient should be asked for an id, got %q", reply)
	}

	reply = eng.Turn(ctx, st, "cust 001")
	if !strings.Contains(reply, "Asha Rao") || !strings.Contains(reply, "9876543210") {
		t.Fatalf("identity lookup should pre-fill and ask to confirm, got %q", reply)
	}
	if st.Name != "Asha Rao" || st.Phone != "9876543210" {
		t.Fatalf("contact details not pre-filled: %+v", st)
	}

	reply = eng.Turn(ctx, st, "yes")
	if !strings.Contains(reply, "2026-03-12 at 2:00 PM") {
		t.Fatalf("view should list the ledger rows, got %q", reply)
	}
	if *st != (State{}) {
		t.Fatalf("state not reset after delivering the list: %+v", *st)
	}
}

func TestEngineUnknownCustomerIDRestartsPatientType(t *testing.T) {
	eng, _, _ := testEngine(t)
	ctx := context.Background()
	st := NewState()

	eng.Turn(ctx, st, "view my appointments")
	eng.Turn(ctx, st, "existing patient")
	reply := eng.Turn(ctx, st, "CUST999")

	if !strings.Contains(reply, "couldn't find a record for CUST999") {
		t.Fatalf("unknown id reply = %q", reply)
	}
	if st.CustomerID != "" {
		t.Fatalf("unknown id should be cleared, got %q", st.CustomerID)
	}
	if st.Awaiting != FieldPatientType || st.PatientType != PatientUnknown {
		t.Fatalf("flow should restart at patient type, got awaiting=%q type=%q", st.Awaiting, st.PatientType)
	}
}

func TestEngineMistypedIDResolvesByName(t *testing.T) {
	eng, _, led := testEngine(t)
	ctx := context.Background()

	if err := led.LogAppointment(ctx, ledger.Record{CustomerID: "CUST001", Name: "Asha Rao", Phone: "9876543210"}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	st := NewState()
	eng.Turn(ctx, st, "I'm Asha Rao, an existing patient and I want to cancel")
	reply := eng.Turn(ctx, st, "CUST042")

	if !strings.Contains(reply, "Asha Rao") || !strings.Contains(reply, "Is that you?") {
		t.Fatalf("name fallback should still ask to confirm, got %q", reply)
	}
	if st.CustomerID != "CUST001" {
		t.Fatalf("mistyped id should be replaced by the ledger's, got %q", st.CustomerID)
	}
	if st.Awaiting != FieldCustomerConfirmation {
		t.Fatalf("awaiting = %q, want the confirmation question", st.Awaiting)
	}
}

func TestEngineConfirmationDenialStartsOver(t *testing.T) {
	eng, _, led := testEngine(t)
	ctx := context.Background()

	if err := led.LogAppointment(ctx, ledger.Record{CustomerID: "CUST001", Name: "Asha Rao", Phone: "9876543210"}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	st := NewState()
	eng.Turn(ctx, st, "cancel my appointment")
	eng.Turn(ctx, st, "existing patient")
	eng.Turn(ctx, st, "CUST001")

	reply := eng.Turn(ctx, st, "no, that's not me")
	if !strings.Contains(reply, "start over") {
		t.Fatalf("denial reply = %q", reply)
	}
	if st.CustomerID != "" || st.Name != "" || st.Phone != "" {
		t.Fatalf("denied identity not discarded: %+v", st)
	}
	if st.Intent != IntentCancel {
		t.Fatalf("denial should keep the intent, got %q", st.Intent)
	}
}

func TestEngineValidationFailurePreservesState(t *testing.T) {
	eng, _, _ := testEngine(t)
	ctx := context.Background()
	st := NewState()

	eng.Turn(ctx, st, "I'm a new patient and I want to book")
	eng.Turn(ctx, st, "Asha Rao")
	eng.Turn(ctx, st, "9876543210")
	eng.Turn(ctx, st, "2026-03-20")
	eng.Turn(ctx, st, "10 AM")
	reply := eng.Turn(ctx, st, "checkup")

	if !strings.Contains(reply, "only book") {
		t.Fatalf("out-of-window reply = %q", reply)
	}
	if st.Name != "Asha Rao" || st.Phone != "9876543210" {
		t.Fatalf("validation failure must preserve state: %+v", st)
	}
	if st.Awaiting != FieldDate {
		t.Fatalf("awaiting should re-arm the offending date field, got %q", st.Awaiting)
	}

	// Correcting just the date completes the booking.
	reply = eng.Turn(ctx, st, "the 12th")
	if !strings.Contains(reply, "confirmed for Asha Rao on 2026-03-12 at 10:00 AM") {
		t.Fatalf("corrected booking reply = %q", reply)
	}
}

func TestEngineSlotConflictAsksForAnotherTime(t *testing.T) {
	eng, cal, _ := testEngine(t)
	ctx := context.Background()

	taken := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	if created, err := cal.CreateAppointment(ctx, "Ravi Kumar", "9123456780", taken, "cleaning", ""); err != nil || created == nil {
		t.Fatalf("seed calendar: %+v, %v", created, err)
	}

	st := NewState()
	eng.Turn(ctx, st, "I'm a new patient, book me in")
	eng.Turn(ctx, st, "Asha Rao")
	eng.Turn(ctx, st, "9876543210")
	eng.Turn(ctx, st, "tomorrow at 10 AM")
	reply := eng.Turn(ctx, st, "checkup")

	if !strings.Contains(reply, "slot is taken") {
		t.Fatalf("conflict reply = %q", reply)
	}
	if st.Awaiting != FieldTime {
		t.Fatalf("conflict should re-arm the time field, got %q", st.Awaiting)
	}

	reply = eng.Turn(ctx, st, "11 AM")
	if !strings.Contains(reply, "confirmed for Asha Rao on 2026-03-11 at 11:00 AM") {
		t.Fatalf("retry reply = %q", reply)
	}
}

func TestEngineRescheduleFlow(t *testing.T) {
	eng, cal, led := testEngine(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	if created, err := cal.CreateAppointment(ctx, "Asha Rao", "9876543210", start, "checkup", "CUST001"); err != nil || created == nil {
		t.Fatalf("seed calendar: %+v, %v", created, err)
	}
	if err := led.LogAppointment(ctx, ledger.Record{CustomerID: "CUST001", Name: "Asha Rao", Phone: "9876543210", Date: "2026-03-11", Time: "10:00 AM", Reason: "checkup"}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	st := NewState()
	eng.Turn(ctx, st, "I need to reschedule, I'm an existing patient")
	eng.Turn(ctx, st, "CUST001")
	eng.Turn(ctx, st, "yes")
	eng.Turn(ctx, st, "2026-03-11")
	eng.Turn(ctx, st, "10 AM")
	eng.Turn(ctx, st, "the 12th")
	reply := eng.Turn(ctx, st, "2 PM")

	if !strings.Contains(reply, "rescheduled from 2026-03-11 at 10:00 AM to 2026-03-12 at 2:00 PM") {
		t.Fatalf("reschedule reply = %q", reply)
	}
	if *st != (State{}) {
		t.Fatalf("state not reset after reschedule: %+v", *st)
	}

	rec, err := led.GetCustomerByID(ctx, "CUST001")
	if err != nil || rec == nil {
		t.Fatalf("ledger row missing: %v", err)
	}
	if rec.Date != "2026-03-12" || rec.Time != "2:00 PM" {
		t.Fatalf("ledger row not updated: %+v", rec)
	}

	moved, err := cal.FindAppointment(ctx, "Asha Rao", "9876543210", "2026-03-12")
	if err != nil || moved == nil {
		t.Fatalf("calendar event not moved: %+v, %v", moved, err)
	}
}

func TestEngineCancelNotFoundPreservesState(t *testing.T) {
	eng, _, _ := testEngine(t)
	ctx := context.Background()
	st := NewState()

	eng.Turn(ctx, st, "cancel my appointment, I'm a new patient")
	eng.Turn(ctx, st, "Asha Rao")
	eng.Turn(ctx, st, "9876543210")
	eng.Turn(ctx, st, "2026-03-11")
	reply := eng.Turn(ctx, st, "10 AM")

	if !strings.Contains(reply, "couldn't find an appointment") {
		t.Fatalf("not-found reply = %q", reply)
	}
	if st.Name != "Asha Rao" || st.Date != "2026-03-11" {
		t.Fatalf("not-found must preserve state for correction: %+v", st)
	}
}

func TestEngineExitPhrases(t *testing.T) {
	for _, phrase := range []string{"exit", "quit please", "bye!", "ok goodbye"} {
		if !IsExitPhrase(phrase) {
			t.Errorf("IsExitPhrase(%q) = false", phrase)
		}
	}
	if IsExitPhrase("book an appointment") {
		t.Error("booking request treated as an exit phrase")
	}
}

func TestEngineFarewellUsesName(t *testing.T) {
	eng, _, _ := testEngine(t)

	if got := eng.Farewell(&State{Name: "Asha"}); !strings.Contains(got, "Asha") {
		t.Fatalf("farewell = %q", got)
	}
	if got := eng.Farewell(NewState()); !strings.Contains(got, "Smile Dental") {
		t.Fatalf("anonymous farewell = %q", got)
	}
}
