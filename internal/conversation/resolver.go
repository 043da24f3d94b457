package conversation

import "fmt"

// requiredFields is the decision table for what a fully-specified request
// needs, keyed by intent and patient type. Order matters: the agent asks for
// the first missing field in declaration order, never for everything at once.
func requiredFields(intent Intent, patientType PatientType) []Field {
	// an unstated intent is treated as a booking in progress
	if intent == IntentUnknown {
		intent = IntentBook
	}

	switch intent {
	case IntentBook:
		return []Field{FieldName, FieldPhone, FieldDate, FieldTime, FieldReason}
	case IntentReschedule:
		return []Field{FieldName, FieldPhone, FieldDate, FieldTime, FieldNewDate, FieldNewTime}
	case IntentCancel:
		if patientType == PatientReturning {
			return []Field{FieldName, FieldCustomerID, FieldDate, FieldTime}
		}
		return []Field{FieldName, FieldPhone, FieldDate, FieldTime}
	case IntentView:
		// a confirmed customer id is all a listing needs
		return nil
	default:
		return nil
	}
}

// MissingFields returns the ordered list of fields still needed before the
// intent can be dispatched. Patient type gates everything; returning patients
// must then identify and confirm before the per-intent table applies.
func MissingFields(st *State) []Field {
	if st.PatientType == PatientUnknown {
		return []Field{FieldPatientType}
	}

	if st.PatientType == PatientReturning {
		if st.CustomerID == "" {
			return []Field{FieldCustomerID}
		}
		if !st.CustomerConfirmed {
			return []Field{FieldCustomerConfirmation}
		}
	}

	var missing []Field
	for _, f := range requiredFields(st.Intent, st.PatientType) {
		if !st.FieldKnown(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// PromptFor maps a field to the question the agent asks for it. The mapping
// is total over the Field enum; an unhandled value is a programming error.
func PromptFor(f Field, st *State) string {
	switch f {
	case FieldPatientType:
		return "Are you a new patient, or have you visited us before?"
	case FieldCustomerID:
		return "Could you share your customer ID? It looks like CUST followed by three digits."
	case FieldCustomerConfirmation:
		// the engine builds the identity-specific question after the ledger
		// lookup; this is the generic re-prompt
		return "Can you confirm that's you? A simple yes or no works."
	case FieldName:
		return "What's your name?"
	case FieldPhone:
		if st != nil && st.Name != "" {
			return fmt.Sprintf("Great %s! What's your phone number?", st.Name)
		}
		return "What's your phone number?"
	case FieldDate:
		if st != nil && (st.Intent == IntentReschedule || st.Intent == IntentCancel) {
			return "What date is your existing appointment?"
		}
		return "What date would you like to come in?"
	case FieldTime:
		if st != nil && (st.Intent == IntentReschedule || st.Intent == IntentCancel) {
			return "What time is your existing appointment?"
		}
		return "What time works for you?"
	case FieldNewDate:
		return "What's the new date you'd like?"
	case FieldNewTime:
		return "What's the new time you'd like?"
	case FieldReason:
		return "What's the reason for your visit?"
	case FieldNone:
		return "How can I help you today?"
	default:
		panic(fmt.Sprintf("conversation: no prompt for field %q", f))
	}
}
