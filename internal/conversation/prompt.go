package conversation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// buildExtractionPrompt assembles the oracle prompt for one utterance: the
// instructions, today's date, the current state as a disambiguation aid, and
// an explicit note about which single field is being solicited and which slot
// the answer belongs in. The awaiting hint is what lets the oracle tell the
// OLD appointment date apart from the NEW one.
func buildExtractionPrompt(utterance string, st *State, now time.Time) string {
	var b strings.Builder

	b.WriteString(`You are a dental appointment assistant. Extract booking information from user input.

CRITICAL INSTRUCTIONS:
1. Identify intent: "book", "reschedule", "cancel" or "view_appointments"
2. Convert ANY date format to YYYY-MM-DD
3. Convert ANY time format to 12-hour format with AM/PM (e.g., "11:00 AM")
4. Extract phone numbers (remove spaces, keep only digits)
5. Extract names (handle variations like "my name is X", "I'm X", "it's X", "X speaking")
6. If user only provides partial info (just name, just phone), extract what's there
7. For RESCHEDULE: extract both OLD appointment info (date/time) AND NEW appointment info (new_date/new_time)
`)

	fmt.Fprintf(&b, "\nCurrent context:\n- Today: %s\n- Current year: %d\n",
		now.Format("2006-01-02"), now.Year())

	if st != nil {
		if stateJSON, err := json.MarshalIndent(st, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nCurrent conversation state: %s\n", stateJSON)
		}
	}

	if st != nil && st.Awaiting != FieldNone {
		fmt.Fprintf(&b, "\nIMPORTANT: The user is currently being asked for '%s'. Map their response to this field.", st.Awaiting)
		switch st.Awaiting {
		case FieldNewDate:
			b.WriteString(" Put the date in 'new_date', NOT 'date'.")
		case FieldNewTime:
			b.WriteString(" Put the time in 'new_time', NOT 'time'.")
		case FieldDate:
			b.WriteString(" This is the OLD appointment date for reschedule/cancel.")
		case FieldTime:
			b.WriteString(" This is the OLD appointment time for reschedule/cancel.")
		}
		b.WriteString("\n")
	}

	b.WriteString(`
IMPORTANT: Extract ALL available information, even if incomplete.

Return ONLY this JSON (no markdown, no explanation):
{
  "intent": "book/reschedule/cancel/view_appointments or empty",
  "name": "extracted name or empty",
  "phone": "digits only, no spaces",
  "date": "YYYY-MM-DD or empty (OLD appointment date for reschedule/cancel)",
  "time": "HH:MM AM/PM or empty (OLD appointment time for reschedule/cancel)",
  "new_date": "YYYY-MM-DD or empty (NEW date for reschedule)",
  "new_time": "HH:MM AM/PM or empty (NEW time for reschedule)",
  "reason": "extracted reason or empty"
}

User: `)
	b.WriteString(utterance)
	return b.String()
}

// oracleResponse is the fixed JSON schema the oracle must produce.
type oracleResponse struct {
	Intent  string `json:"intent"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
	Reason  string `json:"reason"`
}

var (
	codeFenceOpenRE  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	codeFenceCloseRE = regexp.MustCompile("```\\s*$")
)

// parseOracleResponse strips code-fence markup and decodes the one JSON
// object the oracle is expected to emit. A malformed body is a parse failure
// the caller recovers from, not a fatal error.
func parseOracleResponse(raw string) (oracleResponse, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = codeFenceOpenRE.ReplaceAllString(cleaned, "")
	cleaned = codeFenceCloseRE.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	// Tolerate prose around the object by slicing to the outermost braces.
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var resp oracleResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return oracleResponse{}, fmt.Errorf("conversation: oracle response is not valid JSON: %w", err)
	}
	return resp, nil
}
