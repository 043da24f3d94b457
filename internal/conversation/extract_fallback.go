package conversation

import (
	"regexp"
	"strings"
	"time"

	"github.com/smiledental/reception-agent/internal/normalize"
)

// ---------- package-level compiled regexes ----------

var (
	phoneRunRE  = regexp.MustCompile(`\d[\d\s]{7,}`)
	timeTokenRE = regexp.MustCompile(`(?i)\d{1,2}:\d{2}(?:\s*[ap]\.?m\.?)?|\d{1,2}\s*[ap]\.?m\.?`)

	newPatientRE       = regexp.MustCompile(`(?i)\bnew patient\b|\bfirst time\b|\bi'?m new\b|\bi am new\b|\bnever been\b|\bnew here\b`)
	returningPatientRE = regexp.MustCompile(`(?i)\breturning\b|\bexisting patient\b|\bold patient\b|\bbeen before\b|\bbeen there\b|\bvisited before\b|\bcome here before\b|\bregular patient\b`)

	affirmativeRE = regexp.MustCompile(`(?i)\b(yes|yeah|yep|yup|correct|right|confirm|confirmed|that'?s me|sure)\b`)
	negativeRE    = regexp.MustCompile(`(?i)\b(no|nope|nah|wrong|not me|incorrect)\b`)

	viewIntentRE = regexp.MustCompile(`(?i)\bview\b|\bmy appointments?\b|\bshow (?:me )?my\b|\blist\b|\bupcoming\b`)
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)my name is\s+([a-z][a-z\s'-]+)`),
	regexp.MustCompile(`(?i)\bi am\s+([a-z][a-z\s'-]+)`),
	regexp.MustCompile(`(?i)\bi'm\s+([a-z][a-z\s'-]+)`),
	regexp.MustCompile(`(?i)\bit'?s\s+([a-z][a-z\s'-]+)`),
	regexp.MustCompile(`(?i)\bthis is\s+([a-z][a-z\s'-]+)`),
	regexp.MustCompile(`(?i)([a-z][a-z\s'-]+)\s+speaking\b`),
}

// fallbackExtract is the deterministic extractor used when the oracle is
// unreachable or returns garbage. It shares the awaiting-field routing rule
// with the oracle path: if the agent asked for new_date, an extracted date is
// written to new_date, never date.
func fallbackExtract(utterance string, st *State, now time.Time) ExtractionResult {
	var res ExtractionResult

	awaiting := FieldNone
	if st != nil {
		awaiting = st.Awaiting
	}

	if intent := detectIntent(utterance); intent != IntentUnknown {
		res.Intent = Extracted(string(intent))
	}
	if pt := detectPatientType(utterance); pt != PatientUnknown {
		res.PatientType = Extracted(string(pt))
	}
	if id := CanonicalCustomerID(utterance); id != "" {
		res.CustomerID = Extracted(id)
	}

	// When the agent asked for the visit reason, the whole reply is the
	// reason; scanning it for dates or names would misfire.
	if awaiting == FieldReason {
		res.Reason = Extracted(utterance)
		return res
	}

	// Scan for everything regardless of the awaiting field; users routinely
	// answer several questions at once ("My name is Asha, phone 98765...").
	// The awaiting field only decides where ambiguous date/time values land.
	name := detectName(utterance)
	if name == "" && awaiting == FieldName && looksLikeBareName(utterance) {
		name = titleCase(utterance)
	}
	if name != "" {
		res.Name = Extracted(name)
	}

	// Digit runs consumed as a phone and the time token are both cut out
	// before date extraction, so spaced phone groups ("12 34 56 78 90") and
	// a bare "10 AM" cannot be misread as a day of the month.
	dateText := utterance
	if m := phoneRunRE.FindString(utterance); m != "" {
		res.Phone = Extracted(normalize.Phone(m))
		dateText = strings.Replace(dateText, m, " ", 1)
	}
	if m := timeTokenRE.FindString(utterance); m != "" {
		if t := normalize.Time(strings.ReplaceAll(strings.ReplaceAll(m, ".", ""), "  ", " ")); t != "" {
			if awaiting == FieldNewTime {
				res.NewTime = Extracted(t)
			} else {
				res.Time = Extracted(t)
			}
			dateText = strings.Replace(dateText, m, " ", 1)
		}
	}
	if date := normalize.Date(dateText, now); date != "" {
		if awaiting == FieldNewDate {
			res.NewDate = Extracted(date)
		} else {
			res.Date = Extracted(date)
		}
	}

	return res
}

// resolveClosedVocab answers the closed-vocabulary prompts (identity
// confirmation, patient type, customer id) with keyword matching before the
// oracle is even consulted; these are binary or enumerated answers where
// lightweight matching beats a general model. The second return value
// reports whether the utterance was handled.
func resolveClosedVocab(utterance string, awaiting Field) (ExtractionResult, bool) {
	var res ExtractionResult

	switch awaiting {
	case FieldCustomerConfirmation:
		if affirmativeRE.MatchString(utterance) {
			yes := true
			res.Confirmation = &yes
			return res, true
		}
		if negativeRE.MatchString(utterance) {
			no := false
			res.Confirmation = &no
			return res, true
		}
		return res, false

	case FieldPatientType:
		if pt := detectPatientType(utterance); pt != PatientUnknown {
			res.PatientType = Extracted(string(pt))
			return res, true
		}
		// single-word answers like "new" or "old"
		switch strings.Trim(strings.ToLower(strings.TrimSpace(utterance)), ".,!?") {
		case "new", "first time", "first-time":
			res.PatientType = Extracted(string(PatientNew))
			return res, true
		case "old", "existing", "returning", "not new":
			res.PatientType = Extracted(string(PatientReturning))
			return res, true
		}
		return res, false

	case FieldCustomerID:
		if id := CanonicalCustomerID(utterance); id != "" {
			res.CustomerID = Extracted(id)
			return res, true
		}
		return res, false
	}

	return res, false
}

func detectIntent(utterance string) Intent {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "reschedule"):
		return IntentReschedule
	case strings.Contains(lower, "cancel"):
		return IntentCancel
	case viewIntentRE.MatchString(lower):
		return IntentView
	case strings.Contains(lower, "book") || strings.Contains(lower, "appointment"):
		return IntentBook
	default:
		return IntentUnknown
	}
}

func detectPatientType(utterance string) PatientType {
	if newPatientRE.MatchString(utterance) {
		return PatientNew
	}
	if returningPatientRE.MatchString(utterance) {
		return PatientReturning
	}
	return PatientUnknown
}

func detectName(utterance string) string {
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(utterance); m != nil {
			name := strings.TrimSpace(m[1])
			// cut trailing clauses: "my name is Asha and my phone..."
			for _, sep := range []string{" and ", ",", "."} {
				if idx := strings.Index(strings.ToLower(name), sep); idx > 0 {
					name = name[:idx]
				}
			}
			name = strings.TrimSpace(name)
			if name != "" && !containsNonNameWord(name) {
				return titleCase(name)
			}
		}
	}
	return ""
}

// nonNameWords filters out phrases that match the name patterns but are
// clearly not names ("I'm calling to book", "I'm a new patient").
var nonNameWords = map[string]bool{
	"a": true, "an": true, "the": true, "new": true, "old": true,
	"patient": true, "calling": true, "here": true, "looking": true,
	"trying": true, "going": true, "booking": true, "book": true,
	"appointment": true, "cancel": true, "reschedule": true,
	"not": true, "sorry": true, "interested": true, "ready": true,
	"yes": true, "no": true, "okay": true, "ok": true, "thanks": true,
	"hello": true, "hi": true,
}

func containsNonNameWord(name string) bool {
	for _, w := range strings.Fields(strings.ToLower(name)) {
		if nonNameWords[w] {
			return true
		}
	}
	return false
}

// looksLikeBareName accepts short all-letter replies like "Asha Rao" when the
// agent just asked for a name.
func looksLikeBareName(utterance string) bool {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" || len(trimmed) > 60 {
		return false
	}
	words := strings.Fields(trimmed)
	if len(words) > 3 || containsNonNameWord(trimmed) {
		return false
	}
	for _, w := range words {
		for _, r := range w {
			if !(r == '\'' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
				return false
			}
		}
	}
	return true
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
