package conversation

import (
	"context"
	"time"

	"github.com/smiledental/reception-agent/internal/normalize"
	"github.com/smiledental/reception-agent/internal/observability/metrics"
	"github.com/smiledental/reception-agent/pkg/logging"
)

// Extractor turns one utterance into a partial field set, using the NLU
// oracle when it cooperates and deterministic parsing when it does not. The
// current state is context: the awaiting field decides how ambiguous dates
// and times are routed.
type Extractor struct {
	oracle  LLMClient
	loc     *time.Location
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.Conversation
}

// NewExtractor creates an extractor. oracle may be nil, in which case every
// turn uses the deterministic fallback.
func NewExtractor(oracle LLMClient, loc *time.Location, logger *logging.Logger, m *metrics.Conversation) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{
		oracle:  oracle,
		loc:     loc,
		now:     func() time.Time { return time.Now().In(loc) },
		logger:  logger,
		metrics: m,
	}
}

// WithClock overrides the extractor's clock, for tests.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract produces the turn's partial field set.
func (e *Extractor) Extract(ctx context.Context, utterance string, st *State) ExtractionResult {
	awaiting := FieldNone
	if st != nil {
		awaiting = st.Awaiting
	}

	// Closed-vocabulary prompts are resolved by keyword matching before the
	// oracle is consulted; an unmatched reply falls through so corrections
	// like "no, my ID is CUST042" still get a full extraction pass.
	switch awaiting {
	case FieldCustomerConfirmation, FieldPatientType, FieldCustomerID:
		if res, ok := resolveClosedVocab(utterance, awaiting); ok {
			return res
		}
	}

	now := e.now()

	if e.oracle == nil {
		res := fallbackExtract(utterance, st, now)
		e.postProcess(&res, utterance, awaiting, now)
		return res
	}

	prompt := buildExtractionPrompt(utterance, st, now)
	started := time.Now()
	raw, err := e.oracle.Complete(ctx, prompt)
	e.metrics.ObserveOracleLatency(time.Since(started).Seconds())
	if err != nil {
		e.logger.Warn("oracle extraction failed, using fallback", "error", err)
		e.metrics.ObserveFallback()
		res := fallbackExtract(utterance, st, now)
		e.postProcess(&res, utterance, awaiting, now)
		return res
	}

	parsed, err := parseOracleResponse(raw)
	if err != nil {
		e.logger.Warn("oracle response unparsable, using fallback", "error", err)
		e.metrics.ObserveFallback()
		res := fallbackExtract(utterance, st, now)
		e.postProcess(&res, utterance, awaiting, now)
		return res
	}

	res := resultFromOracle(parsed)
	e.postProcess(&res, utterance, awaiting, now)
	return res
}

// resultFromOracle lifts the oracle's flat JSON into slots. The schema has no
// way to say "explicitly empty", so blank strings stay absent.
func resultFromOracle(o oracleResponse) ExtractionResult {
	var res ExtractionResult
	set := func(s *Slot, v string) {
		if sl := Extracted(v); sl.Known() {
			*s = sl
		}
	}
	set(&res.Intent, o.Intent)
	set(&res.Name, o.Name)
	set(&res.Phone, o.Phone)
	set(&res.Date, o.Date)
	set(&res.Time, o.Time)
	set(&res.NewDate, o.NewDate)
	set(&res.NewTime, o.NewTime)
	set(&res.Reason, o.Reason)
	return res
}

// postProcess applies the invariants no extraction path may skip: phones are
// digits only, dates and times must survive the normalizer, patient type and
// customer id keywords are always honored, and ambiguous slots are routed by
// the awaiting field. Oracle and fallback output go through the same code.
func (e *Extractor) postProcess(res *ExtractionResult, utterance string, awaiting Field, now time.Time) {
	if res.Phone.Present {
		digits := normalize.Phone(res.Phone.Value)
		if digits == "" {
			res.Phone = Slot{}
		} else {
			res.Phone = Extracted(digits)
		}
	}

	revalidateDate(&res.Date, utterance, now)
	revalidateDate(&res.NewDate, utterance, now)
	revalidateTime(&res.Time)
	revalidateTime(&res.NewTime)

	// Deterministic detections beat oracle omissions.
	if !res.PatientType.Known() {
		if pt := detectPatientType(utterance); pt != PatientUnknown {
			res.PatientType = Extracted(string(pt))
		}
	}
	if !res.CustomerID.Known() {
		if id := CanonicalCustomerID(utterance); id != "" {
			res.CustomerID = Extracted(id)
		}
	}

	routeForAwaiting(res, awaiting)

	// When the agent asked for the visit reason and nothing was extracted,
	// the whole reply is the reason.
	if awaiting == FieldReason && !res.Reason.Known() {
		res.Reason = Extracted(utterance)
	}
}

func revalidateDate(s *Slot, utterance string, now time.Time) {
	if !s.Present {
		return
	}
	if iso := normalize.Date(s.Value, now); iso != "" {
		*s = Extracted(iso)
		return
	}
	// the oracle mangled the value; retry against the raw utterance
	if iso := normalize.Date(utterance, now); iso != "" {
		*s = Extracted(iso)
		return
	}
	*s = Slot{}
}

func revalidateTime(s *Slot) {
	if !s.Present {
		return
	}
	if canonical := normalize.Time(s.Value); canonical != "" {
		*s = Extracted(canonical)
		return
	}
	*s = Slot{}
}

// routeForAwaiting is the single slot-routing rule shared by the oracle and
// fallback paths: which of the overloaded date/time slots an extracted value
// lands in is a function of the awaiting field alone, independent of whether
// the oracle complied with its instructions.
func routeForAwaiting(res *ExtractionResult, awaiting Field) {
	switch awaiting {
	case FieldNewDate:
		if res.Date.Known() && !res.NewDate.Known() {
			res.NewDate, res.Date = res.Date, Slot{}
		}
	case FieldNewTime:
		if res.Time.Known() && !res.NewTime.Known() {
			res.NewTime, res.Time = res.Time, Slot{}
		}
	case FieldDate:
		if res.NewDate.Known() && !res.Date.Known() {
			res.Date, res.NewDate = res.NewDate, Slot{}
		}
	case FieldTime:
		if res.NewTime.Known() && !res.Time.Known() {
			res.Time, res.NewTime = res.NewTime, Slot{}
		}
	}
}
