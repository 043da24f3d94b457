package conversation

import (
	"strings"
	"testing"
	"time"
)

func TestParseOracleResponseStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"intent\": \"book\", \"name\": \"Asha\", \"phone\": \"9876543210\", \"date\": \"\", \"time\": \"\", \"new_date\": \"\", \"new_time\": \"\", \"reason\": \"\"}\n```"
	resp, err := parseOracleResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Intent != "book" || resp.Name != "Asha" {
		t.Fatalf("parsed = %+v", resp)
	}
}

func TestParseOracleResponseToleratesProse(t *testing.T) {
	raw := "Sure! Here is the extraction:\n{\"intent\": \"cancel\", \"name\": \"\", \"phone\": \"\", \"date\": \"2026-03-11\", \"time\": \"\", \"new_date\": \"\", \"new_time\": \"\", \"reason\": \"\"}\nLet me know if you need anything else."
	resp, err := parseOracleResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Intent != "cancel" || resp.Date != "2026-03-11" {
		t.Fatalf("parsed = %+v", resp)
	}
}

func TestParseOracleResponseMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json at all", "{\"intent\": }", "```\n```"} {
		if _, err := parseOracleResponse(raw); err == nil {
			t.Errorf("parseOracleResponse(%q) should fail", raw)
		}
	}
}

func TestBuildExtractionPromptCarriesContext(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st := &State{
		Intent:   IntentReschedule,
		Name:     "Asha Rao",
		Awaiting: FieldNewDate,
	}

	prompt := buildExtractionPrompt("the 5th of March", st, now)

	for _, want := range []string{
		"2026-03-10",
		"Asha Rao",
		"new_date",
		"NOT 'date'",
		"the 5th of March",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
}
