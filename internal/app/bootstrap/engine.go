package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smiledental/reception-agent/internal/calendar"
	appconfig "github.com/smiledental/reception-agent/internal/config"
	"github.com/smiledental/reception-agent/internal/conversation"
	"github.com/smiledental/reception-agent/internal/ledger"
	"github.com/smiledental/reception-agent/internal/observability/metrics"
	"github.com/smiledental/reception-agent/pkg/logging"
)

// oracleWithTimeout caps each oracle completion so a slow NLU call degrades
// into the deterministic fallback instead of stalling the turn.
type oracleWithTimeout struct {
	inner   conversation.LLMClient
	timeout time.Duration
}

func (o oracleWithTimeout) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.inner.Complete(ctx, prompt)
}

// BuildEngine assembles the conversation engine from config. The returned
// cleanup releases the oracle client and must be called on shutdown.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, m *metrics.Conversation) (*conversation.Engine, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: load clinic timezone %q: %w", cfg.ClinicTimezone, err)
	}

	cleanup := func() {}

	var oracle conversation.LLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		oracle = oracleWithTimeout{inner: gemini, timeout: cfg.OracleTimeout}
		cleanup = func() {
			if err := gemini.Close(); err != nil {
				logger.Warn("failed to close gemini client", "error", err)
			}
		}
		logger.Info("NLU oracle enabled", "model", cfg.GeminiModelID)
	} else {
		logger.Warn("no GEMINI_API_KEY configured, using deterministic extraction only")
	}

	extractor := conversation.NewExtractor(oracle, loc, logger, m)
	validator := conversation.NewValidator(loc, cfg.BookingWindowDays, cfg.OpeningHour, cfg.ClosingHour)

	var cal calendar.Scheduler
	if strings.TrimSpace(cfg.GoogleCredentialsFile) != "" {
		cal, err = calendar.NewGoogleScheduler(ctx, cfg.GoogleCredentialsFile, cfg.CalendarID, loc, cfg.AppointmentDurationMin)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("bootstrap: google calendar: %w", err)
		}
		logger.Info("google calendar enabled", "calendar_id", cfg.CalendarID)
	} else {
		logger.Warn("no google credentials configured, appointments use an in-memory calendar")
		cal = calendar.NewMemoryScheduler(loc, cfg.AppointmentDurationMin)
	}

	var led ledger.Store
	if strings.TrimSpace(cfg.GoogleCredentialsFile) != "" && strings.TrimSpace(cfg.SpreadsheetID) != "" {
		led, err = ledger.NewSheetsStore(ctx, cfg.GoogleCredentialsFile, cfg.SpreadsheetID, cfg.LedgerSheetName, loc)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("bootstrap: google sheets: %w", err)
		}
		logger.Info("google sheets ledger enabled", "sheet", cfg.LedgerSheetName)
	} else {
		logger.Warn("no spreadsheet configured, customer records use an in-memory ledger")
		led = ledger.NewMemoryStore(loc)
	}

	engine := conversation.NewEngine(extractor, validator, cal, led, logger, m, loc, cfg.ClinicName)
	return engine, cleanup, nil
}
