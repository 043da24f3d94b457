package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CLINIC_TIMEZONE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ClinicTimezone != "Asia/Kolkata" {
		t.Fatalf("expected default timezone, got %s", cfg.ClinicTimezone)
	}
	if cfg.BookingWindowDays != 3 {
		t.Fatalf("expected default booking window, got %d", cfg.BookingWindowDays)
	}
	if cfg.OpeningHour != 9 || cfg.ClosingHour != 17 {
		t.Fatalf("expected default operating hours, got %d-%d", cfg.OpeningHour, cfg.ClosingHour)
	}
	if cfg.GeminiModelID != "gemini-2.5-flash" {
		t.Fatalf("expected default model, got %s", cfg.GeminiModelID)
	}
	if cfg.OracleTimeout != 20*time.Second {
		t.Fatalf("expected default oracle timeout, got %s", cfg.OracleTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CLINIC_TIMEZONE", "America/New_York")
	t.Setenv("APPOINTMENT_DURATION_MIN", "30")
	t.Setenv("BOOKING_WINDOW_DAYS", "7")
	t.Setenv("ORACLE_TIMEOUT", "5s")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected redis override, got %s", cfg.RedisAddr)
	}
	if cfg.ClinicTimezone != "America/New_York" {
		t.Fatalf("expected timezone override, got %s", cfg.ClinicTimezone)
	}
	if cfg.AppointmentDurationMin != 30 {
		t.Fatalf("expected duration override, got %d", cfg.AppointmentDurationMin)
	}
	if cfg.BookingWindowDays != 7 {
		t.Fatalf("expected window override, got %d", cfg.BookingWindowDays)
	}
	if cfg.OracleTimeout != 5*time.Second {
		t.Fatalf("expected oracle timeout override, got %s", cfg.OracleTimeout)
	}
}
