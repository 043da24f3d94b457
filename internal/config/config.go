package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Gemini NLU oracle
	GeminiAPIKey  string
	GeminiModelID string
	OracleTimeout time.Duration

	// Google Calendar / Sheets collaborators
	GoogleCredentialsFile string
	CalendarID            string
	SpreadsheetID         string
	LedgerSheetName       string

	// Clinic business rules
	ClinicTimezone         string
	ClinicName             string
	AppointmentDurationMin int
	BookingWindowDays      int
	OpeningHour            int
	ClosingHour            int

	CORSAllowedOrigins string
	RateLimitPerSec    int
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		OracleTimeout: getEnvAsDuration("ORACLE_TIMEOUT", 20*time.Second),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		CalendarID:            getEnv("CALENDAR_ID", "primary"),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		LedgerSheetName:       getEnv("LEDGER_SHEET_NAME", "Customers"),

		ClinicTimezone:         getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
		ClinicName:             getEnv("CLINIC_NAME", "Smile Dental"),
		AppointmentDurationMin: getEnvAsInt("APPOINTMENT_DURATION_MIN", 10),
		BookingWindowDays:      getEnvAsInt("BOOKING_WINDOW_DAYS", 3),
		OpeningHour:            getEnvAsInt("OPENING_HOUR", 9),
		ClosingHour:            getEnvAsInt("CLOSING_HOUR", 17),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		RateLimitPerSec:    getEnvAsInt("RATE_LIMIT_PER_SEC", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
