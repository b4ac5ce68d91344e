package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"staffhub/internal/domain/attendance"
)

type Config struct {
	Addr                 string
	DatabaseURL          string
	JWTSecret            string
	DataEncryptionKey    string
	Environment          string
	LogLevel             string
	RunMigrations        bool
	MigrationsDir        string
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	AutoValidateInterval time.Duration
	MissingPunchInterval time.Duration
	MetricsEnabled       bool
	SlackBotToken        string
	SlackAlertChannel    string
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPUseTLS           bool
	AlertEmailFrom       string
	AlertEmailTo         string
	DefaultLocale        string
	PolicyFile           string
	Attendance           attendance.Policy
}

// Load reads the environment. The attendance policy starts from the defaults,
// then the optional policy file, then ATTENDANCE_* variables.
func Load() (Config, error) {
	cfg := Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		DataEncryptionKey:    getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:          getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AutoValidateInterval: getEnvDuration("AUTO_VALIDATE_INTERVAL", 15*time.Minute),
		MissingPunchInterval: getEnvDuration("MISSING_PUNCH_INTERVAL", time.Hour),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		SlackBotToken:        getEnv("SLACK_BOT_TOKEN", ""),
		SlackAlertChannel:    getEnv("SLACK_ALERT_CHANNEL", ""),
		EmailEnabled:         getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:           getEnvBool("SMTP_USE_TLS", true),
		AlertEmailFrom:       getEnv("ALERT_EMAIL_FROM", "no-reply@staffhub.local"),
		AlertEmailTo:         getEnv("ALERT_EMAIL_TO", ""),
		DefaultLocale:        getEnv("DEFAULT_LOCALE", "it"),
		PolicyFile:           getEnv("ATTENDANCE_POLICY_FILE", ""),
	}

	policy := attendance.DefaultPolicy()
	if cfg.PolicyFile != "" {
		var err error
		policy, err = LoadPolicyFile(cfg.PolicyFile, policy)
		if err != nil {
			return Config{}, err
		}
	}
	cfg.Attendance = policyFromEnv(policy)
	return cfg, nil
}

func policyFromEnv(p attendance.Policy) attendance.Policy {
	p.Tolerance = getEnvMinutes("ATTENDANCE_TOLERANCE_MINUTES", p.Tolerance)
	p.AutoApproveTolerance = getEnvMinutes("ATTENDANCE_AUTO_APPROVE_TOLERANCE_MINUTES", p.AutoApproveTolerance)
	p.OvertimeThreshold = getEnvMinutes("ATTENDANCE_OVERTIME_THRESHOLD_MINUTES", p.OvertimeThreshold)
	p.ReviewAfter = getEnvDuration("ATTENDANCE_REVIEW_AFTER", p.ReviewAfter)
	p.SelfResolveWindow = getEnvDuration("ATTENDANCE_SELF_RESOLVE_WINDOW", p.SelfResolveWindow)
	p.MaxWeeklyHours = getEnvFloat("ATTENDANCE_MAX_WEEKLY_HOURS", p.MaxWeeklyHours)
	p.WellbeingWarnFraction = getEnvFloat("ATTENDANCE_WELLBEING_WARNING_FRACTION", p.WellbeingWarnFraction)
	p.WeeklyOvertimeAlert = getEnvMinutes("ATTENDANCE_WEEKLY_OVERTIME_ALERT_MINUTES", p.WeeklyOvertimeAlert)
	p.MissingPunchGrace = getEnvDuration("ATTENDANCE_MISSING_PUNCH_GRACE", p.MissingPunchGrace)
	p.GeofenceRadiusMeters = getEnvFloat("ATTENDANCE_GEOFENCE_RADIUS_METERS", p.GeofenceRadiusMeters)
	return p
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvMinutes(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return time.Duration(parsed) * time.Minute
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.AutoValidateInterval <= 0 {
		return fmt.Errorf("AUTO_VALIDATE_INTERVAL must be positive")
	}
	if c.MissingPunchInterval <= 0 {
		return fmt.Errorf("MISSING_PUNCH_INTERVAL must be positive")
	}
	if c.SlackBotToken != "" && c.SlackAlertChannel == "" {
		return fmt.Errorf("SLACK_ALERT_CHANNEL must be set when SLACK_BOT_TOKEN is set")
	}
	if c.EmailEnabled && (strings.TrimSpace(c.SMTPHost) == "" || strings.TrimSpace(c.AlertEmailTo) == "") {
		return fmt.Errorf("SMTP_HOST and ALERT_EMAIL_TO must be set when EMAIL_ENABLED is true")
	}
	if c.DefaultLocale != "it" && c.DefaultLocale != "en" {
		return fmt.Errorf("DEFAULT_LOCALE must be one of it, en")
	}
	return c.Attendance.Validate()
}
