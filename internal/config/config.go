package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read once at startup.
type Config struct {
	ListenAddr     string
	DatabasePath   string
	MigrationsPath string

	JoinWindow       time.Duration
	RoomCodeWindow   time.Duration
	SweepInterval    time.Duration
	SweepBatch       int
	SweepConcurrency int

	SessionLifetime time.Duration
	AdminEmails     []string

	RedisURL      string
	EventsChannel string

	EvidenceBackend string
	EvidenceDir     string
	R2              R2Config

	LogLevel  string
	LogFormat string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

func Load() *Config {
	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		DatabasePath:   getEnv("DATABASE_PATH", "ludo.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		JoinWindow:       getEnvDuration("JOIN_WINDOW", 10*time.Minute),
		RoomCodeWindow:   getEnvDuration("ROOM_CODE_WINDOW", 5*time.Minute),
		SweepInterval:    getEnvDuration("EXPIRY_SWEEP_INTERVAL", 2*time.Second),
		SweepBatch:       getEnvInt("EXPIRY_SWEEP_BATCH", 200),
		SweepConcurrency: getEnvInt("SWEEP_CONCURRENCY", 4),

		SessionLifetime: getEnvDuration("SESSION_LIFETIME", 24*time.Hour),
		AdminEmails:     splitList(os.Getenv("ADMIN_EMAILS")),

		RedisURL:      os.Getenv("REDIS_URL"),
		EventsChannel: getEnv("EVENTS_CHANNEL", "match-events"),

		EvidenceBackend: getEnv("EVIDENCE_BACKEND", "local"),
		EvidenceDir:     getEnv("EVIDENCE_DIR", "uploads/evidence"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// IsAdminEmail reports whether email is on the ADMIN_EMAILS list.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, e := range c.AdminEmails {
		if strings.ToLower(e) == email {
			return true
		}
	}
	return false
}

// SlogLevel maps LOG_LEVEL onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
		slog.Warn("ignoring invalid integer env value", "key", key, "value", value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		slog.Warn("ignoring invalid duration env value", "key", key, "value", value)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
