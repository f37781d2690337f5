// Package config loads runtime settings from the environment (optionally
// seeded from a .env file) and holds the escalation and notification defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration of the portal.
type Config struct {
	Env      string
	HTTPAddr string
	GinMode  string

	DatabaseURL string
	DebugSQL    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	InstitutionDomain string
	SuperAdminEmails  []string
	VIPMailboxes      map[string]string

	// EnforceDepartmentOnClaim restricts scoped admins to claiming complaints
	// of their own department. Off by default: any admin may claim anything.
	EnforceDepartmentOnClaim bool
	// BroadcastAll mirrors every event onto the broadcast topic.
	BroadcastAll bool

	PriorityBumpInterval time.Duration
	PriorityBumpAfter    time.Duration
	EscalationInterval   time.Duration
	EscalationAfter      time.Duration

	TelegramBotToken string
	TelegramChatID   int64
	NotifyLang       string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	envErr := godotenv.Load()

	cfg := &Config{
		Env:                      getenv("ENV", "production"),
		HTTPAddr:                 getenv("HTTP_ADDR", ":4000"),
		GinMode:                  os.Getenv("GIN_MODE"),
		DatabaseURL:              getenv("DATABASE_URL", "postgres://localhost:5432/complaint_portal?sslmode=disable"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		InstitutionDomain:        strings.ToLower(getenv("INSTITUTION_DOMAIN", "nitjsr.ac.in")),
		SuperAdminEmails:         splitList(os.Getenv("SUPER_ADMIN_EMAILS")),
		VIPMailboxes:             DefaultVIPMailboxes,
		TelegramBotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		NotifyLang:               getenv("NOTIFY_LANG", "en"),
		PriorityBumpInterval:     DefaultPriorityBumpInterval,
		PriorityBumpAfter:        DefaultPriorityBumpAfter,
		EscalationInterval:       DefaultEscalationInterval,
		EscalationAfter:          DefaultEscalationAfter,
		BroadcastAll:             true,
		EnforceDepartmentOnClaim: false,
	}

	var err error
	if cfg.DebugSQL, err = getbool("DEBUG_SQL", false); err != nil {
		return nil, err
	}
	if cfg.EnforceDepartmentOnClaim, err = getbool("ENFORCE_DEPARTMENT_ON_CLAIM", cfg.EnforceDepartmentOnClaim); err != nil {
		return nil, err
	}
	if cfg.BroadcastAll, err = getbool("BROADCAST_ALL", cfg.BroadcastAll); err != nil {
		return nil, err
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PRIORITY_BUMP_INTERVAL", &cfg.PriorityBumpInterval},
		{"PRIORITY_BUMP_AFTER", &cfg.PriorityBumpAfter},
		{"ESCALATION_INTERVAL", &cfg.EscalationInterval},
		{"ESCALATION_AFTER", &cfg.EscalationAfter},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s: invalid duration %q", d.key, v)
		}
		*d.dst = parsed
	}

	if envErr != nil && !os.IsNotExist(envErr) {
		return cfg, fmt.Errorf("load .env: %w", envErr)
	}
	return cfg, nil
}

// Development reports whether the portal runs in development mode.
func (c *Config) Development() bool {
	return c.Env == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
