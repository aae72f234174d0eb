// Package config loads the server configuration from the environment.
// Database settings live in pkg/database; everything else is here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/firstround/interviewd/pkg/token"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	CookieSecure   bool
	CookieDomain   string
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	// Secret signs every capability token. Minimum 32 bytes.
	Secret string
	Issuer string
	TTLs   token.TTLs
}

// AIConfig selects and tunes the question/analysis provider.
type AIConfig struct {
	// Provider is "openai", "gemini", or "fallback".
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// StorageConfig selects persistence and media settings.
type StorageConfig struct {
	// Backend is "postgres" or "memory". Memory is for dev and tests only.
	Backend   string
	UploadDir string
}

// RetentionConfig controls the retention sweeper.
type RetentionConfig struct {
	Days     int
	Interval time.Duration
}

// Config is the umbrella configuration loaded once at startup.
type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	AI         AIConfig
	Storage    StorageConfig
	Retention  RetentionConfig
	PolicyFile string
}

// Load reads the configuration from the environment. Callers load .env files
// (godotenv) before this.
func Load() (*Config, error) {
	port, err := intEnv("HTTP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	secret := os.Getenv("AUTH_SECRET")
	if len(secret) < 32 {
		return nil, fmt.Errorf("AUTH_SECRET must be set to at least 32 bytes")
	}

	ttls := token.DefaultTTLs()
	if mins, err := intEnv("CAPABILITY_TOKEN_TTL_MINUTES", 0); err != nil {
		return nil, err
	} else if mins > 0 {
		d := time.Duration(mins) * time.Minute
		ttls.IST, ttls.WST, ttls.AIPT, ttls.UPT, ttls.ACET = d, d, d, d, d
	}
	if hours, err := intEnv("USER_TOKEN_TTL_HOURS", 0); err != nil {
		return nil, err
	} else if hours > 0 {
		d := time.Duration(hours) * time.Hour
		ttls.User, ttls.Session = d, d
	}

	provider := getEnvOrDefault("AI_PROVIDER", "fallback")
	var aiKey, aiModel string
	switch provider {
	case "openai":
		aiKey = os.Getenv("OPENAI_API_KEY")
		aiModel = getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini")
		if aiKey == "" {
			return nil, fmt.Errorf("AI_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case "gemini":
		aiKey = os.Getenv("GOOGLE_API_KEY")
		aiModel = getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash")
		if aiKey == "" {
			return nil, fmt.Errorf("AI_PROVIDER=gemini requires GOOGLE_API_KEY")
		}
	case "fallback":
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q (want openai, gemini, or fallback)", provider)
	}
	aiTimeout, err := intEnv("AI_TIMEOUT_SECONDS", 20)
	if err != nil {
		return nil, err
	}

	backend := getEnvOrDefault("STORE_BACKEND", "postgres")
	switch backend {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want postgres or memory)", backend)
	}

	retentionDays, err := intEnv("RETENTION_DAYS", 90)
	if err != nil {
		return nil, err
	}
	sweepHours, err := intEnv("CLEANUP_INTERVAL_HOURS", 12)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:           port,
			AllowedOrigins: splitEnv("ALLOWED_ORIGINS"),
			CookieSecure:   boolEnv("COOKIE_SECURE", true),
			CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
		},
		Auth: AuthConfig{
			Secret: secret,
			Issuer: getEnvOrDefault("AUTH_ISSUER", "interviewd"),
			TTLs:   ttls,
		},
		AI: AIConfig{
			Provider: provider,
			APIKey:   aiKey,
			Model:    aiModel,
			Timeout:  time.Duration(aiTimeout) * time.Second,
		},
		Storage: StorageConfig{
			Backend:   backend,
			UploadDir: getEnvOrDefault("UPLOAD_DIR", "./uploads"),
		},
		Retention: RetentionConfig{
			Days:     retentionDays,
			Interval: time.Duration(sweepHours) * time.Hour,
		},
		PolicyFile: os.Getenv("POLICY_FILE"),
	}, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func intEnv(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// splitEnv parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
