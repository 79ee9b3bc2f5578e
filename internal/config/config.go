package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode Mode

	// Backend quiz API the client talks to.
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Listen address for the web views (quizweb).
	HTTPAddr string

	StoreDriver string // sqlite|postgres|memory
	StoreDSN    string
	StoreKey    string // optional hex key; seals stored tokens when set

	ExportDir string

	CookieSecure bool

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		APIBaseURL:         strings.TrimRight(envOr("QUIZ_API_URL", "http://127.0.0.1:5000"), "/"),
		HTTPTimeout:        envDuration("QUIZ_HTTP_TIMEOUT", 15*time.Second),
		HTTPAddr:           envOr("HTTP_ADDR", ":8090"),
		StoreDriver:        envOr("STORE_DRIVER", "sqlite"),
		StoreDSN:           envOr("STORE_DSN", ""),
		StoreKey:           os.Getenv("STORE_KEY"),
		ExportDir:          envOr("EXPORT_DIR", "./data/exports"),
		CookieSecure:       envBool("COOKIE_SECURE", mode == ModeOnline),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://quiz.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

// CORSOrigins returns the allowed origins for the active mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// SealKey decodes StoreKey. It returns nil when no key is configured.
func (c Config) SealKey() (*[32]byte, error) {
	if c.StoreKey == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(c.StoreKey)
	if err != nil {
		return nil, fmt.Errorf("STORE_KEY: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("STORE_KEY: want 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.APIBaseURL)
	}
	switch c.StoreDriver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported store driver %q", c.StoreDriver)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("negative http timeout %s", c.HTTPTimeout)
	}
	if _, err := c.SealKey(); err != nil {
		return err
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
