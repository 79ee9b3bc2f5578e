package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "QUIZ_API_URL", "QUIZ_HTTP_TIMEOUT", "HTTP_ADDR", "STORE_DRIVER", "STORE_KEY", "COOKIE_SECURE"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode = %q, want offline", cfg.Mode)
	}
	if cfg.APIBaseURL != "http://127.0.0.1:5000" {
		t.Fatalf("api base url = %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("timeout = %s", cfg.HTTPTimeout)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Fatalf("store driver = %q", cfg.StoreDriver)
	}
	if cfg.CookieSecure {
		t.Fatalf("offline mode should not default to secure cookies")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("QUIZ_API_URL", "https://quiz.example.edu/")
	t.Setenv("QUIZ_HTTP_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	cfg := FromEnv()
	if cfg.APIBaseURL != "https://quiz.example.edu" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("timeout = %s", cfg.HTTPTimeout)
	}
	if !cfg.CookieSecure {
		t.Fatalf("online mode should default to secure cookies")
	}
	origins := cfg.CORSOrigins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("origins = %v", origins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{Mode: ModeOffline, APIBaseURL: "http://localhost:5000", StoreDriver: "sqlite"}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}

	bad := base
	bad.StoreDriver = "redis"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}

	bad = base
	bad.APIBaseURL = "ftp://example"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected invalid url error")
	}

	bad = base
	bad.StoreKey = "abcd"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected short key error")
	}

	good := base
	good.StoreKey = strings.Repeat("ab", 32)
	key, err := good.SealKey()
	if err != nil || key == nil || key[0] != 0xab {
		t.Fatalf("SealKey = (%v, %v)", key, err)
	}
}
