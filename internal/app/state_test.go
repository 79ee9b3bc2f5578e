package app

import (
	"context"
	"testing"
	"time"

	"github.com/mind-engage/classquiz/internal/config"
	"github.com/mind-engage/classquiz/internal/session"
)

func testConfig(driver, dsn string) config.Config {
	return config.Config{
		Mode:        config.ModeOffline,
		APIBaseURL:  "http://127.0.0.1:5000",
		HTTPTimeout: time.Second,
		StoreDriver: driver,
		StoreDSN:    dsn,
	}
}

func TestOpenMemoryHasNoJournal(t *testing.T) {
	st, err := Open(context.Background(), testConfig("memory", ""))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if st.Journal != nil || st.Recorder("x", nil) != nil {
		t.Fatalf("memory driver should not journal")
	}
	if err := st.Store("cli:a").Set(context.Background(), "tok", session.RoleStudent); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := st.Store("cli:b").Get(context.Background()); ok {
		t.Fatalf("scopes leak")
	}
}

func TestOpenSQLiteSealsTokens(t *testing.T) {
	cfg := testConfig("sqlite", "file:app_state_test?mode=memory&cache=shared")
	cfg.StoreKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	st, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if st.Sealer == nil || st.Journal == nil || st.Recorder("cli:a", nil) == nil {
		t.Fatalf("state = %+v", st)
	}

	ctx := context.Background()
	if err := st.Store("cli:a").Set(ctx, "plain-token", session.RoleAdmin); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, err := st.KV.Load(ctx, "cli:a", "token")
	if err != nil || !ok || raw == "plain-token" {
		t.Fatalf("stored raw = %q %v %v", raw, ok, err)
	}
	tok, ok, err := st.Store("cli:a").Token(ctx)
	if err != nil || !ok || tok != "plain-token" {
		t.Fatalf("token = %q %v %v", tok, ok, err)
	}
}

func TestClientUsesConfiguredBase(t *testing.T) {
	cfg := testConfig("memory", "")
	cfg.APIBaseURL = "http://quiz.internal:5000"
	st, _ := Open(context.Background(), cfg)
	c := Client(cfg, st.Store("x"), nil)
	if c.BaseURL() != "http://quiz.internal:5000" {
		t.Fatalf("base = %s", c.BaseURL())
	}
}
