package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mind-engage/classquiz/internal/app"
	"github.com/mind-engage/classquiz/internal/config"
	"github.com/mind-engage/classquiz/internal/quizsession"
	"github.com/mind-engage/classquiz/internal/web"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- local state ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := app.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("local store: %v", err)
	}
	defer st.Close()

	logger := log.Default()
	srv, err := web.New(web.Options{
		BaseURL:      cfg.APIBaseURL,
		HTTPClient:   app.HTTPClient(cfg),
		KV:           st.KV,
		Sealer:       st.Sealer,
		Recorder:     func(scope string) quizsession.Recorder { return st.Recorder(scope, logger) },
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
		CORSOrigins:  cfg.CORSOrigins(),
	})
	if err != nil {
		log.Fatalf("web: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		shutdown, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = server.Shutdown(shutdown)
	}()

	log.Printf("listening on %s (mode=%s, store=%s, api=%s)", cfg.HTTPAddr, cfg.Mode, cfg.StoreDriver, cfg.APIBaseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
