package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/mind-engage/classquiz/internal/app"
	"github.com/mind-engage/classquiz/internal/cli"
	"github.com/mind-engage/classquiz/internal/config"
	"github.com/mind-engage/classquiz/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	profile := flag.String("profile", envOr("QUIZ_PROFILE", "default"), "local session profile")
	api := flag.String("api", cfg.APIBaseURL, "quiz API base URL")
	verbose := flag.Bool("v", false, "log API calls to stderr")
	flag.Parse()
	cfg.APIBaseURL = strings.TrimRight(*api, "/")

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "quizctl ", log.LstdFlags)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("local store: %v", err)
	}
	defer st.Close()

	exports, err := storage.NewFSStore(cfg.ExportDir)
	if err != nil {
		log.Fatalf("export dir: %v", err)
	}

	store := st.Store("cli:" + *profile)
	err = cli.Run(ctx, flag.Args(), os.Stdin, os.Stdout, cli.Deps{
		Client:   app.Client(cfg, store, logger),
		Store:    store,
		Recorder: st.Recorder(store.Scope(), logger),
		Exports:  exports,
		Journal:  st.Journal,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
