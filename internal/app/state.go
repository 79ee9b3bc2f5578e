// Package app wires the local client state shared by quizctl and quizweb.
package app

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/config"
	"github.com/mind-engage/classquiz/internal/db"
	"github.com/mind-engage/classquiz/internal/journal"
	"github.com/mind-engage/classquiz/internal/quizsession"
	"github.com/mind-engage/classquiz/internal/session"
)

type State struct {
	KV      session.KV
	Sealer  *session.Sealer
	Journal *journal.EventRepo // nil with the memory driver

	db *sql.DB
}

// Open prepares token storage and the event journal for cfg.
func Open(ctx context.Context, cfg config.Config) (*State, error) {
	key, err := cfg.SealKey()
	if err != nil {
		return nil, err
	}
	st := &State{Sealer: session.NewSealer(key)}

	if cfg.StoreDriver == "memory" {
		st.KV = session.NewMemoryKV()
		return st, nil
	}
	dbh, err := db.Open(ctx, db.Driver(cfg.StoreDriver), cfg.StoreDSN)
	if err != nil {
		return nil, err
	}
	st.db = dbh
	st.KV = session.NewSQLKV(dbh)
	st.Journal = journal.NewEventRepo(dbh)
	return st, nil
}

func (s *State) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Store returns the token store for one scope (CLI profile or browser).
func (s *State) Store(scope string) *session.Store {
	var opts []session.Option
	if s.Sealer != nil {
		opts = append(opts, session.WithSealer(s.Sealer))
	}
	return session.New(s.KV, scope, opts...)
}

// Recorder journals controller transitions for scope, or returns nil when
// there is no journal.
func (s *State) Recorder(scope string, l *log.Logger) quizsession.Recorder {
	if s.Journal == nil {
		return nil
	}
	return journal.NewRecorder(s.Journal, scope, l)
}

func HTTPClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// Client builds an API client over store.
func Client(cfg config.Config, store *session.Store, l *log.Logger, opts ...apiclient.Option) *apiclient.Client {
	opts = append([]apiclient.Option{apiclient.WithLogger(l)}, opts...)
	return apiclient.New(cfg.APIBaseURL, HTTPClient(cfg), store, opts...)
}
