package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// KV is scoped key/value storage. A scope plays the role of a browser
// origin: one CLI profile or one web visitor.
type KV interface {
	Load(ctx context.Context, scope, key string) (string, bool, error)
	Save(ctx context.Context, scope, key, value string) error
	Delete(ctx context.Context, scope string, keys ...string) error
}

// ---- SQL backend (session_kv table, see internal/db) ----

type SQLKV struct{ db *sql.DB }

func NewSQLKV(db *sql.DB) *SQLKV { return &SQLKV{db: db} }

func (s *SQLKV) Load(ctx context.Context, scope, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE scope=$1 AND key=$2`, scope, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLKV) Save(ctx context.Context, scope, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_kv (scope, key, value, updated_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (scope, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		scope, key, value, time.Now().Unix())
	return err
}

func (s *SQLKV) Delete(ctx context.Context, scope string, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_kv WHERE scope=$1 AND key=$2`, scope, k); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ---- in-memory backend ----

type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]map[string]string{}}
}

func (m *MemoryKV) Load(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[scope][key]
	return v, ok, nil
}

func (m *MemoryKV) Save(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[scope] == nil {
		m.data[scope] = map[string]string{}
	}
	m.data[scope][key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, scope string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data[scope], k)
	}
	if len(m.data[scope]) == 0 {
		delete(m.data, scope)
	}
	return nil
}
