package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Seq       int64
	Scope     string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

// EventRepo is the append-only event_log table.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.Key == "" {
		e.Key = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (scope, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.Scope, e.Type, e.Key, e.DataJSON, e.CreatedAt)
	return err
}

// List returns events of scope with seq > after, oldest first.
func (r *EventRepo) List(ctx context.Context, scope string, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, scope, typ, key, data, created_at FROM event_log
		 WHERE scope=$1 AND seq>$2 ORDER BY seq LIMIT $3`, scope, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.Scope, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Recorder writes quiz session transitions for one scope. Write failures
// are logged and dropped so the quiz itself never stalls on the journal.
type Recorder struct {
	repo  *EventRepo
	scope string
	log   *log.Logger
}

func NewRecorder(repo *EventRepo, scope string, l *log.Logger) *Recorder {
	if l == nil {
		l = log.Default()
	}
	return &Recorder{repo: repo, scope: scope, log: l}
}

func (r *Recorder) Record(ctx context.Context, typ string, data map[string]any) {
	b, err := json.Marshal(data)
	if err != nil {
		r.log.Printf("journal: encode %s: %v", typ, err)
		return
	}
	if err := r.repo.Append(ctx, Event{Scope: r.scope, Type: typ, DataJSON: string(b)}); err != nil {
		r.log.Printf("journal: append %s: %v", typ, err)
	}
}
