package journal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mind-engage/classquiz/internal/db"
)

func TestRecorderAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:journal_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbh.Close()

	repo := NewEventRepo(dbh)
	rec := NewRecorder(repo, "cli:default", nil)
	rec.Record(ctx, "quiz_loaded", map[string]any{"quiz_id": "7", "questions": 3})
	rec.Record(ctx, "submit_started", map[string]any{"time_taken": 12})
	NewRecorder(repo, "other", nil).Record(ctx, "quiz_loaded", nil)

	evs, err := repo.List(ctx, "cli:default", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(evs) != 2 || evs[0].Type != "quiz_loaded" || evs[1].Type != "submit_started" {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0].Key == "" || evs[0].Key == evs[1].Key {
		t.Fatalf("event keys not unique: %q %q", evs[0].Key, evs[1].Key)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(evs[0].DataJSON), &data); err != nil || data["quiz_id"] != "7" {
		t.Fatalf("data = %s (%v)", evs[0].DataJSON, err)
	}

	rest, err := repo.List(ctx, "cli:default", evs[0].Seq, 10)
	if err != nil || len(rest) != 1 || rest[0].Type != "submit_started" {
		t.Fatalf("list after seq = %+v (%v)", rest, err)
	}
}
