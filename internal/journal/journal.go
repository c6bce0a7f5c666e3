// Package journal persists the live events applied to a session in SQLite, so
// a session can be rebuilt by replaying them in order.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
	_ "modernc.org/sqlite"
)

// ErrUnknownEvent is returned for an event kind the journal cannot store or
// read back.
var ErrUnknownEvent = errors.New("unknown event kind")

const (
	kindConfirmation = "confirmation"
	kindStart        = "start"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS events (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	program_id   TEXT    NOT NULL,
	kind         TEXT    NOT NULL,
	trigger_name TEXT    NOT NULL DEFAULT '',
	elapsed_ns   INTEGER NOT NULL DEFAULT 0,
	start_ns     INTEGER NOT NULL DEFAULT 0,
	recorded_at  TEXT    NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS events_program ON events (program_id, seq)`,
}

// Entry is one journaled event.
type Entry struct {
	Seq        int64
	ProgramID  string
	RecordedAt time.Time
	Event      scheduler.Event
}

// Journal is an append-only event log. It implements session.Recorder.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends ev to the program's log.
func (j *Journal) Record(ctx context.Context, programID string, ev scheduler.Event) error {
	var (
		kind    string
		trigger string
		elapsed time.Duration
		start   time.Duration
	)
	switch e := ev.(type) {
	case scheduler.Confirmation:
		kind, trigger, elapsed = kindConfirmation, e.TriggerName, e.Elapsed
	case scheduler.StartSignal:
		kind, start = kindStart, e.At
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	const query = `
INSERT INTO events (program_id, kind, trigger_name, elapsed_ns, start_ns, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := j.db.ExecContext(ctx, query, programID, kind, trigger, int64(elapsed), int64(start), j.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	seq, _ := res.LastInsertId()
	ctxlog.FromContext(ctx).Debug("Journaled event.", "program", programID, "kind", kind, "seq", seq)
	return nil
}

// Events returns the program's events in the order they were recorded.
func (j *Journal) Events(ctx context.Context, programID string) ([]Entry, error) {
	const query = `
SELECT seq, program_id, kind, trigger_name, elapsed_ns, start_ns, recorded_at
FROM events
WHERE program_id = ?
ORDER BY seq`

	rows, err := j.db.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			kind       string
			trigger    string
			elapsedNS  int64
			startNS    int64
			recordedAt string
		)
		if err := rows.Scan(&e.Seq, &e.ProgramID, &kind, &trigger, &elapsedNS, &startNS, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		switch kind {
		case kindConfirmation:
			e.Event = scheduler.Confirmation{TriggerName: trigger, Elapsed: time.Duration(elapsedNS)}
		case kindStart:
			e.Event = scheduler.StartSignal{At: time.Duration(startNS)}
		default:
			return nil, fmt.Errorf("event %d: %w: %q", e.Seq, ErrUnknownEvent, kind)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("event %d: parse recorded_at: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}

// Programs returns the identifiers of every program with journaled events.
func (j *Journal) Programs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT program_id FROM events ORDER BY program_id`)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
