package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`CREATE TABLE journal (
		seq      INTEGER PRIMARY KEY,
		build_id TEXT    NOT NULL,
		kind     TEXT    NOT NULL,
		at_ns    INTEGER NOT NULL,
		body     TEXT    NOT NULL
	);
	CREATE INDEX journal_build ON journal(build_id, seq);`,
}

const selectEvents = `SELECT seq, build_id, kind, at_ns, body FROM journal`

// SQLiteStore is a Store on a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewSQLiteStore opens or creates the journal at path. ":memory:" gives a
// private in-memory journal.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap(ErrJournalOpen, err)
	}
	// One connection serializes writers and keeps ":memory:" alive.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, wrap(ErrJournalMigrate, err)
	}
	insert, err := db.Prepare(`INSERT INTO journal (build_id, kind, at_ns, body) VALUES (?, ?, ?, ?) RETURNING seq`)
	if err != nil {
		_ = db.Close()
		return nil, wrap(ErrJournalOpen, err)
	}
	return &SQLiteStore{db: db, insert: insert}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return err
	}
	var applied int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&applied); err != nil {
		return err
	}
	if applied > len(migrations) {
		return fmt.Errorf("journal schema version %d is newer than this binary supports (%d)", applied, len(migrations))
	}
	for v := applied; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, ev *Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	body := string(ev.Body)
	if body == "" {
		body = "{}"
	}
	if err := s.insert.QueryRowContext(ctx, ev.BuildID, ev.Kind, ev.At.UnixNano(), body).Scan(&ev.Seq); err != nil {
		return wrap(ErrJournalWrite, err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, buildID string) ([]Event, error) {
	var out []Event
	err := s.each(ctx, func(ev Event) error {
		out = append(out, ev)
		return nil
	}, selectEvents+` WHERE build_id = ? ORDER BY seq`, buildID)
	return out, err
}

func (s *SQLiteStore) Replay(ctx context.Context, fn func(Event) error) error {
	return s.each(ctx, fn, selectEvents+` ORDER BY seq`)
}

func (s *SQLiteStore) Forget(ctx context.Context, buildID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM journal WHERE build_id = ?`, buildID); err != nil {
		return wrap(ErrJournalWrite, err)
	}
	return nil
}

// each streams the rows of query into fn. Errors returned by fn pass
// through unwrapped.
func (s *SQLiteStore) each(ctx context.Context, fn func(Event) error, query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return wrap(ErrJournalRead, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev   Event
			atNS int64
			body string
		)
		if err := rows.Scan(&ev.Seq, &ev.BuildID, &ev.Kind, &atNS, &body); err != nil {
			return wrap(ErrJournalRead, err)
		}
		ev.At = time.Unix(0, atNS).UTC()
		ev.Body = []byte(body)
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return wrap(ErrJournalRead, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	_ = s.insert.Close()
	return s.db.Close()
}
