package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	logx "crontimer/pkg/logx"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS hits (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	at          TEXT    NOT NULL,
	schedule_id INTEGER NOT NULL,
	name        TEXT,
	spec        TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS hits_schedule ON hits(schedule_id);
`

const pruneEvery = 500

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	keep    int
	opCount atomic.Uint64
	closed  atomic.Bool
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &sqliteStore{db: db, log: log, keep: cfg.maxRecords()}, nil
}

func (s *sqliteStore) AppendHit(ctx context.Context, r HitRecord) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hits(at, schedule_id, name, spec) VALUES(?,?,?,?)`,
		r.At.Format(time.RFC3339Nano), r.ScheduleID, nullStr(r.Name), r.Spec,
	)
	if err == nil && s.opCount.Add(1)%pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		if perr := s.prune(pctx); perr != nil {
			s.log.Debug("hit prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (s *sqliteStore) RecentHits(ctx context.Context, limit int) ([]HitRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > s.keep {
		limit = s.keep
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, schedule_id, name, spec FROM hits ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HitRecord, 0, limit)
	for rows.Next() {
		var (
			at   string
			name sql.NullString
			r    HitRecord
		)
		if err := rows.Scan(&at, &r.ScheduleID, &name, &r.Spec); err != nil {
			return nil, err
		}
		r.Name = name.String
		if r.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("hit %d: bad timestamp %q: %w", r.ScheduleID, at, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// prune keeps only the newest keep rows.
func (s *sqliteStore) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM hits WHERE id <= (SELECT id FROM hits ORDER BY id DESC LIMIT 1 OFFSET ?)`, s.keep)
	return err
}

func (s *sqliteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
