package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one connection: an in-memory database lives and dies with it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSQLiteLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) Append(ctx context.Context, rec Record) error {
	if err := validRecord(rec); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO ledger_frames (session_id, seq, origin, action_type, frame, received_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, seq, origin) DO NOTHING
`, rec.SessionID, int64(rec.Seq), rec.Origin, rec.ActionType, string(rec.Frame), rec.ReceivedAtMs)
	return err
}

func (s *SQLiteService) ListSessions(ctx context.Context, limit int) ([]SessionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT f.session_id, COUNT(*), MIN(f.received_at_ms), MAX(f.received_at_ms),
       (SELECT l.action_type FROM ledger_frames l
        WHERE l.session_id = f.session_id
        ORDER BY l.seq DESC, l.origin DESC LIMIT 1)
FROM ledger_frames f
GROUP BY f.session_id
ORDER BY MAX(f.received_at_ms) DESC
LIMIT ?
`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (s *SQLiteService) GetFrames(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, seq, origin, action_type, frame, received_at_ms
FROM ledger_frames
WHERE session_id = ?
ORDER BY seq ASC, origin ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func ensureSQLiteLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS ledger_frames (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    origin INTEGER NOT NULL,
    action_type TEXT NOT NULL DEFAULT '',
    frame TEXT NOT NULL,
    received_at_ms INTEGER NOT NULL,
    UNIQUE (session_id, seq, origin)
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_frames_received_at ON ledger_frames(received_at_ms)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
