package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"cookduel/apps/server/internal/codec"
	"cookduel/peer"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	writeTimeout     = 3 * time.Second
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNotRecorded = errors.New("only ACTION frames are recorded")
)

// Service is the relay's audit tape: every ACTION frame forwarded between two seats.
type Service interface {
	Close() error
	Append(ctx context.Context, rec Record) error
	ListSessions(ctx context.Context, limit int) ([]SessionItem, error)
	GetFrames(ctx context.Context, sessionID string) ([]Record, error)
}

// Record 一帧记录
type Record struct {
	SessionID    string `json:"session_id"`
	Seq          uint64 `json:"seq"`
	Origin       int    `json:"origin"`
	ActionType   string `json:"action_type"`
	Frame        []byte `json:"-"`
	ReceivedAtMs int64  `json:"received_at_ms"`
}

type SessionItem struct {
	SessionID   string `json:"session_id"`
	FrameCount  int    `json:"frame_count"`
	FirstAtMs   int64  `json:"first_at_ms"`
	LastAtMs    int64  `json:"last_at_ms"`
	LastActType string `json:"last_action_type"`
}

// RecordFromFrame decodes a relayed frame into a Record.
func RecordFromFrame(frame []byte, receivedAt time.Time) (Record, peer.Envelope, error) {
	env, err := peer.DecodeEnvelope(frame)
	if err != nil {
		return Record{}, peer.Envelope{}, err
	}
	if env.Kind != peer.FrameAction {
		return Record{}, env, ErrNotRecorded
	}
	return Record{
		SessionID:    env.SessionID,
		Seq:          env.Seq,
		Origin:       env.Origin,
		ActionType:   codec.ActionType(env),
		Frame:        frame,
		ReceivedAtMs: receivedAt.UTC().UnixMilli(),
	}, env, nil
}

// Frames returns the raw frames of recs in order.
func Frames(recs []Record) [][]byte {
	out := make([][]byte, len(recs))
	for i, r := range recs {
		out[i] = r.Frame
	}
	return out
}

func validRecord(rec Record) error {
	if strings.TrimSpace(rec.SessionID) == "" || rec.Seq == 0 || len(rec.Frame) == 0 {
		return fmt.Errorf("incomplete record: session=%q seq=%d", rec.SessionID, rec.Seq)
	}
	return nil
}

type noopService struct{}

func (n *noopService) Close() error { return nil }

func (n *noopService) Append(_ context.Context, _ Record) error { return nil }

func (n *noopService) ListSessions(_ context.Context, _ int) ([]SessionItem, error) {
	return []SessionItem{}, nil
}

func (n *noopService) GetFrames(_ context.Context, _ string) ([]Record, error) {
	return nil, ErrNotFound
}

// NewService opens the store named by mode: memory (no-op), sqlite or postgres.
func NewService(mode, dsn, sqlitePath string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "memory":
		return &noopService{}, nil
	case "sqlite":
		return NewSQLiteService(sqlitePath)
	case "postgres":
		return NewPostgresService(dsn)
	default:
		return nil, fmt.Errorf("unknown ledger mode %q", mode)
	}
}

type PostgresService struct {
	db *sql.DB
}

// NewPostgresService connects and checks the schema exists; migrations are applied out of band.
func NewPostgresService(dsn string) (*PostgresService, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	var schemaReady bool
	if err := db.QueryRowContext(ctx, `
SELECT EXISTS (
    SELECT 1
    FROM information_schema.tables
    WHERE table_schema = 'public'
      AND table_name = 'ledger_frames'
)`).Scan(&schemaReady); err != nil {
		_ = db.Close()
		return nil, err
	}
	if !schemaReady {
		_ = db.Close()
		return nil, fmt.Errorf("ledger schema not initialized: missing table ledger_frames")
	}
	return &PostgresService{db: db}, nil
}

func (s *PostgresService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresService) Append(ctx context.Context, rec Record) error {
	if err := validRecord(rec); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO ledger_frames (session_id, seq, origin, action_type, frame, received_at_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, seq, origin) DO NOTHING
`, rec.SessionID, int64(rec.Seq), rec.Origin, rec.ActionType, string(rec.Frame), rec.ReceivedAtMs)
	return err
}

func (s *PostgresService) ListSessions(ctx context.Context, limit int) ([]SessionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT f.session_id, COUNT(*), MIN(f.received_at_ms), MAX(f.received_at_ms),
       (SELECT l.action_type FROM ledger_frames l
        WHERE l.session_id = f.session_id
        ORDER BY l.seq DESC, l.origin DESC LIMIT 1)
FROM ledger_frames f
GROUP BY f.session_id
ORDER BY MAX(f.received_at_ms) DESC
LIMIT $1
`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (s *PostgresService) GetFrames(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, seq, origin, action_type, frame, received_at_ms
FROM ledger_frames
WHERE session_id = $1
ORDER BY seq ASC, origin ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanSessions(rows *sql.Rows) ([]SessionItem, error) {
	defer rows.Close()
	items := make([]SessionItem, 0)
	for rows.Next() {
		var it SessionItem
		var last sql.NullString
		if err := rows.Scan(&it.SessionID, &it.FrameCount, &it.FirstAtMs, &it.LastAtMs, &last); err != nil {
			return nil, err
		}
		it.LastActType = last.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var recs []Record
	for rows.Next() {
		var rec Record
		var seq int64
		var frame string
		if err := rows.Scan(&rec.SessionID, &seq, &rec.Origin, &rec.ActionType, &frame, &rec.ReceivedAtMs); err != nil {
			return nil, err
		}
		rec.Seq = uint64(seq)
		rec.Frame = []byte(frame)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
