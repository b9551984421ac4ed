// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/nimbus/internal/persistence/sqlite"
	"github.com/google/uuid"
)

// migrations is append-only; index i upgrades user_version i to i+1.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		history_json TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_threads_user_updated ON threads(user_id, updated_at_ms DESC);
	`,
	`
	CREATE TABLE IF NOT EXISTS settings (
		user_id TEXT PRIMARY KEY,
		settings_json TEXT NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL,
		question TEXT NOT NULL,
		sent INTEGER NOT NULL,
		ts_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_ts ON interactions(ts_ms DESC);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_interactions_user_ts ON interactions(user_id, ts_ms DESC);
	`,
}

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSqliteStore opens (and migrates) the database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration failed: %w", err)
	}
	return &SqliteStore{DB: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SqliteStore) Close() error { return s.DB.Close() }

func (s *SqliteStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// --- Users ---

func (s *SqliteStore) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	u := &User{ID: uuid.NewString(), Email: strings.ToLower(email), PasswordHash: passwordHash, CreatedAt: s.now()}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at_ms) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt = fromMillis(u.CreatedAt.UnixMilli())
	return u, nil
}

func (s *SqliteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at_ms FROM users WHERE id = ?`, id))
}

func (s *SqliteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at_ms FROM users WHERE email = ?`, strings.ToLower(email)))
}

func (s *SqliteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created int64
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// --- Threads ---

func (s *SqliteStore) ListThreads(ctx context.Context, userID string) ([]Thread, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, history_json, created_at_ms, updated_at_ms
		 FROM threads WHERE user_id = ? ORDER BY updated_at_ms DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	out := make([]Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *SqliteStore) CreateThread(ctx context.Context, userID string) (*Thread, error) {
	now := fromMillis(s.now().UnixMilli())
	t := &Thread{ID: uuid.NewString(), UserID: userID, History: []HistoryItem{}, CreatedAt: now, UpdatedAt: now}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO threads (id, user_id, history_json, created_at_ms, updated_at_ms) VALUES (?, ?, '[]', ?, ?)`,
		t.ID, t.UserID, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert thread: %w", err)
	}
	return t, nil
}

func (s *SqliteStore) GetThread(ctx context.Context, userID, id string) (*Thread, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, history_json, created_at_ms, updated_at_ms
		 FROM threads WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *SqliteStore) UpdateThread(ctx context.Context, userID, id string, history []HistoryItem) (*Thread, error) {
	history = normalizeHistory(history)
	buf, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE threads SET history_json = ?, updated_at_ms = ? WHERE id = ? AND user_id = ?`,
		string(buf), s.now().UnixMilli(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("update thread: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetThread(ctx, userID, id)
}

// AppendHistory appends in a single UPDATE so concurrent appends cannot drop entries.
func (s *SqliteStore) AppendHistory(ctx context.Context, userID, id string, item HistoryItem) (*Thread, error) {
	item = normalizeHistory([]HistoryItem{item})[0]
	buf, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal history item: %w", err)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE threads SET history_json = json_insert(history_json, '$[#]', json(?)), updated_at_ms = ? WHERE id = ? AND user_id = ?`,
		string(buf), s.now().UnixMilli(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetThread(ctx, userID, id)
}

func (s *SqliteStore) DeleteThread(ctx context.Context, userID, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM threads WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(r rowScanner) (*Thread, error) {
	var t Thread
	var historyJSON string
	var created, updated int64
	if err := r.Scan(&t.ID, &t.UserID, &historyJSON, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan thread: %w", err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &t.History); err != nil {
		return nil, fmt.Errorf("decode history of thread %s: %w", t.ID, err)
	}
	t.History = normalizeHistory(t.History)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return &t, nil
}

// --- Settings ---

func (s *SqliteStore) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT settings_json FROM settings WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	var st Settings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	st.UserID = userID
	st.Normalize()
	return &st, nil
}

func (s *SqliteStore) PutSettings(ctx context.Context, st *Settings) error {
	buf, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO settings (user_id, settings_json, updated_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET settings_json = excluded.settings_json, updated_at_ms = excluded.updated_at_ms`,
		st.UserID, string(buf), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// --- Interactions ---

func (s *SqliteStore) LogInteraction(ctx context.Context, in Interaction) error {
	in = prepareInteraction(in, s.now)
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO interactions (id, user_id, ip, question, sent, ts_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.IP, in.Question, in.Sent, in.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) ListInteractions(ctx context.Context, limit int) ([]Interaction, error) {
	return s.queryInteractions(ctx,
		`SELECT id, user_id, ip, question, sent, ts_ms FROM interactions ORDER BY ts_ms DESC, rowid DESC LIMIT ?`,
		sqlLimit(limit))
}

func (s *SqliteStore) ListUserInteractions(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	return s.queryInteractions(ctx,
		`SELECT id, user_id, ip, question, sent, ts_ms FROM interactions WHERE user_id = ? ORDER BY ts_ms DESC, rowid DESC LIMIT ?`,
		userID, sqlLimit(limit))
}

func (s *SqliteStore) queryInteractions(ctx context.Context, query string, args ...any) ([]Interaction, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	out := make([]Interaction, 0)
	for rows.Next() {
		var in Interaction
		var ts int64
		if err := rows.Scan(&in.ID, &in.UserID, &in.IP, &in.Question, &in.Sent, &ts); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Timestamp = fromMillis(ts)
		out = append(out, in)
	}
	return out, rows.Err()
}

// sqlLimit maps "no limit" (<= 0) to sqlite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
