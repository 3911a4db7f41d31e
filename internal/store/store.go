/*
Package store persists users, tracked events and per-event chat turns in SQLite.
*/
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shanehull/preminder/internal/types"
)

var (
	ErrUserNotFound  = errors.New("store: user not found")
	ErrEventNotFound = errors.New("store: event not found")
)

type User struct {
	ID    int64
	Email string
}

type ChatTurn struct {
	ID        int64
	EventID   int64
	Message   string
	IsUser    bool
	Timestamp time.Time
}

type DB struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL REFERENCES users(id),
	search_query TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id);
CREATE TABLE IF NOT EXISTS chat_history (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id  INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	message   TEXT NOT NULL,
	is_user   INTEGER NOT NULL,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_event_id ON chat_history(event_id);
`

func NewSQLiteDB(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// PRAGMA foreign_keys is per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	database := &DB{conn: conn, path: dbPath, now: time.Now}
	if err := database.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return database, nil
}

func (d *DB) initSchema() error {
	if _, err := d.conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Path() string {
	return d.path
}

// CreateUser returns the existing user when email is already registered.
func (d *DB) CreateUser(ctx context.Context, email string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, fmt.Errorf("email is required")
	}

	if _, err := d.conn.ExecContext(ctx, `INSERT INTO users(email) VALUES(?) ON CONFLICT(email) DO NOTHING`, email); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return d.UserByEmail(ctx, email)
}

func (d *DB) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := d.conn.QueryRowContext(ctx, `SELECT id, email FROM users WHERE email = ?`, strings.TrimSpace(email)).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// CreateEvent stores a finalized tracking query for the user with ownerEmail.
func (d *DB) CreateEvent(ctx context.Context, ownerEmail string, query string) (types.TrackedEvent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.TrackedEvent{}, fmt.Errorf("search query is required")
	}

	u, err := d.UserByEmail(ctx, ownerEmail)
	if err != nil {
		return types.TrackedEvent{}, err
	}

	createdAt := d.now().UTC()
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO events(user_id, search_query, created_at) VALUES(?, ?, ?)`,
		u.ID, query, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.TrackedEvent{}, fmt.Errorf("create event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.TrackedEvent{}, fmt.Errorf("create event: %w", err)
	}

	return types.TrackedEvent{ID: id, OwnerID: u.ID, Query: query, CreatedAt: createdAt}, nil
}

// ListEvents returns every tracked event ordered by ID.
func (d *DB) ListEvents(ctx context.Context) ([]types.TrackedEvent, error) {
	return d.queryEvents(ctx, `SELECT id, user_id, search_query, created_at FROM events ORDER BY id`)
}

func (d *DB) EventsByUser(ctx context.Context, email string) ([]types.TrackedEvent, error) {
	u, err := d.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return d.queryEvents(ctx, `SELECT id, user_id, search_query, created_at FROM events WHERE user_id = ? ORDER BY id`, u.ID)
}

func (d *DB) queryEvents(ctx context.Context, q string, args ...any) ([]types.TrackedEvent, error) {
	rows, err := d.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []types.TrackedEvent
	for rows.Next() {
		var (
			ev        types.TrackedEvent
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.OwnerID, &ev.Query, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for event %d: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event together with its chat history.
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_history WHERE event_id = ?`, id); err != nil {
		return fmt.Errorf("delete chat history: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return tx.Commit()
}

func (d *DB) AddChatTurn(ctx context.Context, eventID int64, message string, isUser bool) (ChatTurn, error) {
	ts := d.now().UTC()
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO chat_history(event_id, message, is_user, timestamp) VALUES(?, ?, ?, ?)`,
		eventID, message, isUser, ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return ChatTurn{}, ErrEventNotFound
		}
		return ChatTurn{}, fmt.Errorf("add chat turn: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ChatTurn{}, fmt.Errorf("add chat turn: %w", err)
	}
	return ChatTurn{ID: id, EventID: eventID, Message: message, IsUser: isUser, Timestamp: ts}, nil
}

func (d *DB) ChatHistory(ctx context.Context, eventID int64) ([]ChatTurn, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, event_id, message, is_user, timestamp FROM chat_history WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var (
			t  ChatTurn
			ts string
		)
		if err := rows.Scan(&t.ID, &t.EventID, &t.Message, &t.IsUser, &ts); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		if t.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse chat timestamp: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// OwnerAddress resolves the notification address of an event owner.
func (d *DB) OwnerAddress(ctx context.Context, ownerID int64) (string, error) {
	var email string
	err := d.conn.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, ownerID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query owner address: %w", err)
	}
	return email, nil
}
