package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/labtrack/pkg/plugin"
)

// Limits applied to List.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("not found")

// Entry is one recorded operator action.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	Topic     string    `json:"topic" yaml:"topic"`
	Action    string    `json:"action" yaml:"action"`
	MachineID string    `json:"machine_id,omitempty" yaml:"machine_id,omitempty"`
	MachineIP string    `json:"machine_ip,omitempty" yaml:"machine_ip,omitempty"`
	Outcome   string    `json:"outcome" yaml:"outcome"`
	Detail    string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Filter narrows List. Zero Limit means DefaultLimit.
type Filter struct {
	MachineID string
	Limit     int
}

// Repository persists audit entries.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	// List returns the newest entries first.
	List(ctx context.Context, f Filter) ([]Entry, error)
}

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository implements Repository on the shared store.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository runs the audit migrations and returns a repository.
func NewSQLiteRepository(ctx context.Context, store plugin.Store) (*SQLiteRepository, error) {
	if err := store.Migrate(ctx, "audit", migrations); err != nil {
		return nil, fmt.Errorf("audit migrations: %w", err)
	}
	return &SQLiteRepository{db: store.DB()}, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries
			(id, session_id, topic, action, machine_id, machine_ip, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Topic, e.Action, e.MachineID, e.MachineIP, e.Outcome, e.Detail, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry %q: %w", e.ID, err)
	}
	return nil
}

const selectEntry = `SELECT id, session_id, topic, action, machine_id, machine_ip, outcome, detail, created_at
	FROM audit_entries`

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get audit entry %q: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	query, args := selectEntry, []any{}
	if f.MachineID != "" {
		query += ` WHERE machine_id = ?`
		args = append(args, f.MachineID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	err := s.Scan(&e.ID, &e.SessionID, &e.Topic, &e.Action, &e.MachineID, &e.MachineIP,
		&e.Outcome, &e.Detail, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create audit_entries table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE audit_entries (
					id         TEXT PRIMARY KEY,
					session_id TEXT NOT NULL,
					topic      TEXT NOT NULL,
					action     TEXT NOT NULL,
					machine_id TEXT NOT NULL DEFAULT '',
					machine_ip TEXT NOT NULL DEFAULT '',
					outcome    TEXT NOT NULL,
					detail     TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`CREATE INDEX idx_audit_entries_machine ON audit_entries (machine_id, created_at)`)
			return err
		},
	},
}
