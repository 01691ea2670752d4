// Package store is the SQLite persistence shared by LabTrack modules.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/HerbHall/labtrack/pkg/plugin"
)

var _ plugin.Store = (*SQLiteStore)(nil)

// SQLiteStore implements plugin.Store on modernc.org/sqlite. Each module
// owns its own numbered migrations, tracked in schema_migrations.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	once sync.Once
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// New opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection: writes are serialized and :memory: stays a single db.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path is the location the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

// DB returns the underlying *sql.DB for direct queries.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Tx runs fn in a transaction, committing when fn returns nil.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Migrate applies the module's migrations that have not run yet, in the
// order given.
func (s *SQLiteStore) Migrate(ctx context.Context, module string, migrations []plugin.Migration) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.appliedVersion(ctx, module)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, module, m); err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", module, m.Version, m.Description, err)
		}
		current = m.Version
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureMigrationsTable(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		_, err = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				module      TEXT     NOT NULL,
				version     INTEGER  NOT NULL,
				description TEXT     NOT NULL,
				applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (module, version)
			)
		`)
	})
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) appliedVersion(ctx context.Context, module string) (int, error) {
	var v sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(version) FROM schema_migrations WHERE module = ?", module,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version of %s: %w", module, err)
	}
	return int(v.Int64), nil
}

func (s *SQLiteStore) apply(ctx context.Context, module string, m plugin.Migration) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := m.Up(tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (module, version, description) VALUES (?, ?, ?)",
			module, m.Version, m.Description,
		)
		return err
	})
}
