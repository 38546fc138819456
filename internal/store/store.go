// ABOUTME: SQLite activity store for the dashboard.
// ABOUTME: Handles database initialization, migrations and connection management.

package store

import (
	"context"
	"database/sql"

	cerrors "github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Migration version constants
const (
	MigrationV1 = 1 // request_logs table
	MigrationV2 = 2 // api_calls table
	MigrationV3 = 3 // composite indexes for the activity page
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV3

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     MigrationV1,
		description: "Create request_logs table",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS request_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				method TEXT NOT NULL,
				path TEXT NOT NULL,
				status_code INTEGER,
				duration_ms INTEGER,
				username TEXT DEFAULT '',
				role TEXT DEFAULT '',
				ip_address TEXT,
				user_agent TEXT,
				error TEXT
			)`,
			"CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp DESC)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_path ON request_logs(path)",
		},
	},
	{
		version:     MigrationV2,
		description: "Create api_calls table",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS api_calls (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				method TEXT NOT NULL,
				path TEXT NOT NULL,
				resource TEXT NOT NULL,
				status_code INTEGER,
				duration_ms INTEGER,
				error_kind TEXT DEFAULT '',
				error TEXT DEFAULT ''
			)`,
			"CREATE INDEX IF NOT EXISTS idx_api_calls_timestamp ON api_calls(timestamp DESC)",
		},
	},
	{
		version:     MigrationV3,
		description: "Add composite indexes for activity queries",
		statements: []string{
			"CREATE INDEX IF NOT EXISTS idx_request_logs_method_status ON request_logs(method, status_code)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_username ON request_logs(username) WHERE username != ''",
			"CREATE INDEX IF NOT EXISTS idx_api_calls_resource_timestamp ON api_calls(resource, timestamp DESC)",
		},
	},
}

// New opens the database at dbPath and applies pending migrations.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, cerrors.Wrap(err, "opening database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, cerrors.Wrap(err, "failed to connect to database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, cerrors.Wrapf(err, "applying %q", pragma)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs all pending migrations in order
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`); err != nil {
		return cerrors.Wrap(err, "failed to create migrations table")
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return cerrors.Wrap(err, "failed to get current migration version")
	}
	s.logger.Debug("database schema", zap.Int("version", current), zap.Int("target", CurrentSchemaVersion))

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return cerrors.Wrapf(err, "migration v%d failed", m.version)
		}
		s.logger.Info("applied migration", zap.Int("version", m.version), zap.String("description", m.description))
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, description)
		VALUES (?, ?)
	`, m.version, m.description); err != nil {
		return err
	}
	return tx.Commit()
}
