package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName = "history.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	createVersionTableSQL = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`
	selectVersionSQL      = `SELECT COALESCE(MAX(version), 0) FROM schema_version`
	insertVersionSQL      = `INSERT INTO schema_version (version) VALUES (?)`
)

var (
	//go:embed sql/*.sql
	migrationFS embed.FS

	ErrNotInitialized = errors.New("store not initialized")
	ErrNotFound       = errors.New("run not found")
)

// Store persists explore runs in SQLite (file path DSN) or PostgreSQL
// (postgres:// DSN).
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn and applies any pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn not specified")
	}

	driver, conn := resolveDSN(dsn)
	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == driverSQLite {
		// one writer at a time, sqlite serializes anyway
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("store opened", "driver", driver)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver is the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

func resolveDSN(dsn string) (driver, conn string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres, dsn
	}
	if strings.Contains(dsn, "?") {
		return driverSQLite, dsn
	}
	return driverSQLite, dsn + "?" + sqlitePragmas
}

type migration struct {
	version int
	name    string
}

func listMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	list := make([]migration, 0, len(entries))
	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix", e.Name())
		}
		v, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s has invalid version: %w", e.Name(), err)
		}
		list = append(list, migration{version: v, name: e.Name()})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })
	return list, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createVersionTableSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, selectVersionSQL).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	list, err := listMigrations()
	if err != nil {
		return err
	}

	for _, m := range list {
		if m.version <= current {
			continue
		}

		b, err := migrationFS.ReadFile(path.Join("sql", m.name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", m.name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(insertVersionSQL), m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}
		slog.Debug("migration applied", "name", m.name, "version", m.version)
	}

	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
