package exporter

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// migrateMu serializes goose migrations: goose keeps its base filesystem
// and dialect as package-level state, so two sinks migrating concurrently
// would race on it. Environments load sequentially at daemon startup, but
// the lock keeps sink construction safe regardless of caller.
var migrateMu sync.Mutex

func migrate(db *sql.DB, dialect string, fsys embed.FS, dir string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("exporter: set %s migration dialect: %w", dialect, err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("exporter: run %s migrations: %w", dialect, err)
	}
	return nil
}

// SQLiteSink appends exported events to a local SQLite database, grounded
// on the Lite-profile embedded storage path: one file, WAL-friendly, no
// external dependency.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if needed) path and migrates it to the
// current exported_events schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("exporter: open sqlite sink: %w", err)
	}
	if err := migrate(db, "sqlite3", sqliteMigrations, "migrations/sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("exporter: begin sqlite tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO exported_events (kind, object_type, global_id, values_json, at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("exporter: prepare sqlite insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		raw, err := json.Marshal(e.Values)
		if err != nil {
			return fmt.Errorf("exporter: marshal event values: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.Kind, e.ObjectType, e.GlobalID, raw, e.At); err != nil {
			return fmt.Errorf("exporter: insert sqlite event: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

// PostgresSink appends exported events to a Postgres table via a pooled
// connection, grounded on the Standard-profile storage path.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink migrates dsn to the current exported_events schema and
// returns a sink backed by a connection pool. Migrations run over a plain
// database/sql connection (via pgx's stdlib driver) because goose drives
// schema changes through database/sql, not pgxpool; the pool used for
// actual writes is opened separately once the schema is current.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	migrationDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("exporter: open postgres migration connection: %w", err)
	}
	migrateErr := migrate(migrationDB, "postgres", postgresMigrations, "migrations/postgres")
	migrationDB.Close()
	if migrateErr != nil {
		return nil, migrateErr
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("exporter: connect postgres sink: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("exporter: ping postgres sink: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Write(ctx context.Context, events []Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("exporter: begin postgres tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		raw, err := json.Marshal(e.Values)
		if err != nil {
			return fmt.Errorf("exporter: marshal event values: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO exported_events (kind, object_type, global_id, values_json, at) VALUES ($1, $2, $3, $4, $5)`,
			e.Kind, e.ObjectType, e.GlobalID, raw, e.At); err != nil {
			return fmt.Errorf("exporter: insert postgres event: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresSink) Close() { s.pool.Close() }
