package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deskplan/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const documentKey = "desks"

// SQLiteStore keeps the document as a single row. Every save replaces
// the row inside one transaction.
type SQLiteStore struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, documentKey).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc, repairs, err := Unmarshal([]byte(body))
	if err != nil {
		return nil, err
	}
	LogRepairs(s.logger, "sqlite", repairs)
	return doc, nil
}

// SetAside copies the document row under a timestamped key and returns
// that key.
func (s *SQLiteStore) SetAside(ctx context.Context) (string, error) {
	dst := documentKey + ".unreadable-" + time.Now().Format(setAsideLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (key, body, schema_version, updated_at)
		 SELECT ?, body, schema_version, updated_at FROM documents WHERE key = ?`,
		dst, documentKey)
	if err != nil {
		return "", fmt.Errorf("copy document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrNotFound
	}
	return dst, nil
}

func (s *SQLiteStore) Save(ctx context.Context, doc *models.Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (key, body, schema_version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			schema_version = excluded.schema_version,
			updated_at = excluded.updated_at`,
		documentKey, string(data), CurrentSchemaVersion, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
