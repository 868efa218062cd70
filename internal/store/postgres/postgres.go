// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateChunk(ctx context.Context, c *model.Chunk) error {
	return queryCreateChunk(ctx, s.db, c)
}

func (s *PostgresStore) GetChunk(ctx context.Context, id string) (*model.Chunk, error) {
	return queryGetChunk(ctx, s.db, id)
}

func (s *PostgresStore) GetChunkByKey(ctx context.Context, key string) (*model.Chunk, error) {
	return queryGetChunkByKey(ctx, s.db, key)
}

func (s *PostgresStore) ListChunks(ctx context.Context, filter model.ChunkFilter) ([]*model.Chunk, int, error) {
	return queryListChunks(ctx, s.db, filter)
}

func (s *PostgresStore) UpdateChunk(ctx context.Context, c *model.Chunk) error {
	return queryUpdateChunk(ctx, s.db, c)
}

func (s *PostgresStore) DeleteChunk(ctx context.Context, id string) error {
	return queryDeleteChunk(ctx, s.db, id)
}

func (s *PostgresStore) CreateInlineChunk(ctx context.Context, c *model.InlineChunk) error {
	return queryCreateInlineChunk(ctx, s.db, c)
}

func (s *PostgresStore) GetInlineChunk(ctx context.Context, id string) (*model.InlineChunk, error) {
	return queryGetInlineChunk(ctx, s.db, id)
}

func (s *PostgresStore) GetInlineChunkByKey(ctx context.Context, owner model.OwnerRef, key string) (*model.InlineChunk, error) {
	return queryGetInlineChunkByKey(ctx, s.db, owner, key)
}

func (s *PostgresStore) ListInlineChunks(ctx context.Context, filter model.InlineChunkFilter) ([]*model.InlineChunk, int, error) {
	return queryListInlineChunks(ctx, s.db, filter)
}

func (s *PostgresStore) UpdateInlineChunk(ctx context.Context, c *model.InlineChunk) error {
	return queryUpdateInlineChunk(ctx, s.db, c)
}

func (s *PostgresStore) DeleteInlineChunk(ctx context.Context, id string) error {
	return queryDeleteInlineChunk(ctx, s.db, id)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateChunk(ctx context.Context, c *model.Chunk) error {
	return queryCreateChunk(ctx, s.tx, c)
}

func (s *txStore) GetChunk(ctx context.Context, id string) (*model.Chunk, error) {
	return queryGetChunk(ctx, s.tx, id)
}

func (s *txStore) GetChunkByKey(ctx context.Context, key string) (*model.Chunk, error) {
	return queryGetChunkByKey(ctx, s.tx, key)
}

func (s *txStore) ListChunks(ctx context.Context, filter model.ChunkFilter) ([]*model.Chunk, int, error) {
	return queryListChunks(ctx, s.tx, filter)
}

func (s *txStore) UpdateChunk(ctx context.Context, c *model.Chunk) error {
	return queryUpdateChunk(ctx, s.tx, c)
}

func (s *txStore) DeleteChunk(ctx context.Context, id string) error {
	return queryDeleteChunk(ctx, s.tx, id)
}

func (s *txStore) CreateInlineChunk(ctx context.Context, c *model.InlineChunk) error {
	return queryCreateInlineChunk(ctx, s.tx, c)
}

func (s *txStore) GetInlineChunk(ctx context.Context, id string) (*model.InlineChunk, error) {
	return queryGetInlineChunk(ctx, s.tx, id)
}

func (s *txStore) GetInlineChunkByKey(ctx context.Context, owner model.OwnerRef, key string) (*model.InlineChunk, error) {
	return queryGetInlineChunkByKey(ctx, s.tx, owner, key)
}

func (s *txStore) ListInlineChunks(ctx context.Context, filter model.InlineChunkFilter) ([]*model.InlineChunk, int, error) {
	return queryListInlineChunks(ctx, s.tx, filter)
}

func (s *txStore) UpdateInlineChunk(ctx context.Context, c *model.InlineChunk) error {
	return queryUpdateInlineChunk(ctx, s.tx, c)
}

func (s *txStore) DeleteInlineChunk(ctx context.Context, id string) error {
	return queryDeleteInlineChunk(ctx, s.tx, id)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
