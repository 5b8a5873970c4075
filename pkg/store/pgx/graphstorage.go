// Package pgx implements store.GraphStorage on PostgreSQL with pgvector.
// The graph is kept in relational tables; vector search uses an HNSW cosine
// index over chunk embeddings.
package pgx

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/OFFIS-RIT/graphrag/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStorage using PostgreSQL.
type GraphDBStorage struct {
	conn pgxIConn
	pool *pgxpool.Pool
	dims atomic.Int64
}

var _ store.GraphStorage = (*GraphDBStorage)(nil)

// NewGraphDBStorageParams contains the connection settings. Dimensions must
// match the embedding model and is used to type the vector index.
type NewGraphDBStorageParams struct {
	DatabaseURL string
	Dimensions  int
}

// NewGraphDBStorage applies pending migrations and opens a connection pool
// with pgvector types registered.
func NewGraphDBStorage(ctx context.Context, params NewGraphDBStorageParams) (*GraphDBStorage, error) {
	if params.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if err := Migrate(params.DatabaseURL); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	cfg, err := pgxpool.ParseConfig(params.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	s := NewGraphDBStorageWithConnection(pool, params.Dimensions)
	s.pool = pool
	return s, nil
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage using an existing
// connection or pool. The caller keeps ownership of conn.
func NewGraphDBStorageWithConnection(conn pgxIConn, dims int) *GraphDBStorage {
	s := &GraphDBStorage{conn: conn}
	s.dims.Store(int64(dims))
	return s
}

// Close closes the pool if it was opened by NewGraphDBStorage.
func (s *GraphDBStorage) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}
