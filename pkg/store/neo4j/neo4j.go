// Package neo4j implements store.GraphStorage on Neo4j.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/graphrag/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	defaultPoolSize          = 50
	defaultConnectionTimeout = 30 * time.Second
	defaultConnectRetries    = 5
)

// GraphNeo4jStorage implements store.GraphStorage using Neo4j and its native
// vector index.
type GraphNeo4jStorage struct {
	driver   neo4jv5.DriverWithContext
	database string
}

var _ store.GraphStorage = (*GraphNeo4jStorage)(nil)

// NewGraphNeo4jStorageParams contains the connection settings.
type NewGraphNeo4jStorageParams struct {
	URI      string
	Username string
	Password string
	Database string

	MaxConnectionPoolSize int
	ConnectionTimeout     time.Duration
	ConnectRetries        int
}

// NewGraphNeo4jStorage connects to Neo4j and verifies connectivity, retrying
// with exponential backoff.
func NewGraphNeo4jStorage(ctx context.Context, params NewGraphNeo4jStorageParams) (*GraphNeo4jStorage, error) {
	if params.URI == "" {
		return nil, fmt.Errorf("neo4j uri is empty")
	}
	poolSize := params.MaxConnectionPoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	timeout := params.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultConnectionTimeout
	}
	retries := params.ConnectRetries
	if retries <= 0 {
		retries = defaultConnectRetries
	}

	auth := neo4jv5.BasicAuth(params.Username, params.Password, "")
	configure := func(c *neo4jv5.Config) {
		c.MaxConnectionPoolSize = poolSize
		c.ConnectionAcquisitionTimeout = timeout
	}

	var lastErr error
	delay := 100 * time.Millisecond
	for attempt := range retries {
		driver, err := neo4jv5.NewDriverWithContext(params.URI, auth, configure)
		if err != nil {
			return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
		}
		err = driver.VerifyConnectivity(ctx)
		if err == nil {
			return &GraphNeo4jStorage{driver: driver, database: params.Database}, nil
		}
		_ = driver.Close(ctx)
		lastErr = err

		logger.Warn("[Neo4j] Connection attempt failed", "attempt", attempt+1, "err", err)
		select {
		case <-time.After(min(delay, timeout)):
			delay *= 2
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: failed to connect after %d attempts: %w", store.ErrUnavailable, retries, lastErr)
}

// NewGraphNeo4jStorageWithDriver wraps an existing driver.
func NewGraphNeo4jStorageWithDriver(driver neo4jv5.DriverWithContext, database string) *GraphNeo4jStorage {
	return &GraphNeo4jStorage{driver: driver, database: database}
}

// Close releases the driver.
func (s *GraphNeo4jStorage) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

type queryResult struct {
	records []*neo4jv5.Record
	summary neo4jv5.ResultSummary
}

func (s *GraphNeo4jStorage) session(ctx context.Context, mode neo4jv5.AccessMode) (neo4jv5.SessionWithContext, error) {
	if s.driver == nil {
		return nil, fmt.Errorf("%w: driver not connected", store.ErrUnavailable)
	}
	return s.driver.NewSession(ctx, neo4jv5.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   mode,
	}), nil
}

func (s *GraphNeo4jStorage) write(ctx context.Context, cypher string, params map[string]any) (queryResult, error) {
	session, err := s.session(ctx, neo4jv5.AccessModeWrite)
	if err != nil {
		return queryResult{}, err
	}
	defer session.Close(ctx)

	res, err := session.ExecuteWrite(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		return run(ctx, tx, cypher, params)
	})
	if err != nil {
		return queryResult{}, wrapErr(err)
	}
	return res.(queryResult), nil
}

func (s *GraphNeo4jStorage) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4jv5.Record, error) {
	session, err := s.session(ctx, neo4jv5.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	res, err := session.ExecuteRead(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		return run(ctx, tx, cypher, params)
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return res.(queryResult).records, nil
}

// schema runs a schema command in an auto-commit transaction, which index
// and constraint creation requires.
func (s *GraphNeo4jStorage) schema(ctx context.Context, cypher string) error {
	session, err := s.session(ctx, neo4jv5.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, nil)
	if err != nil {
		return wrapErr(err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func run(ctx context.Context, tx neo4jv5.ManagedTransaction, cypher string, params map[string]any) (queryResult, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return queryResult{}, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return queryResult{}, err
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return queryResult{}, err
	}
	return queryResult{records: records, summary: summary}, nil
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if neo4jv5.IsConnectivityError(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}

func isMissingIndex(err error) bool {
	var neoErr *neo4jv5.Neo4jError
	if !errors.As(err, &neoErr) {
		return false
	}
	msg := strings.ToLower(neoErr.Msg)
	return strings.Contains(msg, "no such vector schema index") ||
		strings.Contains(msg, "there is no such index")
}

// quote returns a backtick-quoted identifier after checking it is plain.
func quote(id string) (string, error) {
	if err := store.CheckIdentifier(id); err != nil {
		return "", err
	}
	return "`" + id + "`", nil
}

func stringValue(record *neo4jv5.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func int64Value(record *neo4jv5.Record, key string) int64 {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func propsParam(props map[string]string) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k == "" || k == "name" {
			continue
		}
		out[k] = v
	}
	return out
}

func embeddingParam(embedding []float32) []float64 {
	if len(embedding) == 0 {
		return nil
	}
	out := make([]float64, len(embedding))
	for i, v := range embedding {
		out[i] = float64(v)
	}
	return out
}
