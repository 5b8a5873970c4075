package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/graphrag/pkg/leaselock"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"
)

const documentLockTTL = 2 * time.Minute

// WithDocumentLock runs fn while holding a lease on fileName, waiting for
// other processes ingesting the same file to finish first. fn's context is
// cancelled if the lease is lost.
func (s *GraphDBStorage) WithDocumentLock(ctx context.Context, fileName string, fn func(ctx context.Context) error) error {
	lease, err := leaselock.New(s.conn).Acquire(ctx, "document:"+fileName, leaselock.Options{
		TTL:          documentLockTTL,
		Wait:         true,
		WaitInterval: 500 * time.Millisecond,
		WaitJitter:   250 * time.Millisecond,
	})
	if err != nil {
		return wrapErr(err)
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Postgres] failed to release document lock", "file", fileName, "err", err)
		}
	}()

	if err := fn(lease.Context); err != nil {
		return err
	}
	if cause := context.Cause(lease.Context); errors.Is(cause, leaselock.ErrLost) {
		return cause
	}
	return nil
}
