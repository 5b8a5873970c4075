package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.key
	return nil
}

// fakeDB keeps the holder of every key. Leases never expire.
type fakeDB struct {
	mu       sync.Mutex
	holders  map[string]string
	renewals int
	failWith error
}

func newFakeDB() *fakeDB {
	return &fakeDB{holders: map[string]string{}}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sql == releaseSQL {
		key, token := args[0].(string), args[1].(string)
		if f.holders[key] == token {
			delete(f.holders, key)
		}
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return fakeRow{err: f.failWith}
	}
	key, token := args[0].(string), args[1].(string)
	switch sql {
	case tryAcquireSQL:
		if holder, ok := f.holders[key]; ok && holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.holders[key] = token
		return fakeRow{key: key}
	case renewSQL:
		f.renewals++
		if f.holders[key] != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (f *fakeDB) steal(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holders[key] = "someone-else"
}

func TestAcquireAndRelease(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	lease, err := c.Acquire(t.Context(), "doc:a.txt", Options{TokenPrefix: "worker-1:"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lease.Token[:len("worker-1:")] != "worker-1:" {
		t.Fatalf("token %q lacks prefix", lease.Token)
	}

	if _, err := c.Acquire(t.Context(), "doc:a.txt", Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Acquire err = %v, want ErrBusy", err)
	}

	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if lease.Context.Err() == nil {
		t.Fatalf("lease context should be cancelled after release")
	}

	again, err := c.Acquire(t.Context(), "doc:a.txt", Options{})
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release(context.Background())
}

func TestAcquireRejectsEmptyKey(t *testing.T) {
	if _, err := New(newFakeDB()).Acquire(t.Context(), "", Options{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestAcquireWaitsUntilFree(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	first, err := c.Acquire(t.Context(), "k", Options{})
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = first.Release(context.Background())
	}()

	second, err := c.Acquire(t.Context(), "k", Options{Wait: true, WaitInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("waiting Acquire: %v", err)
	}
	_ = second.Release(context.Background())
}

func TestAcquireWaitHonoursContext(t *testing.T) {
	db := newFakeDB()
	c := New(db)
	held, err := c.Acquire(t.Context(), "k", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release(context.Background())

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Acquire(ctx, "k", Options{Wait: true, WaitInterval: 5 * time.Millisecond}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestWithLeaseReportsLostLease(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	err := c.WithLease(t.Context(), "k", Options{TTL: 2 * time.Second, RenewEvery: time.Second}, func(ctx context.Context) error {
		db.steal("k")
		<-ctx.Done()
		return nil
	})
	if !errors.Is(err, ErrLost) {
		t.Fatalf("err = %v, want ErrLost", err)
	}
}

func TestWithLeasePassesThroughErrors(t *testing.T) {
	c := New(newFakeDB())
	boom := errors.New("boom")

	err := c.WithLease(t.Context(), "k", Options{}, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestAcquireDatabaseError(t *testing.T) {
	db := newFakeDB()
	db.failWith = errors.New("connection refused")

	if _, err := New(db).Acquire(t.Context(), "k", Options{}); err == nil || errors.Is(err, ErrBusy) {
		t.Fatalf("expected database error, got %v", err)
	}
}
