package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// ErrLocked reports another process running sync passes on the same store.
var ErrLocked = errors.New("local store is locked by another sync process")

const defaultLockTTL = time.Minute

// LockHolder is the stored lock row.
type LockHolder struct {
	Owner   string    `json:"owner"`
	PID     int       `json:"pid"`
	Expires time.Time `json:"expires"`
}

// Lock is an advisory lease on the local store, kept in the metadata table.
// Only one process may run Recover and push at a time; a lease that is not
// refreshed within its TTL is taken over.
type Lock struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	ttl         time.Duration
	owner       string
	log         logging.Logger

	tick func(time.Duration) (<-chan time.Time, func())
}

func NewLock(db *sql.DB, rm repomanager.RepositoryManager, clk clock.Clock, ttl time.Duration, log logging.Logger) *Lock {
	if clk == nil {
		clk = clock.System()
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Lock{
		db:          db,
		repomanager: rm,
		clock:       clk,
		ttl:         ttl,
		owner:       uuid.NewString(),
		log:         log.With("component", "lock"),
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Acquire takes the lease or extends the one this Lock already holds.
func (l *Lock) Acquire(ctx context.Context) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := l.repomanager.Metadata(tx)

		current, err := readHolder(ctx, repo)
		if err != nil {
			return err
		}
		now := l.clock.Now()
		if current != nil && current.Owner != l.owner && now.Before(current.Expires) {
			return fmt.Errorf("%w: pid %d until %s", ErrLocked, current.PID, current.Expires.Format(time.RFC3339))
		}

		value, err := json.Marshal(LockHolder{Owner: l.owner, PID: os.Getpid(), Expires: now.Add(l.ttl)})
		if err != nil {
			return fmt.Errorf("failed to encode lock: %w", err)
		}
		return repo.Set(ctx, metadata.KeyOrchestratorLock, value)
	})
}

// Release drops the lease if this Lock holds it.
func (l *Lock) Release(ctx context.Context) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := l.repomanager.Metadata(tx)

		current, err := readHolder(ctx, repo)
		if err != nil || current == nil || current.Owner != l.owner {
			return err
		}
		return repo.Delete(ctx, metadata.KeyOrchestratorLock)
	})
}

// Hold acquires the lease and refreshes it in the background until release
// is called.
func (l *Lock) Hold(ctx context.Context) (release func(), err error) {
	if err := l.Acquire(ctx); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticks, stop := l.tick(l.ttl / 3)
		defer stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticks:
				if err := l.Acquire(ctx); err != nil {
					l.log.Warn(ctx, "failed to refresh lock", "error", err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			if err := l.Release(context.WithoutCancel(ctx)); err != nil {
				l.log.Warn(ctx, "failed to release lock", "error", err)
			}
		})
	}, nil
}

// Holder returns the current lease, or nil when the store is free.
func (l *Lock) Holder(ctx context.Context) (*LockHolder, error) {
	return readHolder(ctx, l.repomanager.Metadata(l.db))
}

func readHolder(ctx context.Context, repo metadata.Repository) (*LockHolder, error) {
	raw, err := repo.Get(ctx, metadata.KeyOrchestratorLock)
	if err != nil || raw == nil {
		return nil, err
	}
	h := &LockHolder{}
	if err := json.Unmarshal(raw, h); err != nil {
		// an unreadable row is treated as stale
		return nil, nil
	}
	return h, nil
}
