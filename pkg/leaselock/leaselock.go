package leaselock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("lease busy")
	ErrLost = errors.New("lease lost")
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Locker hands out expiring leases on keys stored in the run_leases table.
// A held lease is renewed in the background until it is released.
type Locker struct {
	db dbConn
	// Holder prefixes every lease token, e.g. the worker name.
	Holder string
}

type Options struct {
	TTL time.Duration
	// Wait polls until the lease is free instead of returning ErrBusy.
	Wait bool
	Poll time.Duration
}

func (o Options) normalized() Options {
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.Poll <= 0 {
		o.Poll = 500 * time.Millisecond
	}
	return o
}

func (o Options) renewEvery() time.Duration {
	return max(o.TTL/2, time.Second)
}

// Lease is a held key. Its Context is cancelled when the lease is
// released or cannot be renewed.
type Lease struct {
	Key     string
	Token   string
	Context context.Context

	locker *Locker
	cancel context.CancelCauseFunc
	once   sync.Once
	done   chan struct{}
}

func New(db dbConn, holder string) *Locker {
	return &Locker{db: db, Holder: holder}
}

// Run executes fn while holding key.
func (l *Locker) Run(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Lease] Failed to release lease", "key", key, "err", err)
		}
	}()

	if err := fn(lease.Context); err != nil {
		if cause := context.Cause(lease.Context); errors.Is(cause, ErrLost) {
			return fmt.Errorf("%w: %w", cause, err)
		}
		return err
	}
	return nil
}

func (l *Locker) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease key is empty")
	}
	opts = opts.normalized()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := l.Holder + id

	for {
		ok, err := l.exec(ctx, acquireSQL, key, token, opts.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lease %s: %w", key, err)
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, fmt.Errorf("%w: %s", ErrBusy, key)
		}
		logger.Debug("[Lease] Waiting for lease", "key", key)
		if err := sleepJitter(ctx, opts.Poll); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	lease := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		locker:  l,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go lease.keepAlive(opts)
	return lease, nil
}

// exec runs a statement returning the lease key and reports whether a row
// came back.
func (l *Locker) exec(ctx context.Context, sql, key, token string, ttl time.Duration) (bool, error) {
	var got string
	err := l.db.QueryRow(ctx, sql, key, token, ttl.Milliseconds()).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got != "", nil
}

func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.done)
		l.cancel(context.Canceled)
	})
	_, err := l.locker.db.Exec(ctx, releaseSQL, l.Key, l.Token)
	return err
}

func (l *Lease) keepAlive(opts Options) {
	t := time.NewTicker(opts.renewEvery())
	defer t.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(opts.TTL); err != nil {
				logger.Warn("[Lease] Lease renewal failed", "key", l.Key, "err", err)
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renew(ttl time.Duration) error {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			if err := sleepJitter(l.Context, 200*time.Millisecond); err != nil {
				return err
			}
		}
		ctx, cancel := context.WithTimeout(l.Context, 15*time.Second)
		ok, err := l.locker.exec(ctx, renewSQL, l.Key, l.Token, ttl)
		cancel()
		if err == nil && !ok {
			return ErrLost
		}
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func sleepJitter(ctx context.Context, base time.Duration) error {
	d := base + time.Duration(rand.Int64N(int64(base)/2+1))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const acquireSQL = `
INSERT INTO run_leases (lease_key, holder, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lease_key) DO UPDATE
SET holder     = EXCLUDED.holder,
    expires_at = EXCLUDED.expires_at
WHERE run_leases.expires_at < now()
   OR run_leases.holder = EXCLUDED.holder
RETURNING lease_key;
`

const renewSQL = `
UPDATE run_leases
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lease_key = $1 AND holder = $2
RETURNING lease_key;
`

const releaseSQL = `
DELETE FROM run_leases
WHERE lease_key = $1 AND holder = $2;
`
