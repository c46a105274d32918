package session

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/neoerr"
)

// RetryPolicy configures the managed-transaction retry loop of spec §4.7.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // fraction of delay added on top, e.g. 0.2 = +0..20%
	MaxDuration  time.Duration
}

// Merge fills any zero-valued field of p from base, letting a caller
// override only the fields it cares about while the driver-wide policy
// supplies the rest.
func (base RetryPolicy) Merge(p RetryPolicy) RetryPolicy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = base.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = base.MaxDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = base.Multiplier
	}
	if p.Jitter <= 0 {
		p.Jitter = base.Jitter
	}
	if p.MaxDuration <= 0 {
		p.MaxDuration = base.MaxDuration
	}
	return p
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	if p.Jitter <= 0 {
		p.Jitter = 0.2
	}
	if p.MaxDuration <= 0 {
		p.MaxDuration = 30 * time.Second
	}
	return p
}

// TxWork is the caller's unit of work for a managed transaction.
type TxWork func(tx *Transaction) (interface{}, error)

// sleep is swapped out in tests so the retry loop's backoff doesn't
// actually block wall-clock time.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// now is swapped out in tests.
var now = time.Now

// ReadTransaction runs fn inside a managed, auto-retried read transaction
// (spec §4.6 "readTransaction(fn)").
func (s *Session) ReadTransaction(ctx context.Context, fn TxWork, policy RetryPolicy) (interface{}, error) {
	return s.managedTransaction(ctx, bolt.AccessModeRead, fn, policy)
}

// WriteTransaction runs fn inside a managed, auto-retried write
// transaction (spec §4.6 "writeTransaction(fn)").
func (s *Session) WriteTransaction(ctx context.Context, fn TxWork, policy RetryPolicy) (interface{}, error) {
	return s.managedTransaction(ctx, bolt.AccessModeWrite, fn, policy)
}

// managedTransaction implements spec §4.7's retry loop: begin a tx of
// mode, run fn, commit; on a retriable error, roll back (if the tx is
// still live), sleep with backoff+jitter, and try again, bounded by
// MaxDuration.
func (s *Session) managedTransaction(ctx context.Context, mode bolt.AccessMode, fn TxWork, policy RetryPolicy) (interface{}, error) {
	policy = policy.withDefaults()
	start := now()
	delay := policy.InitialDelay

	for {
		tx, err := s.beginTransaction(ctx, mode, TxConfig{})
		if err != nil {
			if !neoerr.Retriable(err) || exceedsDeadline(start, delay, policy.MaxDuration) {
				return nil, err
			}
			if err := backoff(ctx, &delay, policy); err != nil {
				return nil, err
			}
			continue
		}

		v, workErr := fn(tx)
		if workErr != nil {
			_ = tx.Rollback(ctx)
			if !neoerr.Retriable(workErr) || exceedsDeadline(start, delay, policy.MaxDuration) {
				return nil, workErr
			}
			if err := backoff(ctx, &delay, policy); err != nil {
				return nil, err
			}
			continue
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			if !neoerr.Retriable(commitErr) || exceedsDeadline(start, delay, policy.MaxDuration) {
				return nil, commitErr
			}
			if err := backoff(ctx, &delay, policy); err != nil {
				return nil, err
			}
			continue
		}

		return v, nil
	}
}

func exceedsDeadline(start time.Time, delay time.Duration, maxDuration time.Duration) bool {
	return now().Sub(start)+delay > maxDuration
}

func backoff(ctx context.Context, delay *time.Duration, policy RetryPolicy) error {
	jittered := jitter(*delay, policy.Jitter)
	if err := sleep(ctx, jittered); err != nil {
		return err
	}
	next := time.Duration(float64(*delay) * policy.Multiplier)
	if next > policy.MaxDelay {
		next = policy.MaxDelay
	}
	*delay = next
	return nil
}

// jitter only ever extends d: the observable retry delay must stay within
// [d, d*(1+fraction)] (spec §8 concrete scenario 3), never dip below the
// base delay.
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	span := float64(d) * fraction
	offset := rand.Float64() * span
	return d + time.Duration(offset)
}
