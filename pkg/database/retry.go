package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Retrier re-runs an operation when it fails on a transient connection error.
// Every other error is returned immediately.
type Retrier struct {
	Attempts     int
	InitialDelay time.Duration
	Log          *zap.Logger

	sleep func(context.Context, time.Duration) error
}

// NewRetrier builds a Retrier with exponential backoff starting at delay
func NewRetrier(attempts int, delay time.Duration, log *zap.Logger) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{Attempts: attempts, InitialDelay: delay, Log: log, sleep: sleepCtx}
}

// Do runs fn until it succeeds, fails permanently or attempts are exhausted
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	delay := r.InitialDelay
	var err error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == r.Attempts || !IsTransient(err) {
			return err
		}

		r.Log.Warn("Database connection failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.Attempts),
			zap.Duration("delay", delay))

		if serr := r.sleep(ctx, delay); serr != nil {
			return errors.Join(err, serr)
		}
		delay *= 2
	}
	return err
}

// IsTransient reports whether err looks like a dropped or refused connection
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
