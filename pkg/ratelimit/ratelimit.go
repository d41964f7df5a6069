// Package ratelimit implements fixed-window request counting per identifier.
package ratelimit

import (
	"context"
	"math"
	"time"
)

type Config struct {
	Name   string
	Max    int
	Window time.Duration
}

// Record is the counter state for one identifier.
type Record struct {
	Identifier string
	Count      int
	ResetAt    time.Time
}

type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds up so clients never retry early.
func (r Result) RetryAfterSeconds() int {
	if r.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(r.RetryAfter.Seconds()))
}

// Store increments the counter for identifier within a fixed window and
// returns the post-increment record. A new window starts with Count 1 when no
// record exists or now is past ResetAt.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Record, error)
}

type Limiter struct {
	cfg   Config
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(cfg Config, store Store, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Config() Config {
	return l.cfg
}

func (l *Limiter) Check(ctx context.Context, identifier string) (Result, error) {
	now := l.now()
	rec, err := l.store.Increment(ctx, l.cfg.Name+":"+identifier, l.cfg.Window, now)
	if err != nil {
		return Result{}, err
	}

	if rec.Count > l.cfg.Max {
		retry := rec.ResetAt.Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    rec.ResetAt,
			RetryAfter: retry,
		}, nil
	}

	return Result{
		Allowed:   true,
		Remaining: l.cfg.Max - rec.Count,
		ResetAt:   rec.ResetAt,
	}, nil
}
