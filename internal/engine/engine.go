package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/schema"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

const (
	// DefaultPageSize is the maximum number of changes one pull returns.
	DefaultPageSize = 500

	// DefaultMaxBatch is the maximum number of operations one push accepts.
	DefaultMaxBatch = 1000
)

// Engine applies pushes and serves pulls against a store.
//
// Engine holds no per-request state. Every call is independent and any
// number of calls may run concurrently; the store serialises writers.
type Engine struct {
	store     *store.Store
	mapper    IDMapper
	validator *schema.Validator
	clock     Clock
	ids       IDGenerator
	sink      Sink
	pageSize  int
	maxBatch  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the server clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the generator for new entity ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithSink sets the sink that receives committed events. Use MultiSink to
// attach more than one.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithValidator sets the payload validator.
func WithValidator(v *schema.Validator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithPageSize caps the number of changes returned by one pull.
//
// Default: 500 (DefaultPageSize)
func WithPageSize(n int) Option {
	return func(e *Engine) {
		e.pageSize = n
	}
}

// WithMaxBatch caps the number of operations accepted by one push.
//
// Default: 1000 (DefaultMaxBatch)
func WithMaxBatch(n int) Option {
	return func(e *Engine) {
		e.maxBatch = n
	}
}

// New creates an Engine over st.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		sink:     nopSink{},
		pageSize: DefaultPageSize,
		maxBatch: DefaultMaxBatch,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = schema.MustNew()
	}
	if e.pageSize <= 0 {
		e.pageSize = DefaultPageSize
	}
	if e.maxBatch <= 0 {
		e.maxBatch = DefaultMaxBatch
	}
	return e
}

// GarbageCollect purges tombstones older than retention. Clients offline for
// longer than retention must re-pull from an empty cursor.
func (e *Engine) GarbageCollect(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("garbage collect: retention must be positive, got %s", retention)
	}
	cutoff := e.clock.Now().Add(-retention)
	n, err := e.store.PurgeTombstones(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("garbage collect: %w", err)
	}
	slog.Info("tombstones purged", "count", n, "cutoff", cutoff)
	return n, nil
}

// Stats returns row counts for an account.
func (e *Engine) Stats(ctx context.Context, accountID string) (store.Stats, error) {
	if accountID == "" {
		return store.Stats{}, NewUnauthorizedError("no account identity")
	}
	return e.store.Stats(ctx, accountID)
}
