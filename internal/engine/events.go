package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// Event describes an applied change. Events are delivered to sinks only
// after the transaction that produced them has committed.
type Event struct {
	Action      string            `json:"action"`
	AccountID   string            `json:"-"`
	EntityClass model.EntityClass `json:"entityClass,omitempty"`
	EntityID    string            `json:"entityId,omitempty"`
	LocalID     string            `json:"localId,omitempty"`
	Seq         int64             `json:"seq,omitempty"`
	At          time.Time         `json:"at"`
}

// Sink consumes sync events. Emit must not block for long and cannot fail
// the operation that produced the event.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Emit delivers ev to every sink.
func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// LogSink writes every event to slog at debug level.
type LogSink struct{}

// Emit logs ev.
func (LogSink) Emit(_ context.Context, ev Event) {
	slog.Debug("sync event",
		"action", ev.Action,
		"account", ev.AccountID,
		"class", ev.EntityClass,
		"entity", ev.EntityID,
		"seq", ev.Seq,
	)
}

// nopSink discards events.
type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}
