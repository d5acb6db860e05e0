// Package notify pushes change notifications to connected clients over
// websockets so that online devices can pull right away instead of polling.
//
// Notifications carry no record data. A client that receives one pulls
// from its cursor as usual.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// MessageType identifies a notification.
type MessageType string

const (
	// MessageTypeSubscribed is sent once when a subscription is registered.
	MessageTypeSubscribed MessageType = "subscribed"

	// MessageTypeChange announces a committed change.
	MessageTypeChange MessageType = "change"
)

// Message is one notification frame.
type Message struct {
	Type        MessageType       `json:"type"`
	EntityClass model.EntityClass `json:"entityClass,omitempty"`
	EntityID    string            `json:"entityId,omitempty"`
	Action      string            `json:"action,omitempty"`
	Seq         int64             `json:"seq,omitempty"`
}

const (
	// DefaultBuffer is the number of frames queued per subscriber before
	// the subscriber is dropped.
	DefaultBuffer = 64

	writeTimeout = 5 * time.Second
)

// Hub fans committed engine events out to websocket subscribers of the
// event's account. It implements engine.Sink.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// Subscription is one registered listener.
type Subscription struct {
	hub     *Hub
	account string
	ch      chan []byte
	once    sync.Once
}

// NewHub creates a Hub with the given per-subscriber buffer. Non-positive
// values use DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

var _ engine.Sink = (*Hub)(nil)

// Emit broadcasts ev to the subscribers of its account. Events that did not
// change a record are ignored. Emit never blocks: a subscriber whose buffer
// is full is dropped and must reconnect.
func (h *Hub) Emit(_ context.Context, ev engine.Event) {
	if ev.Seq == 0 || ev.AccountID == "" {
		return
	}
	data, err := json.Marshal(Message{
		Type:        MessageTypeChange,
		EntityClass: ev.EntityClass,
		EntityID:    ev.EntityID,
		Action:      ev.Action,
		Seq:         ev.Seq,
	})
	if err != nil {
		slog.Error("encode notification", "error", err)
		return
	}

	var slow []*Subscription
	h.mu.RLock()
	for sub := range h.subs[ev.AccountID] {
		select {
		case sub.ch <- data:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		slog.Warn("dropping slow subscriber", "account", sub.account)
		sub.Close()
	}
}

// Subscribe registers a listener for account.
func (h *Hub) Subscribe(account string) *Subscription {
	sub := &Subscription{hub: h, account: account, ch: make(chan []byte, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[account] == nil {
		h.subs[account] = make(map[*Subscription]struct{})
	}
	h.subs[account][sub] = struct{}{}
	return sub
}

// Count returns the number of subscribers of account.
func (h *Hub) Count(account string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[account])
}

// Total returns the number of subscribers across accounts.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}

// C delivers encoded frames. It is closed when the subscription ends.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs[s.account], s)
		if len(h.subs[s.account]) == 0 {
			delete(h.subs, s.account)
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Serve streams notifications for account to conn until the client goes
// away, ctx is cancelled, or the subscription is dropped. Client frames
// are discarded.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, account string) error {
	sub := h.Subscribe(account)
	defer sub.Close()

	ctx = conn.CloseRead(ctx)

	hello, err := json.Marshal(Message{Type: MessageTypeSubscribed})
	if err != nil {
		return err
	}
	if err := write(ctx, conn, hello); err != nil {
		return err
	}
	slog.Debug("subscriber connected", "account", account, "subscribers", h.Count(account))

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case data, ok := <-sub.C():
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return nil
			}
			if err := write(ctx, conn, data); err != nil {
				return err
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
