package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/pkg/metrics"
)

// originHeader carries the publishing replica's ID so a replica can ignore
// its own notes.
const originHeader = "Routeguide-Origin"

// NoteRelay implements ports.NoteRelay with plain NATS publish/subscribe.
// Delivery is at most once, like the local chat room.
type NoteRelay struct {
	conn    *nats.Conn
	subject string
	origin  string

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect dials NATS and returns a relay on subject.
func Connect(url, subject string) (*NoteRelay, error) {
	conn, err := nats.Connect(url,
		nats.Name("routeguide"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewNoteRelay(conn, subject), nil
}

// NewNoteRelay wraps an existing connection.
func NewNoteRelay(conn *nats.Conn, subject string) *NoteRelay {
	return &NoteRelay{conn: conn, subject: subject, origin: nats.NewInbox()}
}

// PublishNote sends note to every other replica.
func (r *NoteRelay) PublishNote(_ context.Context, note domain.RouteNote) error {
	msg, err := r.encode(note)
	if err != nil {
		return err
	}
	if err := r.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish note: %w", err)
	}
	metrics.RelayedNotes.WithLabelValues("out").Inc()
	return nil
}

// SubscribeNotes calls handler for every note published by another replica.
// The subscription lives until Close.
func (r *NoteRelay) SubscribeNotes(ctx context.Context, handler func(ctx context.Context, note domain.RouteNote) error) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		r.handle(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.subject, err)
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
	return nil
}

// Connected reports whether the underlying connection is up.
func (r *NoteRelay) Connected() bool {
	return r.conn != nil && r.conn.IsConnected()
}

// Close unsubscribes and drains.
func (r *NoteRelay) Close() {
	r.mu.Lock()
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
	r.mu.Unlock()
	_ = r.conn.Drain()
}

func (r *NoteRelay) encode(note domain.RouteNote) (*nats.Msg, error) {
	data, err := json.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("encode note: %w", err)
	}
	msg := nats.NewMsg(r.subject)
	msg.Header.Set(originHeader, r.origin)
	msg.Data = data
	return msg, nil
}

func (r *NoteRelay) handle(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.RouteNote) error) {
	if msg.Header.Get(originHeader) == r.origin {
		return
	}
	var note domain.RouteNote
	if err := json.Unmarshal(msg.Data, &note); err != nil {
		slog.Warn("relay: bad note", "subject", msg.Subject, "error", err)
		return
	}
	metrics.RelayedNotes.WithLabelValues("in").Inc()
	if err := handler(ctx, note); err != nil {
		slog.Warn("relay: handler failed", "error", err)
	}
}
