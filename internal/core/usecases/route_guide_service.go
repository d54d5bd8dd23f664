package usecases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/core/ports"
)

// RouteGuideService implements the four route guide calls on top of a
// GeoIndex and a ChatRoom.
type RouteGuideService struct {
	index       *GeoIndex
	room        *ChatRoom
	relay       ports.NoteRelay
	clock       func() time.Time
	onBroadcast func(BroadcastResult)
}

// Option configures a RouteGuideService.
type Option func(*RouteGuideService)

// WithRelay forwards locally sent notes to other replicas.
func WithRelay(relay ports.NoteRelay) Option {
	return func(s *RouteGuideService) { s.relay = relay }
}

// WithClock overrides time.Now for route timing.
func WithClock(clock func() time.Time) Option {
	return func(s *RouteGuideService) { s.clock = clock }
}

// WithBroadcastObserver is called after every chat broadcast.
func WithBroadcastObserver(fn func(BroadcastResult)) Option {
	return func(s *RouteGuideService) { s.onBroadcast = fn }
}

// NewRouteGuideService creates a new RouteGuideService.
func NewRouteGuideService(index *GeoIndex, room *ChatRoom, opts ...Option) *RouteGuideService {
	s := &RouteGuideService{index: index, room: room, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Index returns the feature index.
func (s *RouteGuideService) Index() *GeoIndex { return s.index }

// Room returns the chat room.
func (s *RouteGuideService) Room() *ChatRoom { return s.room }

// GetFeature returns the feature at p, or an unnamed feature when there is
// none.
func (s *RouteGuideService) GetFeature(_ context.Context, p domain.Point) (domain.Feature, error) {
	return s.index.Lookup(p), nil
}

// ListFeatures sends every named feature inside r. It stops at the first
// send error or when ctx is done.
func (s *RouteGuideService) ListFeatures(ctx context.Context, r domain.Rectangle, send func(domain.Feature) error) error {
	for f := range s.index.Query(r) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := send(f); err != nil {
			return err
		}
	}
	return nil
}

// RecordRoute consumes points until recv reports io.EOF and returns the
// route summary. Any other recv error aborts the route.
func (s *RouteGuideService) RecordRoute(ctx context.Context, recv func() (domain.Point, error)) (domain.RouteSummary, error) {
	agg := NewRouteAggregator(s.index, s.clock)
	for {
		p, err := recv()
		if errors.Is(err, io.EOF) {
			return agg.Finalize()
		}
		if err != nil {
			return domain.RouteSummary{}, err
		}
		if err := ctx.Err(); err != nil {
			return domain.RouteSummary{}, err
		}
		if err := agg.Add(p); err != nil {
			return domain.RouteSummary{}, err
		}
	}
}

// SummarizeRoute aggregates an already collected list of points. Elapsed
// time is always zero.
func (s *RouteGuideService) SummarizeRoute(points []domain.Point) domain.RouteSummary {
	agg := NewRouteAggregator(s.index, s.clock)
	for _, p := range points {
		_ = agg.Add(p)
	}
	summary, _ := agg.Finalize()
	summary.ElapsedTime = 0
	return summary
}

// RouteChat joins the chat room for the duration of the call. Notes read
// from recv go to every other session; notes from other sessions are written
// with send. The call ends when recv reports io.EOF, on the first transport
// error, or when ctx is done.
func (s *RouteGuideService) RouteChat(ctx context.Context, recv func() (domain.RouteNote, error), send func(domain.RouteNote) error) error {
	session := s.room.Join()
	defer s.room.Leave(session.ID())

	recvErr := make(chan error, 1)
	go func() {
		for {
			note, err := recv()
			if err != nil {
				recvErr <- err
				return
			}
			if err := ctx.Err(); err != nil {
				recvErr <- err
				return
			}
			s.broadcast(ctx, session.ID(), note)
		}
	}()

	for {
		select {
		case err := <-recvErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case note, ok := <-session.Outbound():
			if !ok {
				return nil
			}
			if err := send(note); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DeliverRelayed broadcasts a note received from another replica to every
// local session.
func (s *RouteGuideService) DeliverRelayed(_ context.Context, note domain.RouteNote) error {
	s.observe(s.room.Broadcast(NoSession, note))
	return nil
}

func (s *RouteGuideService) broadcast(ctx context.Context, from SessionID, note domain.RouteNote) {
	s.observe(s.room.Broadcast(from, note))
	if s.relay == nil {
		return
	}
	if err := s.relay.PublishNote(ctx, note); err != nil {
		slog.Warn("relay publish failed", "error", err)
	}
}

func (s *RouteGuideService) observe(res BroadcastResult) {
	if res.Dropped > 0 {
		slog.Debug("chat notes dropped", "dropped", res.Dropped, "delivered", res.Delivered)
	}
	if s.onBroadcast != nil {
		s.onBroadcast(res)
	}
}
