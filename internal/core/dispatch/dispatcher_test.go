package dispatch_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/core/usecases"
)

// --- Fake CallStream ---

type fakeStream struct {
	ctx     context.Context
	mu      sync.Mutex
	in      []any
	recvErr error // returned once in is drained; io.EOF when nil
	out     []any
	sendErr error
}

func newStream(in ...any) *fakeStream {
	return &fakeStream{ctx: context.Background(), in: in}
}

func (s *fakeStream) Context() context.Context { return s.ctx }

func (s *fakeStream) RecvMsg(m any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.in) == 0 {
		if s.recvErr != nil {
			return s.recvErr
		}
		return io.EOF
	}
	v := s.in[0]
	s.in = s.in[1:]
	reflect.ValueOf(m).Elem().Set(reflect.ValueOf(v))
	return nil
}

func (s *fakeStream) SendMsg(m any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.out = append(s.out, reflect.ValueOf(m).Elem().Interface())
	return nil
}

// --- Recording hook ---

type ctxKey struct{}

type recordingHook struct {
	mu     sync.Mutex
	starts []dispatch.CallInfo
	errs   []error
}

func (h *recordingHook) OnCallStart(ctx context.Context, info dispatch.CallInfo) context.Context {
	h.mu.Lock()
	h.starts = append(h.starts, info)
	h.mu.Unlock()
	return context.WithValue(ctx, ctxKey{}, "hooked")
}

func (h *recordingHook) OnCallEnd(ctx context.Context, info dispatch.CallInfo, err error, elapsed time.Duration) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

type panickyHook struct{}

func (panickyHook) OnCallStart(ctx context.Context, info dispatch.CallInfo) context.Context {
	panic("start")
}

func (panickyHook) OnCallEnd(ctx context.Context, info dispatch.CallInfo, err error, elapsed time.Duration) {
	panic("end")
}

func pt(lat, lon int32) domain.Point {
	return domain.Point{Latitude: lat, Longitude: lon}
}

func routeGuide(hooks ...dispatch.Hook) *dispatch.Dispatcher {
	svc := usecases.NewRouteGuideService(
		usecases.NewGeoIndex([]domain.Feature{
			{Name: "Berkshire Valley", Location: pt(409146138, -746188906)},
			{Name: "Lake Hopatcong", Location: pt(407838351, -746143763)},
			{Name: "Bermuda", Location: pt(323000000, -647800000)},
		}),
		usecases.NewChatRoom(8),
	)
	d := dispatch.New(hooks...)
	dispatch.RegisterRouteGuide(d, svc)
	return d
}

// --- Tests ---

func TestDispatcher_Methods(t *testing.T) {
	d := routeGuide()

	want := []string{
		dispatch.MethodGetFeature,
		dispatch.MethodListFeatures,
		dispatch.MethodRecordRoute,
		dispatch.MethodRouteChat,
	}
	if got := d.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	kinds := map[string]dispatch.Kind{
		dispatch.MethodGetFeature:   dispatch.Unary,
		dispatch.MethodListFeatures: dispatch.ServerStream,
		dispatch.MethodRecordRoute:  dispatch.ClientStream,
		dispatch.MethodRouteChat:    dispatch.BidiStream,
	}
	for name, kind := range kinds {
		m, ok := d.Lookup(name)
		if !ok || m.Kind != kind {
			t.Errorf("expected %s to be %v, got %v (found=%v)", name, kind, m.Kind, ok)
		}
	}
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	hook := &recordingHook{}
	d := routeGuide(hook)

	err := d.Dispatch("/routeguide.RouteGuide/Nope", newStream())
	if !errors.Is(err, dispatch.ErrUnimplemented) {
		t.Fatalf("expected ErrUnimplemented, got %v", err)
	}
	var ue *dispatch.UnimplementedError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnimplementedError, got %T", err)
	}
	if len(ue.Available) != 4 {
		t.Errorf("expected 4 available methods, got %v", ue.Available)
	}
	if len(hook.starts) != 1 || hook.starts[0].Known {
		t.Errorf("expected one unknown call observed, got %+v", hook.starts)
	}
}

func TestDispatcher_GetFeature(t *testing.T) {
	d := routeGuide()
	s := newStream(pt(409146138, -746188906))

	if err := d.Dispatch(dispatch.MethodGetFeature, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.out) != 1 {
		t.Fatalf("expected 1 response, got %d", len(s.out))
	}
	if f := s.out[0].(domain.Feature); f.Name != "Berkshire Valley" {
		t.Errorf("expected Berkshire Valley, got %q", f.Name)
	}
}

func TestDispatcher_UnaryMissingRequest(t *testing.T) {
	d := routeGuide()

	err := d.Dispatch(dispatch.MethodGetFeature, newStream())
	if !errors.Is(err, dispatch.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestDispatcher_ListFeatures(t *testing.T) {
	d := routeGuide()
	s := newStream(domain.Rectangle{Lo: pt(420000000, -730000000), Hi: pt(400000000, -750000000)})

	if err := d.Dispatch(dispatch.MethodListFeatures, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.out) != 2 {
		t.Fatalf("expected 2 features, got %d", len(s.out))
	}
	if s.out[0].(domain.Feature).Name != "Berkshire Valley" || s.out[1].(domain.Feature).Name != "Lake Hopatcong" {
		t.Errorf("unexpected order: %v", s.out)
	}
}

func TestDispatcher_RecordRoute(t *testing.T) {
	d := routeGuide()
	s := newStream(pt(409146138, -746188906), pt(407838351, -746143763), pt(0, 0))

	if err := d.Dispatch(dispatch.MethodRecordRoute, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.out) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(s.out))
	}
	sum := s.out[0].(domain.RouteSummary)
	if sum.PointCount != 3 || sum.FeatureCount != 2 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestDispatcher_RecordRouteTransportError(t *testing.T) {
	d := routeGuide()
	s := newStream(pt(1, 1))
	s.recvErr = errors.New("stream reset")

	err := d.Dispatch(dispatch.MethodRecordRoute, s)
	if err == nil || err.Error() != "stream reset" {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(s.out) != 0 {
		t.Errorf("expected no summary, got %v", s.out)
	}
}

func TestDispatcher_RouteChatAloneEndsOnEOF(t *testing.T) {
	d := routeGuide()
	s := newStream(domain.RouteNote{Location: pt(1, 1), Message: "hello?"})

	if err := d.Dispatch(dispatch.MethodRouteChat, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.out) != 0 {
		t.Errorf("expected no notes for a lone session, got %v", s.out)
	}
}

func TestDispatcher_HandlerPanicRecovered(t *testing.T) {
	hook := &recordingHook{}
	d := dispatch.New(hook)
	dispatch.RegisterUnary(d, "/test/Boom", func(ctx context.Context, p domain.Point) (domain.Feature, error) {
		panic("boom")
	})

	err := d.Dispatch("/test/Boom", newStream(pt(1, 1)))
	if !errors.Is(err, dispatch.ErrHandlerPanic) {
		t.Fatalf("expected ErrHandlerPanic, got %v", err)
	}
	if len(hook.errs) != 1 || !errors.Is(hook.errs[0], dispatch.ErrHandlerPanic) {
		t.Errorf("expected hook to observe the panic, got %v", hook.errs)
	}
}

func TestDispatcher_HookContextReachesHandler(t *testing.T) {
	d := dispatch.New(panickyHook{}, &recordingHook{})
	var seen any
	dispatch.RegisterBidiStream(d, "/test/Echo", func(ctx context.Context, recv func() (domain.RouteNote, error), send func(domain.RouteNote) error) error {
		seen = ctx.Value(ctxKey{})
		for {
			n, err := recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := send(n); err != nil {
				return err
			}
		}
	})

	s := newStream(domain.RouteNote{Message: "a"}, domain.RouteNote{Message: "b"})
	if err := d.Dispatch("/test/Echo", s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "hooked" {
		t.Errorf("expected hook context value, got %v", seen)
	}
	if len(s.out) != 2 {
		t.Errorf("expected 2 echoed notes, got %d", len(s.out))
	}
}

func TestDispatcher_SendErrorPropagates(t *testing.T) {
	d := routeGuide()
	s := newStream(domain.Rectangle{Lo: pt(-900000000, -1800000000), Hi: pt(900000000, 1800000000)})
	s.sendErr = errors.New("write failed")

	if err := d.Dispatch(dispatch.MethodListFeatures, s); err == nil || err.Error() != "write failed" {
		t.Errorf("expected write failure, got %v", err)
	}
}

func TestDispatcher_DuplicateRegistrationPanics(t *testing.T) {
	d := routeGuide()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	dispatch.RegisterUnary(d, dispatch.MethodGetFeature, func(ctx context.Context, p domain.Point) (domain.Feature, error) {
		return domain.Feature{}, nil
	})
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		dispatch.OutcomeOK:               nil,
		dispatch.OutcomeUnimplemented:    &dispatch.UnimplementedError{Method: "x"},
		dispatch.OutcomeCanceled:         context.Canceled,
		dispatch.OutcomeDeadlineExceeded: context.DeadlineExceeded,
		dispatch.OutcomeInvalidArgument:  dispatch.ErrInvalidArgument,
		dispatch.OutcomePanic:            dispatch.ErrHandlerPanic,
		dispatch.OutcomeError:            errors.New("other"),
	}
	for want, err := range cases {
		if got := dispatch.Outcome(err); got != want {
			t.Errorf("Outcome(%v): expected %s, got %s", err, want, got)
		}
	}
}
