// Package dispatch routes inbound calls to handlers by method name.
//
// A Dispatcher is transport-agnostic: anything that can present a call as a
// ports.CallStream (a gRPC server stream, a websocket session) can be
// dispatched. Handlers are registered with the generic helpers in
// register.go, which take care of the streaming discipline of each kind.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"github.com/samirrijal/routeguide/internal/core/ports"
)

// Kind is the streaming shape of a method.
type Kind int

const (
	KindUnknown Kind = iota
	Unary
	ServerStream
	ClientStream
	BidiStream
)

func (k Kind) String() string {
	switch k {
	case Unary:
		return "unary"
	case ServerStream:
		return "server_stream"
	case ClientStream:
		return "client_stream"
	case BidiStream:
		return "bidi_stream"
	default:
		return "unknown"
	}
}

// ClientStreams reports whether the client may send more than one message.
func (k Kind) ClientStreams() bool { return k == ClientStream || k == BidiStream }

// ServerStreams reports whether the server may send more than one message.
func (k Kind) ServerStreams() bool { return k == ServerStream || k == BidiStream }

// HandlerFunc serves one call over stream. ctx is the call context after
// hooks have run.
type HandlerFunc func(ctx context.Context, stream ports.CallStream) error

// Method is a registered method.
type Method struct {
	Name    string
	Kind    Kind
	handler HandlerFunc
}

// Dispatcher holds the method table. Methods are registered before serving
// starts; the table is read-only afterwards.
type Dispatcher struct {
	methods map[string]*Method
	hooks   []Hook
}

// New creates an empty dispatcher. Hooks run in order on call start and in
// reverse order on call end.
func New(hooks ...Hook) *Dispatcher {
	return &Dispatcher{methods: make(map[string]*Method), hooks: hooks}
}

// Register binds a raw handler to name. It panics on an empty name, an
// unknown kind or a duplicate registration.
func (d *Dispatcher) Register(name string, kind Kind, h HandlerFunc) {
	if name == "" {
		panic("dispatch: empty method name")
	}
	if kind == KindUnknown || h == nil {
		panic(fmt.Sprintf("dispatch: registering %q: invalid kind or nil handler", name))
	}
	if _, dup := d.methods[name]; dup {
		panic(fmt.Sprintf("dispatch: method %q registered twice", name))
	}
	d.methods[name] = &Method{Name: name, Kind: kind, handler: h}
}

// Lookup returns the method registered under name.
func (d *Dispatcher) Lookup(name string) (Method, bool) {
	m, ok := d.methods[name]
	if !ok {
		return Method{}, false
	}
	return *m, true
}

// Methods returns the registered method names, sorted.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch serves one call. The method is resolved exactly once. An unknown
// method yields an *UnimplementedError; a panicking handler yields an error
// wrapping ErrHandlerPanic. Dispatch itself never panics.
func (d *Dispatcher) Dispatch(method string, stream ports.CallStream) error {
	start := time.Now()
	m, ok := d.methods[method]
	info := CallInfo{Method: method, Known: ok}
	if ok {
		info.Kind = m.Kind
	}

	ctx := d.startHooks(stream.Context(), info)

	var err error
	if !ok {
		err = &UnimplementedError{Method: method, Available: d.Methods()}
	} else {
		err = invoke(ctx, m, &callStream{CallStream: stream, ctx: ctx})
	}

	d.endHooks(ctx, info, err, time.Since(start))
	return err
}

func invoke(ctx context.Context, m *Method, stream ports.CallStream) (err error) {
	defer func() {
		if rv := recover(); rv != nil {
			slog.Error("handler panic", "method", m.Name, "panic", rv, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, m.Name, rv)
		}
	}()
	return m.handler(ctx, stream)
}

// callStream overrides the stream context with the one hooks produced.
type callStream struct {
	ports.CallStream
	ctx context.Context
}

func (s *callStream) Context() context.Context { return s.ctx }
