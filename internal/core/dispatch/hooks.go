package dispatch

import (
	"context"
	"log/slog"
	"time"
)

// CallInfo describes a dispatched call to hooks.
type CallInfo struct {
	Method string
	Kind   Kind
	// Known is false when no handler is registered for Method.
	Known bool
}

// Hook observes every dispatched call. Implementations must be safe for
// concurrent use.
type Hook interface {
	// OnCallStart may return a derived context that the handler and
	// OnCallEnd will see. Returning nil keeps ctx.
	OnCallStart(ctx context.Context, info CallInfo) context.Context
	OnCallEnd(ctx context.Context, info CallInfo, err error, elapsed time.Duration)
}

// LoggingHook writes one structured log line per call.
type LoggingHook struct {
	Logger *slog.Logger
}

// OnCallStart implements Hook.
func (h LoggingHook) OnCallStart(ctx context.Context, _ CallInfo) context.Context {
	return ctx
}

// OnCallEnd implements Hook.
func (h LoggingHook) OnCallEnd(ctx context.Context, info CallInfo, err error, elapsed time.Duration) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outcome := Outcome(err)
	level := slog.LevelInfo
	switch outcome {
	case OutcomeOK, OutcomeCanceled:
	case OutcomeUnimplemented, OutcomeInvalidArgument, OutcomeDeadlineExceeded:
		level = slog.LevelWarn
	default:
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("method", info.Method),
		slog.String("kind", info.Kind.String()),
		slog.String("outcome", outcome),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(ctx, level, "rpc", attrs...)
}

func (d *Dispatcher) startHooks(ctx context.Context, info CallInfo) context.Context {
	for _, h := range d.hooks {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					slog.Error("dispatch hook start panic", "method", info.Method, "err", rv)
				}
			}()
			if next := h.OnCallStart(ctx, info); next != nil {
				ctx = next
			}
		}()
	}
	return ctx
}

func (d *Dispatcher) endHooks(ctx context.Context, info CallInfo, err error, elapsed time.Duration) {
	for i := len(d.hooks) - 1; i >= 0; i-- {
		h := d.hooks[i]
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					slog.Error("dispatch hook end panic", "method", info.Method, "err", rv)
				}
			}()
			h.OnCallEnd(ctx, info, err, elapsed)
		}()
	}
}
