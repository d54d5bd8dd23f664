package metrics

import (
	"context"
	"time"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
)

// DispatchHook records call counts, latency and in-flight calls.
type DispatchHook struct{}

// OnCallStart implements dispatch.Hook.
func (DispatchHook) OnCallStart(ctx context.Context, info dispatch.CallInfo) context.Context {
	rpcInFlight.WithLabelValues(methodLabel(info)).Inc()
	if info.Kind == dispatch.BidiStream {
		ChatSessions.Inc()
	}
	return ctx
}

// OnCallEnd implements dispatch.Hook.
func (DispatchHook) OnCallEnd(_ context.Context, info dispatch.CallInfo, err error, elapsed time.Duration) {
	method := methodLabel(info)
	kind := info.Kind.String()

	rpcInFlight.WithLabelValues(method).Dec()
	if info.Kind == dispatch.BidiStream {
		ChatSessions.Dec()
	}
	rpcCallsTotal.WithLabelValues(method, kind, dispatch.Outcome(err)).Inc()
	rpcCallDuration.WithLabelValues(method, kind).Observe(elapsed.Seconds())
}

// methodLabel folds unknown method names into one label value.
func methodLabel(info dispatch.CallInfo) string {
	if !info.Known {
		return "unknown"
	}
	return info.Method
}
