package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
)

const instrumentationName = "github.com/samirrijal/routeguide"

// TracingHook starts one server span per dispatched call. Parent context is
// taken from incoming gRPC metadata when present.
type TracingHook struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingHook uses tp, or the global provider when tp is nil.
func NewTracingHook(tp trace.TracerProvider) *TracingHook {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingHook{
		tracer:     tp.Tracer(instrumentationName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// OnCallStart implements dispatch.Hook.
func (h *TracingHook) OnCallStart(ctx context.Context, info dispatch.CallInfo) context.Context {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		carrier := propagation.MapCarrier{}
		for k, v := range md {
			if len(v) > 0 {
				carrier[k] = v[0]
			}
		}
		ctx = h.propagator.Extract(ctx, carrier)
	}

	service, method := splitMethod(info.Method)
	ctx, _ = h.tracer.Start(ctx, "routeguide"+info.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
			attribute.String("rpc.routeguide.kind", info.Kind.String()),
		),
	)
	return ctx
}

// OnCallEnd implements dispatch.Hook.
func (h *TracingHook) OnCallEnd(ctx context.Context, info dispatch.CallInfo, err error, elapsed time.Duration) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("rpc.routeguide.outcome", dispatch.Outcome(err)),
		attribute.Float64("rpc.routeguide.duration_seconds", elapsed.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// splitMethod turns "/pkg.Service/Method" into its two parts.
func splitMethod(full string) (service, method string) {
	full = strings.TrimPrefix(full, "/")
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}
