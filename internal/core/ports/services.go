package ports

import (
	"context"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// CallStream is the view of a single in-flight call that handlers see.
// grpc.ServerStream satisfies it directly.
//
// RecvMsg returns io.EOF once the peer has half-closed; any other error is a
// mid-stream transport failure. SendMsg may block for flow control.
type CallStream interface {
	Context() context.Context
	RecvMsg(m any) error
	SendMsg(m any) error
}

// NoteRelay fans route notes out to other replicas of the service.
type NoteRelay interface {
	PublishNote(ctx context.Context, note domain.RouteNote) error
	SubscribeNotes(ctx context.Context, handler func(ctx context.Context, note domain.RouteNote) error) error
}
