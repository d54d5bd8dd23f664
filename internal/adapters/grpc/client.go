package grpcadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
	"github.com/samirrijal/routeguide/internal/core/domain"
)

var (
	listFeaturesDesc = &grpc.StreamDesc{StreamName: "ListFeatures", ServerStreams: true}
	recordRouteDesc  = &grpc.StreamDesc{StreamName: "RecordRoute", ClientStreams: true}
	routeChatDesc    = &grpc.StreamDesc{StreamName: "RouteChat", ServerStreams: true, ClientStreams: true}
)

// Client is a typed route guide client.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr. Without options the connection is plaintext.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})))

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Conn exposes the underlying connection, e.g. for health checks.
func (c *Client) Conn() *grpc.ClientConn { return c.conn }

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// GetFeature returns the feature at p; the name is empty when there is none.
func (c *Client) GetFeature(ctx context.Context, p domain.Point) (domain.Feature, error) {
	var f domain.Feature
	if err := c.conn.Invoke(ctx, dispatch.MethodGetFeature, &p, &f); err != nil {
		return domain.Feature{}, err
	}
	return f, nil
}

// ListFeatures streams the named features inside r. Iteration stops at the
// first error, which is yielded once.
func (c *Client) ListFeatures(ctx context.Context, r domain.Rectangle) iter.Seq2[domain.Feature, error] {
	return func(yield func(domain.Feature, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := c.conn.NewStream(ctx, listFeaturesDesc, dispatch.MethodListFeatures)
		if err != nil {
			yield(domain.Feature{}, err)
			return
		}
		if err := stream.SendMsg(&r); err != nil {
			yield(domain.Feature{}, err)
			return
		}
		if err := stream.CloseSend(); err != nil {
			yield(domain.Feature{}, err)
			return
		}
		for {
			var f domain.Feature
			err := stream.RecvMsg(&f)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(domain.Feature{}, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

// RecordRoute sends every point of route and returns the server's summary.
func (c *Client) RecordRoute(ctx context.Context, route iter.Seq[domain.Point]) (domain.RouteSummary, error) {
	stream, err := c.conn.NewStream(ctx, recordRouteDesc, dispatch.MethodRecordRoute)
	if err != nil {
		return domain.RouteSummary{}, err
	}
	for p := range route {
		if err := stream.SendMsg(&p); err != nil {
			// io.EOF means the server already ended the call; its status
			// is reported by RecvMsg below.
			if errors.Is(err, io.EOF) {
				break
			}
			return domain.RouteSummary{}, err
		}
	}
	if err := stream.CloseSend(); err != nil {
		return domain.RouteSummary{}, err
	}

	var summary domain.RouteSummary
	if err := stream.RecvMsg(&summary); err != nil {
		return domain.RouteSummary{}, err
	}
	return summary, nil
}

// ChatStream is an open RouteChat call. Send and Recv may be used from
// different goroutines.
type ChatStream struct {
	stream grpc.ClientStream
}

// RouteChat opens a chat call. Cancel ctx to abandon it.
func (c *Client) RouteChat(ctx context.Context) (*ChatStream, error) {
	stream, err := c.conn.NewStream(ctx, routeChatDesc, dispatch.MethodRouteChat)
	if err != nil {
		return nil, err
	}
	return &ChatStream{stream: stream}, nil
}

// Send posts a note to the room.
func (s *ChatStream) Send(n domain.RouteNote) error {
	return s.stream.SendMsg(&n)
}

// Recv returns the next note from another participant, or io.EOF once the
// server has ended the call.
func (s *ChatStream) Recv() (domain.RouteNote, error) {
	var n domain.RouteNote
	err := s.stream.RecvMsg(&n)
	return n, err
}

// CloseSend tells the server no more notes will be sent, which ends the
// call.
func (s *ChatStream) CloseSend() error {
	return s.stream.CloseSend()
}
