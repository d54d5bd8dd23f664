package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samirrijal/routeguide/internal/core/ports"
)

// RegisterUnary binds a one-request, one-response handler.
func RegisterUnary[Req, Resp any](d *Dispatcher, name string, h func(context.Context, Req) (Resp, error)) {
	d.Register(name, Unary, func(ctx context.Context, s ports.CallStream) error {
		req, err := recvRequest[Req](s)
		if err != nil {
			return err
		}
		resp, err := h(ctx, req)
		if err != nil {
			return err
		}
		return s.SendMsg(&resp)
	})
}

// RegisterServerStream binds a one-request, many-responses handler. send may
// block for flow control.
func RegisterServerStream[Req, Resp any](d *Dispatcher, name string, h func(context.Context, Req, func(Resp) error) error) {
	d.Register(name, ServerStream, func(ctx context.Context, s ports.CallStream) error {
		req, err := recvRequest[Req](s)
		if err != nil {
			return err
		}
		return h(ctx, req, sender[Resp](s))
	})
}

// RegisterClientStream binds a many-requests, one-response handler. recv
// returns io.EOF once the client has finished sending.
func RegisterClientStream[Req, Resp any](d *Dispatcher, name string, h func(context.Context, func() (Req, error)) (Resp, error)) {
	d.Register(name, ClientStream, func(ctx context.Context, s ports.CallStream) error {
		resp, err := h(ctx, receiver[Req](s))
		if err != nil {
			return err
		}
		return s.SendMsg(&resp)
	})
}

// RegisterBidiStream binds a full-duplex handler. recv and send may be used
// from different goroutines, but each from at most one at a time.
func RegisterBidiStream[Req, Resp any](d *Dispatcher, name string, h func(context.Context, func() (Req, error), func(Resp) error) error) {
	d.Register(name, BidiStream, func(ctx context.Context, s ports.CallStream) error {
		return h(ctx, receiver[Req](s), sender[Resp](s))
	})
}

func recvRequest[Req any](s ports.CallStream) (Req, error) {
	var req Req
	if err := s.RecvMsg(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, fmt.Errorf("%w: missing request message", ErrInvalidArgument)
		}
		return req, err
	}
	return req, nil
}

func receiver[Req any](s ports.CallStream) func() (Req, error) {
	return func() (Req, error) {
		var req Req
		err := s.RecvMsg(&req)
		return req, err
	}
}

func sender[Resp any](s ports.CallStream) func(Resp) error {
	return func(resp Resp) error {
		return s.SendMsg(&resp)
	}
}
