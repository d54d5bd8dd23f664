package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
	"github.com/samirrijal/routeguide/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsStream carries a bidirectional call over a WebSocket, one JSON text
// frame per message. A normal close from the peer reads as io.EOF.
type wsStream struct {
	ctx  context.Context
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsStream) Context() context.Context { return s.ctx }

func (s *wsStream) RecvMsg(m any) error {
	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return io.EOF
			}
			return err
		}
		if typ != websocket.TextMessage {
			continue
		}
		if err := json.Unmarshal(data, m); err != nil {
			return errors.Join(dispatch.ErrInvalidArgument, err)
		}
		return nil
	}
}

func (s *wsStream) SendMsg(m any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsStream) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// ChatSocketHandler joins a WebSocket client to the route chat. Notes are
// exchanged as JSON RouteNote objects; closing the socket leaves the room.
func ChatSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := &wsStream{ctx: ctx, conn: c}
		logger := LoggerFromCtx(ctx).With("remote", c.RemoteAddr().String())

		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := stream.ping(); err != nil {
						cancel()
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		logger.Info("chat socket connected")
		if err := deps.Dispatcher.Dispatch(dispatch.MethodRouteChat, stream); err != nil {
			logger.Warn("chat socket ended", "error", err)
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
				time.Now().Add(time.Second))
			return
		}
		logger.Info("chat socket disconnected")
	}
}
