package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/engine"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleWS streams the same events as handleEvents over a WebSocket, one
// JSON text message per event. Clients only listen.
func handleWS(logger *slog.Logger, eng *engine.Engine, broker *broadcast.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch, cancel := broker.Subscribe()
		defer cancel()

		ctx := conn.CloseRead(r.Context())

		first, err := initialEvent(eng)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "encoding state")
			return
		}
		if err := writeWS(ctx, conn, first); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-ch:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "reconnect and refetch")
					return
				}
				if err := writeWS(ctx, conn, data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
				err := conn.Ping(pctx)
				cancel()
				if err != nil {
					logger.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
