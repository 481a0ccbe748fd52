package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/harvest"
)

func readWS(ctx context.Context, t *testing.T, conn *websocket.Conn) broadcast.Event {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v", typ)
	}
	var ev broadcast.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
	return ev
}

func TestWSStream(t *testing.T) {
	e := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + e.srv.URL[len("http"):] + "/api/game/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	first := readWS(ctx, t, conn)
	if first.Type != broadcast.EventState || first.State == nil {
		t.Fatalf("first event = %+v", first)
	}

	e.claim(t, harvest.TeamC, "c9")
	ev := readWS(ctx, t, conn)
	if ev.State == nil || ev.State.Teams[harvest.TeamC].ClaimedBy != "c9" {
		t.Fatalf("claim event = %+v", ev)
	}

	e.broker.Close()
	_, _, err = conn.Read(ctx)
	var ce websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.StatusGoingAway {
		t.Errorf("read after broker close: %v, want going away", err)
	}
}
