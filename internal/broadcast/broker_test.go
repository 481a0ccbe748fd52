package broadcast

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/playperu/harvest/internal/harvest"
)

func decode(t *testing.T, data []byte) Event {
	t.Helper()
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	return ev
}

func TestPublishOrder(t *testing.T) {
	b := NewBroker(slog.Default())
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		gs := harvest.NewGameState(time.Now())
		gs.ScenarioIndex = i
		b.Publish(Event{Type: EventState, State: gs})
	}
	b.Publish(Event{Type: EventReset})

	for i := 0; i < 3; i++ {
		ev := decode(t, <-ch)
		if ev.Type != EventState || ev.State.ScenarioIndex != i {
			t.Fatalf("event %d = %s/%d", i, ev.Type, ev.State.ScenarioIndex)
		}
	}
	ev := decode(t, <-ch)
	if ev.Type != EventReset || ev.State != nil {
		t.Errorf("reset event = %+v", ev)
	}
}

func TestPublishFansOut(t *testing.T) {
	b := NewBroker(slog.Default())
	a, cancelA := b.Subscribe()
	defer cancelA()
	c, cancelC := b.Subscribe()
	defer cancelC()

	b.Publish(Event{Type: EventReset})

	for _, ch := range []<-chan []byte{a, c} {
		select {
		case data := <-ch:
			if decode(t, data).Type != EventReset {
				t.Errorf("unexpected event %s", data)
			}
		default:
			t.Error("subscriber did not receive event")
		}
	}
}

func TestSlowSubscriberClosed(t *testing.T) {
	b := NewBroker(slog.Default())
	slow, cancel := b.Subscribe()
	defer cancel()
	fast, cancelFast := b.Subscribe()
	defer cancelFast()

	for i := 0; i < BufferSize+1; i++ {
		b.Publish(Event{Type: EventReset})
		<-fast
	}

	n := 0
	for range slow {
		n++
	}
	if n != BufferSize {
		t.Errorf("slow subscriber got %d events before close, want %d", n, BufferSize)
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d, want 1", b.Len())
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroker(slog.Default())
	ch, cancel := b.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
	b.Publish(Event{Type: EventReset})
}

func TestClose(t *testing.T) {
	b := NewBroker(slog.Default())
	ch, _ := b.Subscribe()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}
