package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/engine"
)

const ssePingInterval = 30 * time.Second

// initialEvent is the state event sent on connect. Subscribing happens
// first, so a commit in between is delivered twice rather than missed.
func initialEvent(eng *engine.Engine) ([]byte, error) {
	return json.Marshal(broadcast.Event{Type: broadcast.EventState, State: eng.Snapshot()})
}

func handleEvents(eng *engine.Engine, broker *broadcast.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		ch, cancel := broker.Subscribe()
		defer cancel()

		first, err := initialEvent(eng)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		fmt.Fprintf(w, "data: %s\n\n", first)
		flusher.Flush()

		ping := time.NewTicker(ssePingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
