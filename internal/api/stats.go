package api

import (
	"log"
	"net/http"
	"time"

	"github.com/reedfamily/bdspanel/internal/stats"
)

type StatsHandler struct {
	sampler *stats.Sampler
}

func NewStatsHandler(sampler *stats.Sampler) *StatsHandler {
	return &StatsHandler{sampler: sampler}
}

// Latest returns the most recent player-count sample.
func (h *StatsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	s := h.sampler.Latest()
	if s == nil {
		writeError(w, http.StatusNotFound, "no stats available")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// History returns samples for a period such as 1h, 6h or 24h.
func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1h"
	}
	d, err := time.ParseDuration(period)
	if err != nil || d <= 0 || d > stats.Retention {
		writeError(w, http.StatusBadRequest, "invalid period: use format like 1h, 6h, 24h (at most 168h)")
		return
	}

	samples, err := h.sampler.History(d)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query stats")
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

// Live pushes each new sample over a WebSocket.
func (h *StatsHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: stats websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch := h.sampler.Subscribe()
	defer h.sampler.Unsubscribe(ch)

	if latest := h.sampler.Latest(); latest != nil {
		if err := conn.WriteJSON(latest); err != nil {
			return
		}
	}

	// Read from client to detect disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(s); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
