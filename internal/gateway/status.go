package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64      `json:"uptime_seconds"`
	StepsFinished int        `json:"steps_finished"`
	Subscribers   int        `json:"subscribers"`
	LastEvent     *StepEvent `json:"last_event"`
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		last, finished := g.hub.Last()
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
			StepsFinished: finished,
			Subscribers:   g.hub.Subscribers(),
			LastEvent:     last,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// handleTrajectory serves the current trajectory document, or 404 when
// no task has started.
func (g *Gateway) handleTrajectory() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s := g.currentTrajectory()
		if s == nil {
			http.Error(w, "no trajectory", http.StatusNotFound)
			return
		}
		data, err := s.Snapshot()
		if err != nil {
			g.logger.Warn("trajectory snapshot failed", "error", err)
			http.Error(w, "trajectory unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}
