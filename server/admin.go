package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// HandleAdminConfig serves the live-tunable relay settings.
// GET  /admin/config        returns the current values
// POST /admin/config        updates fields present in the JSON body
func HandleAdminConfig(b *Broadcaster) http.HandlerFunc {
	type cfg struct {
		BroadcastIntervalMs *int `json:"broadcastIntervalMs,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ms := int(b.Interval() / time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(cfg{BroadcastIntervalMs: &ms})
		case http.MethodPost:
			var body cfg
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			if body.BroadcastIntervalMs != nil && *body.BroadcastIntervalMs > 0 {
				b.SetInterval(time.Duration(*body.BroadcastIntervalMs) * time.Millisecond)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMetrics dumps the relay counters plus the live session count.
// GET /metrics
func HandleMetrics(registry *Registry, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"sessions": registry.Len(),
			"metrics":  metrics.Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
}
