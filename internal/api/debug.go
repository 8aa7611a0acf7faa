package api

import (
	"encoding/json"
	"net/http"
	"time"

	"parcelroute/internal/buildinfo"
)

// DebugJSON reports build info and the non-secret parts of the configuration.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	cfg := s.Planner.Config()
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"addr":               cfg.Server.Addr,
			"algorithm":          cfg.Algorithm,
			"rateRps":            cfg.Server.RateRPS,
			"rateBurst":          cfg.Server.RateBurst,
			"webhookMaxAttempts": cfg.Server.WebhookMaxAttempts,
			"metricsKeep":        cfg.Server.MetricsKeep,
			"hasDatabaseUrl":     cfg.Server.DatabaseURL != "",
			"hasRedisUrl":        cfg.Server.RedisURL != "",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
