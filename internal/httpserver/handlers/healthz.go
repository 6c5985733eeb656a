package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/digest/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Version       string            `json:"version,omitempty"`
	Commit        string            `json:"commit,omitempty"`
	BuildDate     string            `json:"build_date,omitempty"`
	GoVersion     string            `json:"go_version,omitempty"`
	Components    map[string]string `json:"components"`
}

// Healthz reports liveness plus component status. A degraded cache keeps
// the service healthy; an unreachable database does not.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]string{}
		status := "ok"
		code := http.StatusOK

		if d.StorePing != nil {
			if err := d.StorePing(); err != nil {
				components["postgres"] = "down"
				status = "degraded"
				code = http.StatusServiceUnavailable
			} else {
				components["postgres"] = "ok"
			}
		}

		if d.Cache != nil {
			if err := d.Cache.Ping(r.Context()); err != nil {
				components["redis"] = "down"
			} else {
				components["redis"] = "ok"
			}
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, code, healthzResponse{
			Status:        status,
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: time.Since(start).Seconds(),
			Components:    components,
		})
	}
}
