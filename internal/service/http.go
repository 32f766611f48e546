package service

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gajzzs/hostsbypass/internal/status"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statusResponse struct {
	status.Report
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

// Handler serves GET /status and, when metrics are configured, GET /metrics.
func (d *Daemon) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", d.serveStatus)
	if d.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (d *Daemon) serveStatus(w http.ResponseWriter, req *http.Request) {
	report, at, ok := d.Last()
	if !ok {
		http.Error(w, "no status check completed yet", http.StatusServiceUnavailable)
		return
	}
	resp := statusResponse{Report: report, CheckedAt: &at}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
