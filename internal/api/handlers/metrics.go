package handlers

import (
	"fmt"
	"net/http"

	"qrgen/internal/engine/qrcodes"
)

// MetricsHandler exposes the workflow counters in the Prometheus text format.
type MetricsHandler struct {
	service *qrcodes.Service
	metrics *qrcodes.Metrics
}

func NewMetricsHandler(service *qrcodes.Service, metrics *qrcodes.Metrics) *MetricsHandler {
	return &MetricsHandler{service: service, metrics: metrics}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap := h.metrics.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP qrgen_up Is the server up\n")
	fmt.Fprintf(w, "# TYPE qrgen_up gauge\n")
	fmt.Fprintf(w, "qrgen_up 1\n")

	fmt.Fprintf(w, "# HELP qrgen_history_entries Entries currently in the history ledger\n")
	fmt.Fprintf(w, "# TYPE qrgen_history_entries gauge\n")
	fmt.Fprintf(w, "qrgen_history_entries %d\n", len(h.service.History()))

	fmt.Fprintf(w, "# HELP qrgen_generations_total Generation requests by outcome\n")
	fmt.Fprintf(w, "# TYPE qrgen_generations_total counter\n")
	fmt.Fprintf(w, "qrgen_generations_total{outcome=\"generated\"} %d\n", snap.Generated)
	fmt.Fprintf(w, "qrgen_generations_total{outcome=\"cached\"} %d\n", snap.Cached)
	fmt.Fprintf(w, "qrgen_generations_total{outcome=\"rejected\"} %d\n", snap.Rejected)
	fmt.Fprintf(w, "qrgen_generations_total{outcome=\"failed\"} %d\n", snap.Failed)

	fmt.Fprintf(w, "# HELP qrgen_purges_total Completed purge operations\n")
	fmt.Fprintf(w, "# TYPE qrgen_purges_total counter\n")
	fmt.Fprintf(w, "qrgen_purges_total %d\n", snap.Purges)

	fmt.Fprintf(w, "# HELP qrgen_purged_files_total Files removed by purge, by result\n")
	fmt.Fprintf(w, "# TYPE qrgen_purged_files_total counter\n")
	fmt.Fprintf(w, "qrgen_purged_files_total{result=\"removed\"} %d\n", snap.FilesPurged)
	fmt.Fprintf(w, "qrgen_purged_files_total{result=\"failed\"} %d\n", snap.PurgeFileFailures)
}
