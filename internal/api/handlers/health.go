package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"qrgen/internal/engine/qrcodes"
	"qrgen/internal/platform/audit"
	apiErrors "qrgen/internal/pkg/errors"
)

type HealthHandler struct {
	service     *qrcodes.Service
	historyFile string
	audit       *audit.Logger
}

func NewHealthHandler(service *qrcodes.Service, historyFile string, auditLogger *audit.Logger) *HealthHandler {
	return &HealthHandler{service: service, historyFile: historyFile, audit: auditLogger}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"

	setCheck := func(name string, err error) {
		if err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = "degraded"
			return
		}
		checks[name] = "healthy"
	}

	setCheck("output_dir", checkDir(h.service.OutputDir()))
	setCheck("history_dir", checkDir(filepath.Dir(h.historyFile)))
	if h.audit != nil {
		setCheck("audit_db", h.audit.Ping(r.Context()))
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Entries   int               `json:"entries"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Entries:   len(h.service.History()),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	apiErrors.WriteJSON(w, statusCode, response)
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "stat", Path: dir, Err: os.ErrInvalid}
	}
	return nil
}
