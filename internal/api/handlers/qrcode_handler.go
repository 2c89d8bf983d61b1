package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"qrgen/internal/engine/qrcodes"
	apiErrors "qrgen/internal/pkg/errors"
)

// QRCodeHandler is the JSON counterpart of WebHandler under /api/v1.
type QRCodeHandler struct {
	service *qrcodes.Service
}

func NewQRCodeHandler(service *qrcodes.Service) *QRCodeHandler {
	return &QRCodeHandler{service: service}
}

func (h *QRCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	apiErrors.WriteJSON(w, http.StatusOK, h.service.History())
}

func (h *QRCodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Link     string `json:"link"`
		Filename string `json:"filename"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	result, err := h.service.Generate(r.Context(), req.Link, req.Filename)
	if err != nil {
		switch {
		case errors.Is(err, qrcodes.ErrMissingLink):
			apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeMissingLink, err.Error(), nil)
		case errors.Is(err, qrcodes.ErrInvalidFilename):
			apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, err.Error(), nil)
		default:
			apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeGeneration,
				"QR code generation failed", map[string]string{"cause": err.Error()})
		}
		return
	}

	status := http.StatusCreated
	if result.Cached {
		status = http.StatusOK
	}
	apiErrors.WriteJSON(w, status, result)
}

func (h *QRCodeHandler) Purge(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Purge(r.Context())
	if err != nil {
		apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, err.Error(), nil)
		return
	}
	apiErrors.WriteJSON(w, http.StatusOK, result)
}
