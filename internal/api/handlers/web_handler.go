package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	apiContext "qrgen/internal/api/context"
	"qrgen/internal/engine/history"
	"qrgen/internal/engine/qrcodes"
	"qrgen/internal/engine/sheet"
	apiErrors "qrgen/internal/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"ago": func(ts int64) string {
		return humanize.Time(time.Unix(ts, 0))
	},
	"unix": func(ts int64) string {
		return time.Unix(ts, 0).UTC().Format(time.RFC3339)
	},
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Link     string
	Filename string
	QRPath   string
	Cached   bool
	Error    string
	Success  string
	History  []history.Entry
}

// WebHandler serves the HTML form, downloads, purge and the printable sheet.
type WebHandler struct {
	service *qrcodes.Service
}

func NewWebHandler(service *qrcodes.Service) *WebHandler {
	return &WebHandler{service: service}
}

func (h *WebHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

func (h *WebHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "Invalid form submission."})
		return
	}
	link := r.PostFormValue("link")
	filename := r.PostFormValue("filename")

	result, err := h.service.Generate(r.Context(), link, filename)
	if err != nil {
		status, message := generateErrorMessage(err)
		h.render(w, r, status, pageData{Link: link, Filename: filename, Error: message})
		return
	}

	h.render(w, r, http.StatusOK, pageData{
		Link:     result.Link,
		Filename: result.Filename,
		QRPath:   result.Path,
		Cached:   result.Cached,
		History:  result.History,
	})
}

func (h *WebHandler) Download(w http.ResponseWriter, r *http.Request) {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)

	path, err := h.service.Resolve(params.ByName("filename"))
	if err != nil {
		apiErrors.WriteError(w, http.StatusNotFound, apiErrors.ErrCodeNotFound, "QR code not found", nil)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		// removed between Resolve and Open, e.g. by a concurrent purge
		apiErrors.WriteError(w, http.StatusNotFound, apiErrors.ErrCodeNotFound, "QR code not found", nil)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, "Failed to read QR code", nil)
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *WebHandler) Purge(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Purge(r.Context())
	if err != nil {
		h.render(w, r, http.StatusInternalServerError, pageData{Error: "Purge failed: " + err.Error()})
		return
	}

	message := fmt.Sprintf("History cleared. Removed %d file(s).", result.Removed)
	if result.Failed > 0 {
		message += fmt.Sprintf(" %d file(s) could not be deleted.", result.Failed)
	}
	h.render(w, r, http.StatusOK, pageData{Success: message})
}

func (h *WebHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sheet.Render(&buf, "QR codes", h.service.History(), h.service.Resolve); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render sheet")
		apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, "Failed to render sheet", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="qrcodes.pdf"`)
	w.Write(buf.Bytes())
}

// render always shows the history newest first.
func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	if data.History == nil {
		data.History = h.service.History()
	}
	data.History = newestFirst(data.History)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func newestFirst(entries []history.Entry) []history.Entry {
	out := make([]history.Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

func generateErrorMessage(err error) (int, string) {
	switch {
	case errors.Is(err, qrcodes.ErrMissingLink):
		return http.StatusBadRequest, "Please enter a link."
	case errors.Is(err, qrcodes.ErrInvalidFilename):
		return http.StatusBadRequest, "Please enter a file name using letters, digits, '.', '_' or '-'."
	default:
		return http.StatusInternalServerError, "Could not generate the QR code: " + err.Error()
	}
}
