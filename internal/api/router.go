package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	apiContext "qrgen/internal/api/context"
	"qrgen/internal/api/handlers"
	"qrgen/internal/api/middleware"
	"qrgen/internal/pkg/errors"
)

type Dependencies struct {
	WebHandler     *handlers.WebHandler
	QRCodeHandler  *handlers.QRCodeHandler
	AuditHandler   *handlers.AuditHandler
	HealthHandler  *handlers.HealthHandler
	MetricsHandler *handlers.MetricsHandler

	// Generated images are served from OutputDir under PublicPrefix.
	OutputDir    string
	PublicPrefix string
}

func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()

	// HTML surface
	router.GET("/", wrap(deps.WebHandler.Home))
	router.POST("/generate", wrap(deps.WebHandler.Generate))
	router.GET("/download/:filename", wrap(deps.WebHandler.Download))
	router.POST("/purge", wrap(deps.WebHandler.Purge))
	router.GET("/history/sheet.pdf", wrap(deps.WebHandler.Sheet))

	// Stored images
	router.ServeFiles(deps.PublicPrefix+"/*filepath", imageFS{root: http.Dir(deps.OutputDir)})

	// JSON API
	router.GET("/api/v1/qrcodes", wrap(deps.QRCodeHandler.List))
	router.POST("/api/v1/qrcodes", wrap(deps.QRCodeHandler.Create))
	router.DELETE("/api/v1/qrcodes", wrap(deps.QRCodeHandler.Purge))
	router.GET("/api/v1/audit", wrap(deps.AuditHandler.List))

	// Operations
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Resource not found", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		zerolog.Ctx(r.Context()).Error().Interface("panic", v).Str("path", r.URL.Path).Msg("recovered from panic")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
	}

	return middleware.RequestContext(router)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
