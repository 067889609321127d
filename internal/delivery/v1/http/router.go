package http

import (
	"net/http"
	"time"

	_ "github.com/DRSN-tech/med-caption/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/internal/usecase"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
	cfg    *cfg.HTTPConfig
}

func NewRouter(router *chi.Mux, logger logger.Logger, cfg *cfg.HTTPConfig) *Router {
	return &Router{router: router, logger: logger, cfg: cfg}
}

func (r *Router) Init(captionUC usecase.CaptionUC) {
	r.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(r.logger),
		middleware.Recoverer,
	)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.router.Get("/health", health)

	captionHandler := NewCaptionHandler(captionUC, r.logger, r.cfg.LegacyStatus)
	registerCaptionRoutes(r.router, captionHandler)

	uiHandler := NewUIHandler(captionUC, r.logger)
	r.router.Get("/", uiHandler.index)
	r.router.Post("/", uiHandler.submit)
}

func registerCaptionRoutes(router chi.Router, h *CaptionHandler) {
	router.Post("/caption/", h.caption)
	router.Post("/caption", h.caption)
}

// requestLogger пишет строку лога на каждый запрос.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			log.Infof("%s %s %d %dB %v request_id=%s remote=%s",
				r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(started),
				middleware.GetReqID(r.Context()), r.RemoteAddr)
		})
	}
}
