// Package main provides the API router setup.
package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/lecturecast/cmd/lecturecast-api/handlers"
	"github.com/spherical/lecturecast/cmd/lecturecast-api/middleware"
	"github.com/spherical/lecturecast/internal/app"
)

// NewRouter creates the API router with all routes configured.
func NewRouter(a *app.App) http.Handler {
	cfg := a.Config
	logger := a.Logger

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"lecturecast"}`))
	})

	lectures := handlers.NewLectureHandler(logger, a, cfg.Storage.UploadDir, cfg.Server.MaxUploadBytes)
	runs := handlers.NewRunHandler(logger, a.Runs, a, a.Handouts)

	// Uploads run the whole pipeline and are bounded by the run timeout instead.
	r.Post("/upload", lectures.Upload)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/lectures", lectures.Upload)

		r.Group(func(r chi.Router) {
			if cfg.Server.RequestTimeout > 0 {
				r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
			}

			r.Get("/runs", runs.List)
			r.Route("/runs/{runId}", func(r chi.Router) {
				r.Get("/", runs.Get)
				r.Get("/result", runs.Result)
				r.Get("/handout.pdf", runs.Handout)
			})
		})
	})

	prefix := "/" + strings.Trim(cfg.Storage.PublicURLPrefix, "/")
	static := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Storage.PublicDir)))
	r.Handle(prefix+"/*", static)

	return r
}
