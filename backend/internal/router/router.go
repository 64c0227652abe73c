package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/itchan-dev/mediable/backend/internal/setup"
	mw "github.com/itchan-dev/mediable/shared/middleware"
	"github.com/itchan-dev/mediable/shared/middleware/metrics"
)

// New builds the chi router with every route of the API.
// Reads are public; every mutating route needs a bearer token, and deleting
// a media record, which detaches it from every owner, needs an admin token.
func New(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(chi_middleware.Compress(5, "application/json"))

	cfg := deps.Config.Public
	if len(cfg.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CorsOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}))
	}
	r.Use(mw.SecurityHeaders(cfg.HTTPS))

	h := deps.Handler
	needAuth := deps.AuthMiddleware.NeedAuth()

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())
	if prefix := strings.TrimSuffix(cfg.Media.ServePrefix, "/"); prefix != "" {
		r.Handle(prefix+"/*", serveFiles(prefix, cfg.Media.RootDir))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/media", func(r chi.Router) {
			r.Get("/{id}", h.GetMediaRecord)
			r.With(deps.AuthMiddleware.AdminOnly()).Delete("/{id}", h.DeleteMediaRecord)
			r.Group(func(r chi.Router) {
				r.Use(needAuth)
				if deps.UploadLimiter != nil {
					r.Use(mw.RateLimitByIP(deps.UploadLimiter))
				}
				r.Post("/", h.UploadMedia)
			})
		})

		r.Route("/owners/{type}", func(r chi.Router) {
			r.Get("/channels", h.GetChannels)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/media", h.GetMedia)
				r.Get("/media/has", h.HasMedia)
				r.Get("/media/first", h.GetFirstMedia)
				r.Get("/media/first-url", h.GetFirstMediaUrl)

				r.Group(func(r chi.Router) {
					r.Use(needAuth)
					r.Post("/media", h.AttachMedia)
					r.Delete("/media", h.DetachMedia)
					r.Delete("/channels/{channel}", h.ClearMediaChannel)
				})
			})
		})
	})

	return r
}

// serveFiles exposes the media root under prefix without directory listings.
func serveFiles(prefix, root string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
