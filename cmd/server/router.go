package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/mjqueue/internal/api"
	apiMiddleware "github.com/phrazzld/mjqueue/internal/api/middleware"
	"github.com/phrazzld/mjqueue/internal/api/shared"
)

// setupRouter registers every route. API routes require a bearer token when
// auth.jwt_secret is configured.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(middleware.Recoverer)

	triggerHandler := api.NewTriggerHandler(app.trigger)
	queueHandler := api.NewQueueHandler(app.queue, app.emitter)

	r.Route("/api/v1", func(r chi.Router) {
		if secret := app.config.Auth.JWTSecret; secret != "" {
			r.Use(apiMiddleware.NewAuthMiddleware(secret).Authenticate)
		}

		r.Route("/trigger", func(r chi.Router) {
			r.Post("/generate", triggerHandler.Generate)
			r.Post("/upscale", triggerHandler.Upscale)
			r.Post("/vary", triggerHandler.Vary)
			r.Post("/reset", triggerHandler.Reset)
			r.Post("/describe", triggerHandler.Describe)
			r.Post("/blend", triggerHandler.Blend)
		})
		r.Get("/task/{id}", triggerHandler.GetTask)
		r.Get("/queue", queueHandler.Stats)
		r.Post("/events", queueHandler.IngestEvent)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
