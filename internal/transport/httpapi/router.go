// Package httpapi exposes the service over HTTP. Transport concerns only:
// parsing, authentication, response shaping and the mapping from domain
// sentinel errors to status codes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"railguard/internal/usecase/agent"
	"railguard/internal/usecase/auth"
	defectops "railguard/internal/usecase/defect"
	stationops "railguard/internal/usecase/station"
)

type Deps struct {
	Defects  *defectops.Service
	Stations *stationops.Service
	Auth     *auth.Service
	Agent    *agent.Supervisor
}

type handler struct {
	deps Deps
}

func NewRouter(deps Deps) http.Handler {
	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", h.health)
	r.Post("/auth/login", h.login)

	// Detection submission is machine-to-machine from the capture side and
	// carries no user identity.
	r.Post("/analyze", h.submitDetection)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/defects", h.listDefects)
		r.Post("/defects/bulk-delete", h.bulkDeleteDefects)
		r.Route("/defects/{defectID}", func(r chi.Router) {
			r.Post("/resolve", h.resolveDefect)
			r.Post("/reopen", h.reopenDefect)
			r.Delete("/", h.deleteDefect)
		})

		r.Route("/stations", func(r chi.Router) {
			r.Get("/", h.listStations)
			r.Post("/", h.createStation)
			r.Route("/{stationID}", func(r chi.Router) {
				r.Get("/", h.getStation)
				r.Put("/", h.updateStation)
				r.Delete("/", h.deleteStation)
			})
		})

		r.Route("/agent", func(r chi.Router) {
			r.Post("/start", h.startAgent)
			r.Post("/stop", h.stopAgent)
			r.Get("/status", h.agentStatus)
		})
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "railway defect detection API is running",
	})
}
