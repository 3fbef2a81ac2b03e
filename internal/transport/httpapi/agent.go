package httpapi

import (
	"net/http"

	"railguard/internal/domain/defect"
)

func (h *handler) startAgent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok || !actor.IsAdmin() {
		writeDomainError(w, defect.ErrNotAuthorized)
		return
	}

	if err := h.deps.Agent.Start(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "Running"})
}

func (h *handler) stopAgent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok || !actor.IsAdmin() {
		writeDomainError(w, defect.ErrNotAuthorized)
		return
	}

	if err := h.deps.Agent.Stop(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "Stopped"})
}

func (h *handler) agentStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok || !actor.IsAdmin() {
		writeDomainError(w, defect.ErrNotAuthorized)
		return
	}

	status := h.deps.Agent.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     string(status.State),
		"processed": status.Processed,
		"submitted": status.Submitted,
	})
}
