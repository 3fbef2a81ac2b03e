package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"railguard/internal/domain/defect"
	"railguard/internal/ports"
	"railguard/internal/usecase/auth"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain sentinel errors onto the HTTP taxonomy:
// validation 400, credentials 401, authorization 403, unknown id 404,
// conflict 409, vision transport 502.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, defect.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, defect.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, ports.ErrDefectNotFound),
		errors.Is(err, ports.ErrStationNotFound),
		errors.Is(err, ports.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, defect.ErrAlreadyResolved),
		errors.Is(err, defect.ErrAlreadyOpen),
		errors.Is(err, defect.ErrStationHasDefects),
		errors.Is(err, defect.ErrDuplicateStation),
		errors.Is(err, defect.ErrDuplicateUser),
		errors.Is(err, defect.ErrAgentAlreadyRunning),
		errors.Is(err, defect.ErrAgentNotRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ports.ErrVisionUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
