package httpapi

import (
	"encoding/json"
	"net/http"

	"railguard/internal/ports"
	stationops "railguard/internal/usecase/station"
)

type stationRequest struct {
	Name           string  `json:"name"`
	Code           string  `json:"code"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	ContactEmail   string  `json:"contact_email"`
	MasterUsername string  `json:"master_username,omitempty"`
	MasterPassword string  `json:"master_password,omitempty"`
}

type stationResponse struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ContactEmail string  `json:"contact_email"`
}

func toStationResponse(s ports.Station) stationResponse {
	return stationResponse{
		ID:           s.StationID,
		Name:         s.Name,
		Code:         s.Code,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		ContactEmail: s.ContactEmail,
	}
}

func (h *handler) listStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.deps.Stations.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		items = append(items, toStationResponse(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getStation(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathID(r, "stationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}

	station, err := h.deps.Stations.Get(r.Context(), stationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStationResponse(station))
}

func (h *handler) createStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.deps.Stations.Create(r.Context(), stationops.CreateInput{
		Name:           req.Name,
		Code:           req.Code,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		ContactEmail:   req.ContactEmail,
		MasterUsername: req.MasterUsername,
		MasterPassword: req.MasterPassword,
	}, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"station":         toStationResponse(result.Station),
		"master_username": result.Master.Username,
	})
}

func (h *handler) updateStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	stationID, err := pathID(r, "stationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}

	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.deps.Stations.Update(r.Context(), stationops.UpdateInput{
		StationID:    stationID,
		Name:         req.Name,
		Code:         req.Code,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ContactEmail: req.ContactEmail,
	}, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStationResponse(updated))
}

func (h *handler) deleteStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	stationID, err := pathID(r, "stationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}

	if err := h.deps.Stations.Delete(r.Context(), stationID, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
