package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"railguard/internal/ports"
	defectops "railguard/internal/usecase/defect"
)

type detectionRequest struct {
	DefectType     string   `json:"defect_type"`
	Confidence     float64  `json:"confidence"`
	ImageRef       string   `json:"image_url"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Chainage       *string  `json:"chainage"`
	NearestStation *string  `json:"nearest_station"`
}

type defectResponse struct {
	ID                uint64     `json:"id"`
	DefectType        string     `json:"defect_type"`
	Confidence        float64    `json:"confidence"`
	ImageRef          string     `json:"image_url"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	Chainage          *string    `json:"chainage"`
	NearestStation    *string    `json:"nearest_station"`
	Severity          string     `json:"severity"`
	RootCause         string     `json:"root_cause"`
	ActionRequired    string     `json:"action_required"`
	ResolutionSteps   string     `json:"resolution_steps"`
	AssignedStationID *uint64    `json:"assigned_station_id"`
	Status            string     `json:"status"`
	ResolvedAt        *time.Time `json:"resolved_at"`
	ResolvedBy        *uint64    `json:"resolved_by"`
	Timestamp         time.Time  `json:"timestamp"`
}

func toDefectResponse(d ports.Defect) defectResponse {
	return defectResponse{
		ID:                d.DefectID,
		DefectType:        d.DefectType,
		Confidence:        d.Confidence,
		ImageRef:          d.ImageRef,
		Latitude:          d.Latitude,
		Longitude:         d.Longitude,
		Chainage:          d.Chainage,
		NearestStation:    d.NearestStation,
		Severity:          string(d.Severity),
		RootCause:         d.RootCause,
		ActionRequired:    d.ActionRequired,
		ResolutionSteps:   d.ResolutionSteps,
		AssignedStationID: d.AssignedStationID,
		Status:            string(d.Status),
		ResolvedAt:        d.ResolvedAt,
		ResolvedBy:        d.ResolvedBy,
		Timestamp:         d.CreatedAt,
	}
}

// submitDetection runs the enrichment pipeline end-to-end; the response is
// written as soon as the defect is durable, alert dispatch continues in the
// background.
func (h *handler) submitDetection(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.deps.Defects.Ingest(r.Context(), defectops.IngestInput{
		DefectType:     req.DefectType,
		Confidence:     req.Confidence,
		ImageRef:       req.ImageRef,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Chainage:       req.Chainage,
		NearestStation: req.NearestStation,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDefectResponse(created))
}

func (h *handler) listDefects(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	defects, err := h.deps.Defects.List(r.Context(), skip, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]defectResponse, 0, len(defects))
	for _, d := range defects {
		items = append(items, toDefectResponse(d))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) resolveDefect(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	defectID, err := pathID(r, "defectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid defect id")
		return
	}

	resolved, err := h.deps.Defects.Resolve(r.Context(), defectID, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefectResponse(resolved))
}

func (h *handler) reopenDefect(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	defectID, err := pathID(r, "defectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid defect id")
		return
	}

	reopened, err := h.deps.Defects.Reopen(r.Context(), defectID, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefectResponse(reopened))
}

func (h *handler) deleteDefect(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	defectID, err := pathID(r, "defectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid defect id")
		return
	}

	if err := h.deps.Defects.Delete(r.Context(), defectID, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type bulkDeleteRequest struct {
	IDs []uint64 `json:"ids"`
}

type bulkDeleteResponse struct {
	DeletedCount int      `json:"deleted_count"`
	Errors       []string `json:"errors"`
}

func (h *handler) bulkDeleteDefects(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}

	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.deps.Defects.BulkDelete(r.Context(), req.IDs, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := bulkDeleteResponse{
		DeletedCount: result.DeletedCount,
		Errors:       result.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
