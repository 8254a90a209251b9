// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/repository"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/service"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/template"
)

// userHeader carries the acting user's identifier, supplied by the trusted
// identity provider in front of this service.
const userHeader = "X-User-ID"

// RegistryHandler holds all HTTP handlers for the event registry API.
type RegistryHandler struct {
	registry *service.RegistryService
	claims   *service.ClaimService
}

// NewRegistryHandler constructs a RegistryHandler.
func NewRegistryHandler(registry *service.RegistryService, claims *service.ClaimService) *RegistryHandler {
	return &RegistryHandler{registry: registry, claims: claims}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// actingUser returns the caller's identity. Mutating routes require it.
func actingUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, userHeader+" header is required")
		return "", false
	}
	return userID, true
}

// writeServiceError maps typed failures from the service and repository
// layers onto HTTP statuses. Every distinguishable error kind gets its own
// status so callers can react without parsing messages.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	var capErr *repository.CapacityError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not authorized to perform this action")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Error:     capErr.Error(),
			Remaining: &capErr.Remaining,
		})
	case errors.Is(err, repository.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "you already claimed this material, edit your existing claim instead")
	case errors.Is(err, repository.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "registry busy, please try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *RegistryHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.registry.CreateEvent(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /events/{eventID}
func (h *RegistryHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.registry.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Templates ────────────────────────────────────────────────────────────────

// GetTemplate handles GET /templates?category=...&venue_type=...
// It previews the catalog template a replace would materialize.
func (h *RegistryHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	venue := model.VenueType(r.URL.Query().Get("venue_type"))
	if venue == "" {
		venue = model.VenueHome
	}
	if !venue.Valid() {
		writeError(w, http.StatusBadRequest, "venue_type must be \"home\" or \"studio\"")
		return
	}
	writeJSON(w, http.StatusOK, model.TemplateResponse{
		Category:  category,
		VenueType: venue,
		Found:     template.Has(category),
		Items:     template.Get(category, venue),
	})
}

// ─── Registry configuration ───────────────────────────────────────────────────

// GetRegistry handles GET /events/{eventID}/registry
// Returns config + materials + visibility-filtered claims for the viewer.
func (h *RegistryHandler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	viewerID := r.Header.Get(userHeader)
	view, err := h.registry.ListMaterialsWithClaims(r.Context(), chi.URLParam(r, "eventID"), viewerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateConfig handles PATCH /events/{eventID}/registry/config
func (h *RegistryHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateRegistryConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	cfg, err := h.registry.UpdateConfig(r.Context(), chi.URLParam(r, "eventID"), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// ReplaceFromTemplate handles POST /events/{eventID}/registry/template
// Destructively replaces the material list with the catalog template.
func (h *RegistryHandler) ReplaceFromTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req model.ReplaceFromTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	materials, err := h.registry.ReplaceFromTemplate(r.Context(), chi.URLParam(r, "eventID"), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

// ─── Materials ────────────────────────────────────────────────────────────────

// AddMaterial handles POST /events/{eventID}/registry/materials
func (h *RegistryHandler) AddMaterial(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req model.AddMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	m, err := h.registry.AddMaterial(r.Context(), chi.URLParam(r, "eventID"), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMaterial handles PATCH /materials/{materialID}
func (h *RegistryHandler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	m, err := h.registry.UpdateMaterial(r.Context(), chi.URLParam(r, "materialID"), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RemoveMaterial handles DELETE /materials/{materialID}
// Active claims on the material are cascade-cancelled.
func (h *RegistryHandler) RemoveMaterial(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	if err := h.registry.RemoveMaterial(r.Context(), chi.URLParam(r, "materialID"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRemainingCapacity handles GET /materials/{materialID}/capacity
func (h *RegistryHandler) GetRemainingCapacity(w http.ResponseWriter, r *http.Request) {
	materialID := chi.URLParam(r, "materialID")
	remaining, err := h.claims.RemainingCapacity(r.Context(), materialID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.RemainingCapacityResponse{
		MaterialID: materialID,
		Remaining:  remaining,
	})
}

// ─── Claims ───────────────────────────────────────────────────────────────────

// ClaimMaterial handles POST /materials/{materialID}/claims
func (h *RegistryHandler) ClaimMaterial(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req model.ClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	claim, err := h.claims.Claim(r.Context(), chi.URLParam(r, "materialID"), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

// UpdateClaim handles PATCH /claims/{claimID}
func (h *RegistryHandler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	claim, err := h.claims.Update(r.Context(), chi.URLParam(r, "claimID"), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// UnclaimMaterial handles DELETE /claims/{claimID}
// Idempotent: unclaiming a cancelled claim returns 204 again.
func (h *RegistryHandler) UnclaimMaterial(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	if err := h.claims.Unclaim(r.Context(), chi.URLParam(r, "claimID"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
