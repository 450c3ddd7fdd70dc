package handlers

import (
	"net/http"

	"famlink/internal/models"
	"famlink/internal/service"
)

// FlagHandler handles per-family feature flags
type FlagHandler struct {
	flagService   *service.FlagService
	familyService *service.FamilyService
}

// NewFlagHandler creates a new flag handler
func NewFlagHandler(flagService *service.FlagService, familyService *service.FamilyService) *FlagHandler {
	return &FlagHandler{
		flagService:   flagService,
		familyService: familyService,
	}
}

// SetFlag enables or disables a family capability, parent only
func (h *FlagHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	var req struct {
		Key     string `json:"key"`
		Enabled bool   `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	key, err := models.ParseFlagKey(req.Key)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unknown feature flag key", "", nil)
		return
	}

	if err := h.flagService.SetFlag(user.ID, familyID, key, req.Enabled); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"key":     string(key),
		"enabled": req.Enabled,
	})
}

// ListFlags returns a family's flag settings. Flags never set are
// omitted; absent means disabled.
func (h *FlagHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	if err := h.familyService.VerifyFamilyAccess(user.ID, familyID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	flags, err := h.flagService.ListFlags(familyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewFlagViews(flags))
}
