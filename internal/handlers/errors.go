package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"famlink/internal/service"
	"famlink/internal/validation"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": userMsg})
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// respondWithServiceError maps known service errors onto HTTP statuses.
// Unknown errors become a generic 500 so internals never leak.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validationErr validation.ValidationError
	if errors.As(err, &validationErr) {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, ErrPermissionDenied, "", nil)
	case errors.Is(err, service.ErrIdentityNotResolved):
		respondWithError(w, http.StatusForbidden, ErrPermissionDenied, "", nil)
	case errors.Is(err, service.ErrNotFamilyParent),
		errors.Is(err, service.ErrNotFamilyMember),
		errors.Is(err, service.ErrNotChildsParent):
		respondWithError(w, http.StatusForbidden, err.Error(), "", nil)
	case errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrChildNotFound),
		errors.Is(err, service.ErrConnectionNotFound),
		errors.Is(err, service.ErrBlockNotFound),
		errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrInvitationNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrConnectionExists),
		errors.Is(err, service.ErrConnectionDecided),
		errors.Is(err, service.ErrTooManyFamilies),
		errors.Is(err, service.ErrCannotBlockParent),
		errors.Is(err, service.ErrInvitationExpired),
		errors.Is(err, service.ErrInvitationUsed):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Unhandled service error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return false
	}
	return true
}
