package handlers

import (
	"net/http"

	"famlink/internal/models"
	"famlink/internal/security"
	"famlink/internal/service"
)

// AuthHandler handles adult authentication requests
type AuthHandler struct {
	authService          *service.AuthService
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

// Register handles new adult account registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		Name       string `json:"name"`
		FamilyCode string `json:"family_code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.authService.Register(req.Email, req.Password, req.Name, req.FamilyCode); err != nil {
		respondWithServiceError(w, err)
		return
	}

	// Auto-login after registration
	session, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Login after registration failed", err)
		return
	}

	h.writeSession(w, r, session, user, http.StatusCreated)
}

// Login handles adult credential login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password", "", nil)
		return
	}

	h.writeSession(w, r, session, user, http.StatusOK)
}

// Logout deletes the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		_ = h.authService.Logout(cookie.Value)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the authenticated adult's account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, NewUserView(user))
}

// writeSession sets the session cookie and returns the account with its
// CSRF token
func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, session *models.Session, user *models.User, status int) {
	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))

	csrfToken, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
		return
	}

	respondWithJSON(w, status, map[string]interface{}{
		"user":       NewUserView(user),
		"csrf_token": csrfToken,
	})
}
