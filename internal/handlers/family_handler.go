package handlers

import (
	"net/http"
	"strconv"

	"famlink/internal/models"
	"famlink/internal/security"
	"famlink/internal/service"
)

// FamilyHandler handles family, membership and child profile requests
type FamilyHandler struct {
	familyService     *service.FamilyService
	invitationService *service.InvitationService
	csrf              *security.CSRFGenerator
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, invitationService *service.InvitationService, csrf *security.CSRFGenerator) *FamilyHandler {
	return &FamilyHandler{
		familyService:     familyService,
		invitationService: invitationService,
		csrf:              csrf,
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CreateFamily creates a new family with the caller as its parent
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.familyService.CreateFamily(req.Name, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, NewFamilyView(family))
}

// GetFamily returns a family the caller belongs to
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
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
	family, err := h.familyService.GetFamily(familyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewFamilyView(family))
}

// ListMemberships returns the caller's family memberships
func (h *FamilyHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	memberships, err := h.familyService.GetUserMemberships(user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewMemberViews(memberships))
}

// ListMembers returns the adult members of a family
func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	members, err := h.familyService.GetFamilyMembers(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewMemberViews(members))
}

// JoinFamily joins the caller to a family by its share code
func (h *FamilyHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		FamilyCode string `json:"family_code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.familyService.JoinFamilyByCode(user.ID, req.FamilyCode)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewFamilyView(family))
}

// LeaveFamily removes the caller from a family
func (h *FamilyHandler) LeaveFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	if err := h.familyService.LeaveFamily(user.ID, familyID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// SuspendMember suspends a family member, parent only
func (h *FamilyHandler) SuspendMember(w http.ResponseWriter, r *http.Request) {
	h.setMemberStatus(w, r, true)
}

// ReinstateMember reinstates a suspended family member, parent only
func (h *FamilyHandler) ReinstateMember(w http.ResponseWriter, r *http.Request) {
	h.setMemberStatus(w, r, false)
}

func (h *FamilyHandler) setMemberStatus(w http.ResponseWriter, r *http.Request, suspend bool) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}
	memberID, ok := pathID(r, "userId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid user id", "", nil)
		return
	}

	var err error
	if suspend {
		err = h.familyService.SuspendMember(user.ID, familyID, memberID)
	} else {
		err = h.familyService.ReinstateMember(user.ID, familyID, memberID)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateChild creates a child profile in a family. The generated login
// credentials are returned once, here only.
func (h *FamilyHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	var req struct {
		Name        string `json:"name"`
		AvatarColor string `json:"avatar_color"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	child, err := h.familyService.CreateChild(familyID, user.ID, req.Name, req.AvatarColor)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"child":    NewChildView(child),
		"username": child.Username,
		"password": child.Password,
	})
}

// ListChildren returns the children of a family
func (h *FamilyHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	children, err := h.familyService.GetFamilyChildren(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewChildViews(children))
}

// AddChildToFamily links an existing child into a second family
func (h *FamilyHandler) AddChildToFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}
	childID, ok := pathID(r, "childId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid child id", "", nil)
		return
	}

	if err := h.familyService.AddChildToFamily(childID, familyID, user.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// RegenerateChildPassword issues a fresh password for a child, parent only
func (h *FamilyHandler) RegenerateChildPassword(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	childID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid child id", "", nil)
		return
	}

	password, err := h.familyService.RegenerateChildPassword(childID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"password": password})
}

// ChildLogin authenticates a child with their generated credentials
func (h *FamilyHandler) ChildLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, child, err := h.familyService.ChildLogin(req.Username, req.Password)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid username or password", "", nil)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, ChildSessionCookieName, session.ID, session.ExpiresAt))

	csrfToken, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"child":      NewChildView(child),
		"csrf_token": csrfToken,
	})
}

// ChildLogout ends the child's session
func (h *FamilyHandler) ChildLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(ChildSessionCookieName); err == nil {
		_ = h.familyService.ChildLogout(cookie.Value)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, ChildSessionCookieName))
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// ChildMe returns the authenticated child's profile
func (h *FamilyHandler) ChildMe(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())
	if child == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, NewChildView(child))
}

// InviteMember emails an invitation into a family, parent only
func (h *FamilyHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := models.ParseMemberRole(req.Role)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid member role", "", nil)
		return
	}

	invitation, err := h.invitationService.InviteMember(r.Context(), user.ID, familyID, req.Email, role)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, NewInvitationView(invitation))
}

// GetInvitation looks up a pending invitation by its code
func (h *FamilyHandler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	invitation, err := h.invitationService.GetInvitation(r.PathValue("code"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewInvitationView(invitation))
}

// AcceptInvitation joins the caller to the inviting family
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.invitationService.AcceptInvitation(req.Code, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewMemberView(member))
}
