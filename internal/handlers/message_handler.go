package handlers

import (
	"net/http"
	"strconv"

	"famlink/internal/models"
	"famlink/internal/service"
)

// MessageHandler handles conversations, messages and calls for both
// adult and child sessions
type MessageHandler struct {
	messagingService  *service.MessagingService
	permissionService *service.PermissionService
	identityService   *service.IdentityService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messagingService *service.MessagingService, permissionService *service.PermissionService, identityService *service.IdentityService) *MessageHandler {
	return &MessageHandler{
		messagingService:  messagingService,
		permissionService: permissionService,
		identityService:   identityService,
	}
}

// callerIdentity resolves whichever session kind authenticated the request
func (h *MessageHandler) callerIdentity(r *http.Request) (models.Identity, error) {
	if child := GetChildFromContext(r.Context()); child != nil {
		return h.identityService.ResolveChild(child.ID)
	}
	if user := GetUserFromContext(r.Context()); user != nil {
		return h.identityService.ResolveAdult(user.ID)
	}
	return models.Identity{}, service.ErrIdentityNotResolved
}

func (h *MessageHandler) receiverIdentity(kind string, id int64) (models.Identity, error) {
	parsed, err := models.ParseIdentityKind(kind)
	if err != nil {
		return models.Identity{}, err
	}
	return h.identityService.Resolve(parsed, id)
}

// SendMessage delivers a message from the caller to the receiver. The
// permission check and the write happen in one transaction.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := h.callerIdentity(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req struct {
		ReceiverKind string `json:"receiver_kind"`
		ReceiverID   int64  `json:"receiver_id"`
		Body         string `json:"body"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	receiver, err := h.receiverIdentity(req.ReceiverKind, req.ReceiverID)
	if err != nil {
		// Resolution failures read as a denial so profile existence
		// cannot be probed
		respondWithError(w, http.StatusForbidden, ErrPermissionDenied, "", nil)
		return
	}

	msg, err := h.messagingService.SendMessage(caller, receiver, req.Body)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, NewMessageView(msg))
}

// PlaceCall starts a call record from the caller to the receiver
func (h *MessageHandler) PlaceCall(w http.ResponseWriter, r *http.Request) {
	caller, err := h.callerIdentity(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req struct {
		ReceiverKind string `json:"receiver_kind"`
		ReceiverID   int64  `json:"receiver_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	receiver, err := h.receiverIdentity(req.ReceiverKind, req.ReceiverID)
	if err != nil {
		respondWithError(w, http.StatusForbidden, ErrPermissionDenied, "", nil)
		return
	}

	call, err := h.messagingService.PlaceCall(caller, receiver)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, NewCallView(call))
}

// CompleteCall marks a placed call as answered, ended or missed
func (h *MessageHandler) CompleteCall(w http.ResponseWriter, r *http.Request) {
	caller, err := h.callerIdentity(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	callID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid call id", "", nil)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.messagingService.CompleteCall(caller, callID, models.CallStatus(req.Status)); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// ListConversations returns the caller's conversations
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	caller, err := h.callerIdentity(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	conversations, err := h.messagingService.ListConversations(caller)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewConversationViews(conversations))
}

// ListMessages returns a conversation's messages, oldest first
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	caller, err := h.callerIdentity(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	conversationID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation id", "", nil)
		return
	}

	messages, err := h.messagingService.ListMessages(caller, conversationID, queryLimit(r))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewMessageViews(messages))
}

// ListCalls returns a conversation's call records
func (h *MessageHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	caller, err := h.callerIdentity(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	conversationID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation id", "", nil)
		return
	}

	calls, err := h.messagingService.ListCalls(caller, conversationID, queryLimit(r))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewCallViews(calls))
}

// CheckPermission answers whether the caller may message or call the
// receiver, without touching any conversation state
func (h *MessageHandler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	caller, err := h.callerIdentity(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	receiverID, err := strconv.ParseInt(r.URL.Query().Get("receiver_id"), 10, 64)
	if err != nil || receiverID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid receiver id", "", nil)
		return
	}

	receiver, err := h.receiverIdentity(r.URL.Query().Get("receiver_kind"), receiverID)
	if err != nil {
		respondWithJSON(w, http.StatusOK, map[string]bool{"allowed": false})
		return
	}

	var allowed bool
	switch r.URL.Query().Get("action") {
	case "call":
		allowed, err = h.permissionService.CanCall(caller, receiver)
	default:
		allowed, err = h.permissionService.CanCommunicate(caller, receiver)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
