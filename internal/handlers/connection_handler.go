package handlers

import (
	"net/http"

	"famlink/internal/models"
	"famlink/internal/service"
)

// ConnectionHandler handles child-to-child connection approval requests
type ConnectionHandler struct {
	connectionService *service.ConnectionService
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connectionService *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService}
}

// RequestConnection lets the authenticated child ask to connect with
// another child. The connection stays pending until a parent decides.
func (h *ConnectionHandler) RequestConnection(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())

	var req struct {
		TargetChildID int64 `json:"target_child_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	conn, err := h.connectionService.RequestConnection(child.ID, req.TargetChildID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, NewConnectionView(conn))
}

// ListMyConnections returns the authenticated child's connections
func (h *ConnectionHandler) ListMyConnections(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())

	connections, err := h.connectionService.ListConnectionsForChild(child.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewConnectionViews(connections))
}

// ApproveConnection approves a pending connection, parent only
func (h *ConnectionHandler) ApproveConnection(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.connectionService.ApproveConnection)
}

// RejectConnection rejects a pending connection, parent only
func (h *ConnectionHandler) RejectConnection(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.connectionService.RejectConnection)
}

// BlockConnection blocks a pending connection, parent only. A blocked
// connection cannot be re-requested.
func (h *ConnectionHandler) BlockConnection(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.connectionService.BlockConnection)
}

func (h *ConnectionHandler) decide(w http.ResponseWriter, r *http.Request, decision func(int64, int64) (*models.Connection, error)) {
	user := GetUserFromContext(r.Context())
	connID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid connection id", "", nil)
		return
	}

	conn, err := decision(connID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewConnectionView(conn))
}

// ListPendingForFamily returns a family's undecided connection requests,
// parent only
func (h *ConnectionHandler) ListPendingForFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid family id", "", nil)
		return
	}

	connections, err := h.connectionService.ListPendingForFamily(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewConnectionViews(connections))
}
