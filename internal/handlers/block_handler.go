package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"famlink/internal/models"
	"famlink/internal/service"
)

// BlockHandler handles a child's block list
type BlockHandler struct {
	blockService    *service.BlockService
	identityService *service.IdentityService
	emailService    *service.EmailService
}

// NewBlockHandler creates a new block handler
func NewBlockHandler(blockService *service.BlockService, identityService *service.IdentityService, emailService *service.EmailService) *BlockHandler {
	return &BlockHandler{
		blockService:    blockService,
		identityService: identityService,
		emailService:    emailService,
	}
}

type blockTargetRequest struct {
	BlockedUserID  int64 `json:"blocked_user_id"`
	BlockedChildID int64 `json:"blocked_child_id"`
}

func (req blockTargetRequest) target() (models.BlockTarget, bool) {
	switch {
	case req.BlockedChildID > 0 && req.BlockedUserID == 0:
		return models.ChildTarget(req.BlockedChildID), true
	case req.BlockedUserID > 0 && req.BlockedChildID == 0:
		return models.AdultTarget(req.BlockedUserID), true
	}
	return models.BlockTarget{}, false
}

// SetBlock blocks an adult or another child for the authenticated child.
// The child's parents are notified by email.
func (h *BlockHandler) SetBlock(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())

	var req blockTargetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target, ok := req.target()
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Exactly one of blocked_user_id or blocked_child_id is required", "", nil)
		return
	}

	block, err := h.blockService.SetBlock(child.ID, target)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	go h.notifyParents(child)

	respondWithJSON(w, http.StatusCreated, NewBlockView(block))
}

// ClearBlock lifts a block set by the authenticated child
func (h *BlockHandler) ClearBlock(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())

	var req blockTargetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target, ok := req.target()
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Exactly one of blocked_user_id or blocked_child_id is required", "", nil)
		return
	}

	if err := h.blockService.ClearBlock(child.ID, target); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "unblocked"})
}

// ListBlocks returns the authenticated child's active blocks
func (h *BlockHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())

	blocks, err := h.blockService.ListActiveBlocks(child.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, NewBlockViews(blocks))
}

// notifyParents emails every parent of the child about a new block.
// Best effort, failures are only logged.
func (h *BlockHandler) notifyParents(child *models.Child) {
	if !h.emailService.IsEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	parents, err := h.identityService.ParentsOfChild(child.ID)
	if err != nil {
		log.Printf("Failed to look up parents for block notification: %v", err)
		return
	}
	for _, parent := range parents {
		if err := h.emailService.SendBlockNotificationEmail(ctx, parent.Email, parent.Name, child.Name); err != nil {
			log.Printf("Failed to send block notification to %s: %v", parent.Email, err)
		}
	}
}
