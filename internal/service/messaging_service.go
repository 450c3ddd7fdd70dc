package service

import (
	"errors"
	"fmt"

	"famlink/internal/database"
	"famlink/internal/models"
	"famlink/internal/repository"
	"famlink/internal/validation"
)

// ErrPermissionDenied is the single outcome for every refused attempt.
// It deliberately carries no reason, so a blocked party cannot learn
// they were blocked.
var ErrPermissionDenied = errors.New("permission denied")

var ErrConversationNotFound = errors.New("conversation not found")

// MessagingService is the enforcement layer for message and call
// writes. Every write runs the permission check and the gated mutation
// in one transaction, so a block or connection change landing between
// check and write cannot slip a message through.
type MessagingService struct {
	db               *database.DB
	permissions      *PermissionService
	relationships    *RelationshipService
	conversationRepo *repository.ConversationRepository
}

// NewMessagingService creates a new messaging service
func NewMessagingService(db *database.DB, permissions *PermissionService, relationships *RelationshipService, conversationRepo *repository.ConversationRepository) *MessagingService {
	return &MessagingService{
		db:               db,
		permissions:      permissions,
		relationships:    relationships,
		conversationRepo: conversationRepo,
	}
}

// SendMessage checks permission and stores the message atomically
func (s *MessagingService) SendMessage(sender, receiver models.Identity, body string) (*models.Message, error) {
	if err := validation.ValidateMessageBody(body); err != nil {
		return nil, err
	}

	pair, err := conversationPair(sender, receiver)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	allowed, err := s.permissions.WithTx(tx).CanCommunicate(sender, receiver)
	if err != nil || !allowed {
		return nil, ErrPermissionDenied
	}

	conv, err := s.conversationRepo.WithTx(tx).GetOrCreateConversation(pair)
	if err != nil {
		return nil, err
	}

	msg, err := s.conversationRepo.WithTx(tx).CreateMessage(conv.ID, sender.Kind, sender.ID, body)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// PlaceCall checks calling permission and stores the call record
// atomically
func (s *MessagingService) PlaceCall(caller, receiver models.Identity) (*models.CallRecord, error) {
	pair, err := conversationPair(caller, receiver)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	allowed, err := s.permissions.WithTx(tx).CanCall(caller, receiver)
	if err != nil || !allowed {
		return nil, ErrPermissionDenied
	}

	conv, err := s.conversationRepo.WithTx(tx).GetOrCreateConversation(pair)
	if err != nil {
		return nil, err
	}

	call, err := s.conversationRepo.WithTx(tx).CreateCallRecord(conv.ID, caller.Kind, caller.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit call record: %w", err)
	}
	return call, nil
}

// CompleteCall moves a call record into a terminal state. Only a
// participant of the call's conversation may complete it.
func (s *MessagingService) CompleteCall(caller models.Identity, callID int64, status models.CallStatus) error {
	if status != models.CallAnswered && status != models.CallMissed && status != models.CallEnded {
		return fmt.Errorf("invalid call status: %s", status)
	}

	call, err := s.conversationRepo.GetCallRecordByID(callID)
	if err != nil {
		return err
	}
	if call == nil {
		return ErrPermissionDenied
	}

	if err := s.authorizeRead(caller, call.ConversationID); err != nil {
		return err
	}
	return s.conversationRepo.UpdateCallStatus(callID, status)
}

// GetOrCreateConversation resolves the canonical channel for a
// permitted pair. The permission check runs in the same transaction as
// the create.
func (s *MessagingService) GetOrCreateConversation(a, b models.Identity) (*models.Conversation, error) {
	pair, err := conversationPair(a, b)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	allowed, err := s.permissions.WithTx(tx).CanCommunicate(a, b)
	if err != nil || !allowed {
		return nil, ErrPermissionDenied
	}

	conv, err := s.conversationRepo.WithTx(tx).GetOrCreateConversation(pair)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit conversation: %w", err)
	}
	return conv, nil
}

// ListMessages returns a conversation's messages, visible to its
// participants and to parents with oversight of a participant child
func (s *MessagingService) ListMessages(caller models.Identity, conversationID int64, limit int) ([]*models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if err := s.authorizeRead(caller, conversationID); err != nil {
		return nil, err
	}
	return s.conversationRepo.ListMessages(conversationID, limit)
}

// ListCalls returns a conversation's call history under the same
// visibility rule as messages
func (s *MessagingService) ListCalls(caller models.Identity, conversationID int64, limit int) ([]*models.CallRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if err := s.authorizeRead(caller, conversationID); err != nil {
		return nil, err
	}
	return s.conversationRepo.ListCallRecords(conversationID, limit)
}

// ListConversations returns the conversations the identity participates in
func (s *MessagingService) ListConversations(caller models.Identity) ([]*models.Conversation, error) {
	if caller.Kind == models.KindChild {
		return s.conversationRepo.ListConversationsForChild(caller.ID)
	}
	return s.conversationRepo.ListConversationsForAdult(caller.ID)
}

// authorizeRead applies the read-visibility rule: the caller must be a
// participant, or a parent of one of the participant children.
// Oversight widens reads only; it never substitutes for the write-time
// permission check.
func (s *MessagingService) authorizeRead(caller models.Identity, conversationID int64) error {
	conv, err := s.conversationRepo.GetConversationByID(conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrPermissionDenied
	}

	if conv.HasParticipant(caller) {
		return nil
	}

	if caller.Kind == models.KindParent {
		for _, childID := range conv.ChildIDs() {
			isParent, err := s.relationships.IsParentOfChild(caller.ID, childID)
			if err != nil {
				return ErrPermissionDenied
			}
			if isParent {
				return nil
			}
		}
	}

	return ErrPermissionDenied
}

// conversationPair normalizes two identities into the canonical
// conversation pair
func conversationPair(a, b models.Identity) (models.ConversationPair, error) {
	switch {
	case a.Kind == models.KindChild && b.Kind == models.KindChild:
		return models.NewChildChildPair(a.ID, b.ID)
	case a.Kind.IsAdult() && b.Kind == models.KindChild:
		return models.NewAdultChildPair(a.ID, b.ID)
	case a.Kind == models.KindChild && b.Kind.IsAdult():
		return models.NewAdultChildPair(b.ID, a.ID)
	default:
		return models.ConversationPair{}, errors.New("a conversation requires at least one child participant")
	}
}
