package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"famlink/internal/models"
	"famlink/internal/repository"
	"famlink/internal/validation"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationUsed     = errors.New("invitation has already been used")
)

const invitationDuration = 7 * 24 * time.Hour

// InvitationService manages email invitations into a family
type InvitationService struct {
	invitationRepo *repository.InvitationRepository
	familyRepo     *repository.FamilyRepository
	emailService   *EmailService
}

// NewInvitationService creates a new invitation service
func NewInvitationService(invitationRepo *repository.InvitationRepository, familyRepo *repository.FamilyRepository, emailService *EmailService) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		familyRepo:     familyRepo,
		emailService:   emailService,
	}
}

// InviteMember creates an invitation into a family and emails it. Only
// a parent of the family can invite, and the invitation carries the
// role the invitee will receive.
func (s *InvitationService) InviteMember(ctx context.Context, inviterUserID, familyID int64, email string, role models.MemberRole) (*models.Invitation, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if _, err := models.ParseMemberRole(string(role)); err != nil {
		return nil, err
	}

	member, err := s.familyRepo.GetMembership(inviterUserID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check inviter membership: %w", err)
	}
	if member == nil || member.Status != models.MemberActive || member.Role != models.RoleParent {
		return nil, ErrNotFamilyParent
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	code, err := generateInvitationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}

	expiresAt := time.Now().Add(invitationDuration)
	invitation, err := s.invitationRepo.CreateInvitation(code, email, familyID, role, inviterUserID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if s.emailService != nil && s.emailService.IsEnabled() {
		if err := s.emailService.SendFamilyInvitationEmail(ctx, email, family.Name, code); err != nil {
			// the invitation still works via its code
			log.Printf("Warning: failed to send invitation email to %s: %v", email, err)
		}
	}

	return invitation, nil
}

// GetInvitation retrieves a pending invitation by code, rejecting
// expired or used ones
func (s *InvitationService) GetInvitation(code string) (*models.Invitation, error) {
	invitation, err := s.invitationRepo.GetInvitationByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil {
		return nil, ErrInvitationNotFound
	}
	if invitation.IsUsed() {
		return nil, ErrInvitationUsed
	}
	if invitation.IsExpired() {
		return nil, ErrInvitationExpired
	}
	return invitation, nil
}

// AcceptInvitation joins the accepting user to the invitation's family
// with the invited role and consumes the invitation
func (s *InvitationService) AcceptInvitation(code string, userID int64) (*models.FamilyMember, error) {
	invitation, err := s.GetInvitation(code)
	if err != nil {
		return nil, err
	}

	existing, err := s.familyRepo.GetMembership(userID, invitation.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil, errors.New("you are already a member of this family")
	}

	used, err := s.invitationRepo.MarkInvitationUsed(invitation.ID, userID)
	if err != nil {
		return nil, err
	}
	if !used {
		return nil, ErrInvitationUsed
	}

	member, err := s.familyRepo.AddMember(invitation.FamilyID, userID, invitation.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to join family: %w", err)
	}
	return member, nil
}

// CleanupExpiredInvitations removes expired unused invitations
func (s *InvitationService) CleanupExpiredInvitations() error {
	if err := s.invitationRepo.DeleteExpiredInvitations(); err != nil {
		return fmt.Errorf("failed to cleanup invitations: %w", err)
	}
	return nil
}

// generateInvitationCode generates a cryptographically secure random code
func generateInvitationCode() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
