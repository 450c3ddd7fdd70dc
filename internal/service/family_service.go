package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"famlink/internal/credentials"
	"famlink/internal/models"
	"famlink/internal/repository"
	"famlink/internal/security"
)

var (
	ErrFamilyNotFound  = errors.New("family not found")
	ErrNotFamilyMember = errors.New("user is not a member of this family")
	ErrChildNotFound   = errors.New("child not found")
	ErrTooManyFamilies = errors.New("a child can belong to at most two families")
)

const maxFamiliesPerChild = 2

// FamilyService handles family and child profile business logic
type FamilyService struct {
	familyRepo           *repository.FamilyRepository
	childRepo            *repository.ChildRepository
	childSessionDuration time.Duration
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, childRepo *repository.ChildRepository, childSessionDuration time.Duration) *FamilyService {
	return &FamilyService{
		familyRepo:           familyRepo,
		childRepo:            childRepo,
		childSessionDuration: childSessionDuration,
	}
}

// CreateFamily creates a new family with the user as its parent
func (s *FamilyService) CreateFamily(name string, creatorUserID int64) (*models.Family, error) {
	if name == "" {
		return nil, errors.New("family name is required")
	}

	family, err := s.familyRepo.CreateFamily(name, generateFamilyCode())
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	if _, err := s.familyRepo.AddMember(family.ID, creatorUserID, models.RoleParent); err != nil {
		return nil, fmt.Errorf("failed to add creator to family: %w", err)
	}

	return family, nil
}

// GetFamily retrieves a family by ID
func (s *FamilyService) GetFamily(familyID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// GetUserMemberships retrieves all family memberships of an adult
func (s *FamilyService) GetUserMemberships(userID int64) ([]*models.FamilyMember, error) {
	memberships, err := s.familyRepo.GetMembershipsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	return memberships, nil
}

// GetFamilyMembers retrieves all adult members of a family, visible to
// its members only
func (s *FamilyService) GetFamilyMembers(callerUserID, familyID int64) ([]*models.FamilyMember, error) {
	if err := s.VerifyFamilyAccess(callerUserID, familyID); err != nil {
		return nil, err
	}
	members, err := s.familyRepo.GetFamilyMembers(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return members, nil
}

// VerifyFamilyAccess checks that the adult is an active member of the family
func (s *FamilyService) VerifyFamilyAccess(userID, familyID int64) error {
	member, err := s.familyRepo.GetMembership(userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify family access: %w", err)
	}
	if member == nil || member.Status != models.MemberActive {
		return ErrNotFamilyMember
	}
	return nil
}

// VerifyParentAccess checks that the adult holds an active parent role
// in the family
func (s *FamilyService) VerifyParentAccess(userID, familyID int64) error {
	member, err := s.familyRepo.GetMembership(userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify parent access: %w", err)
	}
	if member == nil || member.Status != models.MemberActive || member.Role != models.RoleParent {
		return ErrNotFamilyParent
	}
	return nil
}

// SuspendMember suspends a family member. Parent only; a parent cannot
// suspend themselves.
func (s *FamilyService) SuspendMember(parentUserID, familyID, memberUserID int64) error {
	if err := s.VerifyParentAccess(parentUserID, familyID); err != nil {
		return err
	}
	if parentUserID == memberUserID {
		return errors.New("a parent cannot suspend themselves")
	}
	return s.familyRepo.SetMemberStatus(familyID, memberUserID, models.MemberSuspended)
}

// ReinstateMember reactivates a suspended family member. Parent only.
func (s *FamilyService) ReinstateMember(parentUserID, familyID, memberUserID int64) error {
	if err := s.VerifyParentAccess(parentUserID, familyID); err != nil {
		return err
	}
	return s.familyRepo.SetMemberStatus(familyID, memberUserID, models.MemberActive)
}

// CreateChild creates a new child profile inside a family with generated
// sign-in credentials. Parent only.
func (s *FamilyService) CreateChild(familyID, creatorUserID int64, name, avatarColor string) (*models.Child, error) {
	if err := s.VerifyParentAccess(creatorUserID, familyID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("child name is required")
	}
	if avatarColor == "" {
		avatarColor = "#4A90E2"
	}

	username, err := s.uniqueChildUsername()
	if err != nil {
		return nil, err
	}
	password, err := credentials.GenerateChildPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	child, err := s.childRepo.CreateChild(name, username, password, avatarColor)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}
	if _, err := s.childRepo.AddMembership(child.ID, familyID, creatorUserID); err != nil {
		return nil, fmt.Errorf("failed to add child to family: %w", err)
	}

	return child, nil
}

func (s *FamilyService) uniqueChildUsername() (string, error) {
	username, err := credentials.GenerateChildUsername()
	if err != nil {
		return "", fmt.Errorf("failed to generate username: %w", err)
	}

	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		existing, err := s.childRepo.GetChildByUsername(username)
		if err != nil {
			return "", fmt.Errorf("failed to check username uniqueness: %w", err)
		}
		if existing == nil {
			return username, nil
		}
		username, err = credentials.GenerateChildUsername()
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
	}
	return username, nil
}

// AddChildToFamily links an existing child to a second family, the
// shared-custody case. The acting adult must be a parent of the family
// being joined.
func (s *FamilyService) AddChildToFamily(childID, familyID, parentUserID int64) error {
	if err := s.VerifyParentAccess(parentUserID, familyID); err != nil {
		return err
	}

	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return ErrChildNotFound
	}

	familyIDs, err := s.childRepo.GetFamilyIDsByChild(childID)
	if err != nil {
		return fmt.Errorf("failed to get child families: %w", err)
	}
	for _, id := range familyIDs {
		if id == familyID {
			return errors.New("child is already in this family")
		}
	}
	if len(familyIDs) >= maxFamiliesPerChild {
		return ErrTooManyFamilies
	}

	if _, err := s.childRepo.AddMembership(childID, familyID, parentUserID); err != nil {
		return fmt.Errorf("failed to add child to family: %w", err)
	}
	return nil
}

// GetFamilyChildren retrieves all children of a family, visible to its
// members only
func (s *FamilyService) GetFamilyChildren(callerUserID, familyID int64) ([]*models.Child, error) {
	if err := s.VerifyFamilyAccess(callerUserID, familyID); err != nil {
		return nil, err
	}
	children, err := s.childRepo.GetFamilyChildren(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family children: %w", err)
	}
	return children, nil
}

// GetChild retrieves a child by ID
func (s *FamilyService) GetChild(childID int64) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// RegenerateChildPassword issues a new generated password for a child.
// Parent only.
func (s *FamilyService) RegenerateChildPassword(childID, parentUserID int64) (string, error) {
	isParent, err := s.childRepo.IsParentOfChild(parentUserID, childID)
	if err != nil {
		return "", fmt.Errorf("failed to verify parent: %w", err)
	}
	if !isParent {
		return "", ErrNotFamilyParent
	}

	newPassword, err := credentials.GenerateChildPassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	if err := s.childRepo.UpdateChildPassword(childID, newPassword); err != nil {
		return "", fmt.Errorf("failed to update child password: %w", err)
	}
	return newPassword, nil
}

// ChildLogin authenticates a child by username and generated password
// and creates a child session
func (s *FamilyService) ChildLogin(username, password string) (*models.ChildSession, *models.Child, error) {
	child, err := s.childRepo.GetChildByUsername(username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.Password != password {
		return nil, nil, ErrInvalidCredentials
	}

	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.childSessionDuration)
	session, err := s.childRepo.CreateChildSession(sessionID, child.ID, expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create child session: %w", err)
	}

	return session, child, nil
}

// ValidateChildSession checks a child session and returns the child
func (s *FamilyService) ValidateChildSession(sessionID string) (*models.Child, error) {
	session, err := s.childRepo.GetChildSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.childRepo.DeleteChildSession(sessionID)
		return nil, ErrSessionExpired
	}

	child, err := s.childRepo.GetChildByID(session.ChildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrSessionNotFound
	}
	return child, nil
}

// ChildLogout removes a child session
func (s *FamilyService) ChildLogout(sessionID string) error {
	if err := s.childRepo.DeleteChildSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout child: %w", err)
	}
	return nil
}

// CleanupExpiredChildSessions removes expired child sessions
func (s *FamilyService) CleanupExpiredChildSessions() error {
	if err := s.childRepo.DeleteExpiredChildSessions(); err != nil {
		return fmt.Errorf("failed to cleanup child sessions: %w", err)
	}
	return nil
}

// JoinFamilyByCode adds an adult to a family as a family member using
// the family's join code
func (s *FamilyService) JoinFamilyByCode(userID int64, familyCode string) (*models.Family, error) {
	if familyCode == "" {
		return nil, errors.New("family code is required")
	}

	family, err := s.familyRepo.GetFamilyByCode(familyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to find family: %w", err)
	}
	if family == nil {
		return nil, errors.New("invalid family code")
	}

	member, err := s.familyRepo.GetMembership(userID, family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if member != nil {
		return nil, errors.New("you are already a member of this family")
	}

	if _, err := s.familyRepo.AddMember(family.ID, userID, models.RoleFamilyMember); err != nil {
		return nil, fmt.Errorf("failed to join family: %w", err)
	}
	return family, nil
}

// LeaveFamily removes an adult from a family
func (s *FamilyService) LeaveFamily(userID, familyID int64) error {
	member, err := s.familyRepo.GetMembership(userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify membership: %w", err)
	}
	if member == nil {
		return ErrNotFamilyMember
	}

	if err := s.familyRepo.RemoveMember(familyID, userID); err != nil {
		return fmt.Errorf("failed to leave family: %w", err)
	}
	return nil
}

const familyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateFamilyCode produces a short join code for a family
func generateFamilyCode() string {
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(familyCodeAlphabet))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(fmt.Sprintf("failed to read random bytes: %v", err))
		}
		code[i] = familyCodeAlphabet[n.Int64()]
	}
	return string(code)
}
