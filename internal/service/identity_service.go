package service

import (
	"errors"
	"fmt"

	"famlink/internal/database"
	"famlink/internal/models"
	"famlink/internal/repository"
)

// ErrIdentityNotResolved covers every resolution failure: unknown ids,
// revoked memberships, missing family rows. Callers treat it as a deny
// and never distinguish it from a policy denial, so identity existence
// cannot be probed.
var ErrIdentityNotResolved = errors.New("identity could not be resolved")

// IdentityService maps raw account and profile ids onto typed identities
// carrying their family memberships
type IdentityService struct {
	userRepo   *repository.UserRepository
	childRepo  *repository.ChildRepository
	familyRepo *repository.FamilyRepository
}

// NewIdentityService creates a new identity service
func NewIdentityService(userRepo *repository.UserRepository, childRepo *repository.ChildRepository, familyRepo *repository.FamilyRepository) *IdentityService {
	return &IdentityService{
		userRepo:   userRepo,
		childRepo:  childRepo,
		familyRepo: familyRepo,
	}
}

// WithTx returns a copy of the service bound to the given transaction
func (s *IdentityService) WithTx(tx *database.Tx) *IdentityService {
	return &IdentityService{
		userRepo:   s.userRepo.WithTx(tx),
		childRepo:  s.childRepo.WithTx(tx),
		familyRepo: s.familyRepo.WithTx(tx),
	}
}

// ResolveAdult resolves an authenticated user id into an adult identity.
// The identity is parent-kind when the user holds an active parent role
// anywhere, family-member-kind otherwise. The kind is a summary across
// families; the permission engine checks the concrete per-family roles,
// since the same adult may parent one family and merely belong to
// another. An adult with no active membership does not resolve.
func (s *IdentityService) ResolveAdult(userID int64) (models.Identity, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to resolve adult: %w", err)
	}
	if user == nil {
		return models.Identity{}, ErrIdentityNotResolved
	}

	memberships, err := s.familyRepo.GetMembershipsByUser(userID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to resolve adult memberships: %w", err)
	}

	kind := models.KindFamilyMember
	var familyIDs []int64
	for _, m := range memberships {
		if m.Status != models.MemberActive {
			continue
		}
		familyIDs = append(familyIDs, m.FamilyID)
		if m.Role == models.RoleParent {
			kind = models.KindParent
		}
	}
	if len(familyIDs) == 0 {
		return models.Identity{}, ErrIdentityNotResolved
	}

	return models.Identity{ID: userID, Kind: kind, FamilyIDs: familyIDs}, nil
}

// ResolveChild resolves a child profile id into a child identity. A
// child with no family membership does not resolve.
func (s *IdentityService) ResolveChild(childID int64) (models.Identity, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to resolve child: %w", err)
	}
	if child == nil {
		return models.Identity{}, ErrIdentityNotResolved
	}

	familyIDs, err := s.childRepo.GetFamilyIDsByChild(childID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to resolve child families: %w", err)
	}
	if len(familyIDs) == 0 {
		return models.Identity{}, ErrIdentityNotResolved
	}

	return models.Identity{ID: childID, Kind: models.KindChild, FamilyIDs: familyIDs}, nil
}

// Resolve resolves an id of the given kind
func (s *IdentityService) Resolve(kind models.IdentityKind, id int64) (models.Identity, error) {
	if kind == models.KindChild {
		return s.ResolveChild(id)
	}
	return s.ResolveAdult(id)
}

// ParentsOfChild returns the adult accounts holding an active parent role
// in any of the child's families
func (s *IdentityService) ParentsOfChild(childID int64) ([]*models.User, error) {
	familyIDs, err := s.childRepo.GetFamilyIDsByChild(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child families: %w", err)
	}

	seen := make(map[int64]bool)
	var parents []*models.User
	for _, familyID := range familyIDs {
		members, err := s.familyRepo.GetFamilyMembers(familyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get family members: %w", err)
		}
		for _, m := range members {
			if m.Role != models.RoleParent || m.Status != models.MemberActive || seen[m.UserID] {
				continue
			}
			seen[m.UserID] = true
			user, err := s.userRepo.GetUserByID(m.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to get parent user: %w", err)
			}
			if user != nil {
				parents = append(parents, user)
			}
		}
	}
	return parents, nil
}
