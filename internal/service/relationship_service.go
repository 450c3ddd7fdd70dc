package service

import (
	"fmt"

	"famlink/internal/database"
	"famlink/internal/models"
	"famlink/internal/repository"
)

// RelationshipService exposes privileged membership lookups over the
// relationship graph. It reads the graph directly, without consulting the
// permission layer, so the permission engine can call it while evaluating
// a policy for the same family without re-entering itself. It must never
// be exposed to untrusted callers.
type RelationshipService struct {
	familyRepo *repository.FamilyRepository
	childRepo  *repository.ChildRepository
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(familyRepo *repository.FamilyRepository, childRepo *repository.ChildRepository) *RelationshipService {
	return &RelationshipService{
		familyRepo: familyRepo,
		childRepo:  childRepo,
	}
}

// WithTx returns a copy of the service bound to the given transaction
func (s *RelationshipService) WithTx(tx *database.Tx) *RelationshipService {
	return &RelationshipService{
		familyRepo: s.familyRepo.WithTx(tx),
		childRepo:  s.childRepo.WithTx(tx),
	}
}

// FamiliesOfChild returns the ids of every family the child belongs to.
// A child in a two-household setup returns both.
func (s *RelationshipService) FamiliesOfChild(childID int64) ([]int64, error) {
	ids, err := s.childRepo.GetFamilyIDsByChild(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve child families: %w", err)
	}
	return ids, nil
}

// FamiliesOfAdult returns the ids of every family the adult is an active
// member of, regardless of role
func (s *RelationshipService) FamiliesOfAdult(userID int64) ([]int64, error) {
	ids, err := s.familyRepo.GetFamilyIDsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve adult families: %w", err)
	}
	return ids, nil
}

// IsChildOfFamily reports whether the child belongs to the family
func (s *RelationshipService) IsChildOfFamily(childID, familyID int64) (bool, error) {
	return s.childRepo.IsChildOfFamily(childID, familyID)
}

// IsParentOfChild reports whether the adult holds an active parent role
// in any of the child's families. This is the ownership fact behind the
// block safety override and the parent reachability rule.
func (s *RelationshipService) IsParentOfChild(userID, childID int64) (bool, error) {
	return s.childRepo.IsParentOfChild(userID, childID)
}

// IsParentOfFamily reports whether the adult holds an active parent role
// in the given family
func (s *RelationshipService) IsParentOfFamily(userID, familyID int64) (bool, error) {
	member, err := s.familyRepo.GetMembership(userID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to check parent role: %w", err)
	}
	return member != nil && member.Role == models.RoleParent && member.Status == models.MemberActive, nil
}

// SharesFamilyWithChild reports whether the adult and the child have any
// family in common, checking every membership on both sides
func (s *RelationshipService) SharesFamilyWithChild(userID, childID int64) (bool, error) {
	adultFamilies, err := s.FamiliesOfAdult(userID)
	if err != nil {
		return false, err
	}
	childFamilies, err := s.FamiliesOfChild(childID)
	if err != nil {
		return false, err
	}

	for _, af := range adultFamilies {
		for _, cf := range childFamilies {
			if af == cf {
				return true, nil
			}
		}
	}
	return false, nil
}
