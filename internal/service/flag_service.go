package service

import (
	"errors"
	"fmt"

	"famlink/internal/database"
	"famlink/internal/models"
	"famlink/internal/repository"
)

var ErrNotFamilyParent = errors.New("only a parent of the family can change its settings")

// FlagService manages the per-family feature flags gating optional
// child-to-child capabilities
type FlagService struct {
	flagRepo      *repository.FlagRepository
	relationships *RelationshipService
}

// NewFlagService creates a new feature flag service
func NewFlagService(flagRepo *repository.FlagRepository, relationships *RelationshipService) *FlagService {
	return &FlagService{
		flagRepo:      flagRepo,
		relationships: relationships,
	}
}

// WithTx returns a copy of the service bound to the given transaction
func (s *FlagService) WithTx(tx *database.Tx) *FlagService {
	return &FlagService{
		flagRepo:      s.flagRepo.WithTx(tx),
		relationships: s.relationships.WithTx(tx),
	}
}

// SetFlag upserts a flag value for a family. Only a parent of the family
// may change it.
func (s *FlagService) SetFlag(parentUserID, familyID int64, key models.FlagKey, enabled bool) error {
	if _, err := models.ParseFlagKey(string(key)); err != nil {
		return err
	}

	isParent, err := s.relationships.IsParentOfFamily(parentUserID, familyID)
	if err != nil {
		return err
	}
	if !isParent {
		return ErrNotFamilyParent
	}

	return s.flagRepo.SetFlag(familyID, key, enabled)
}

// IsEnabledForChildren reports whether the flag is enabled for either
// child's family. The OR is deliberate: one cooperating household can
// unlock a capability without symmetric opt-in from a co-parent's
// separate household. Families that never set the flag count as
// disabled.
func (s *FlagService) IsEnabledForChildren(childA, childB int64, key models.FlagKey) (bool, error) {
	familiesA, err := s.relationships.FamiliesOfChild(childA)
	if err != nil {
		return false, fmt.Errorf("failed to resolve families: %w", err)
	}
	familiesB, err := s.relationships.FamiliesOfChild(childB)
	if err != nil {
		return false, fmt.Errorf("failed to resolve families: %w", err)
	}

	return s.flagRepo.IsEnabledForAny(append(familiesA, familiesB...), key)
}

// ListFlags returns a family's flag settings, readable by any member
func (s *FlagService) ListFlags(familyID int64) ([]*models.FeatureFlag, error) {
	return s.flagRepo.ListFlags(familyID)
}
