package service

import (
	"errors"
	"fmt"

	"famlink/internal/database"
	"famlink/internal/models"
	"famlink/internal/repository"
)

var (
	ErrCannotBlockParent = errors.New("a child cannot block their own parent")
	ErrBlockNotFound     = errors.New("block not found")
)

// BlockService manages a child's blocked contacts. The one hard rule is
// the safety override: a child's own parent is never treated as blocked,
// and an attempt to store such a block is rejected at the write boundary
// rather than silently ignored.
type BlockService struct {
	blockRepo     *repository.BlockRepository
	relationships *RelationshipService
}

// NewBlockService creates a new block service
func NewBlockService(blockRepo *repository.BlockRepository, relationships *RelationshipService) *BlockService {
	return &BlockService{
		blockRepo:     blockRepo,
		relationships: relationships,
	}
}

// WithTx returns a copy of the service bound to the given transaction
func (s *BlockService) WithTx(tx *database.Tx) *BlockService {
	return &BlockService{
		blockRepo:     s.blockRepo.WithTx(tx),
		relationships: s.relationships.WithTx(tx),
	}
}

// IsBlocked reports whether the child currently blocks the target. The
// parent safety override runs before the stored rows are consulted, so a
// stale row naming the child's own parent can never suppress contact.
func (s *BlockService) IsBlocked(childID int64, target models.BlockTarget) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, err
	}

	if target.Kind == models.TargetAdult {
		isParent, err := s.relationships.IsParentOfChild(target.ID, childID)
		if err != nil {
			return false, fmt.Errorf("failed to check parent override: %w", err)
		}
		if isParent {
			return false, nil
		}
	}

	return s.blockRepo.HasActiveBlock(childID, target)
}

// IsBlockedBetweenChildren reports whether either child blocks the
// other. Blocking between children is effectively bidirectional.
func (s *BlockService) IsBlockedBetweenChildren(childA, childB int64) (bool, error) {
	blocked, err := s.blockRepo.HasActiveBlock(childA, models.ChildTarget(childB))
	if err != nil || blocked {
		return blocked, err
	}
	return s.blockRepo.HasActiveBlock(childB, models.ChildTarget(childA))
}

// SetBlock records a block of the target on the child's behalf. Setting
// a block on the child's own parent is rejected. Re-blocking a
// previously lifted target reactivates the existing row, so the unique
// (blocker, target) pair is preserved.
func (s *BlockService) SetBlock(childID int64, target models.BlockTarget) (*models.Block, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if target.Kind == models.TargetChild && target.ID == childID {
		return nil, errors.New("a child cannot block themselves")
	}

	if target.Kind == models.TargetAdult {
		isParent, err := s.relationships.IsParentOfChild(target.ID, childID)
		if err != nil {
			return nil, fmt.Errorf("failed to check parent override: %w", err)
		}
		if isParent {
			return nil, ErrCannotBlockParent
		}
	}

	existing, err := s.blockRepo.GetBlock(childID, target)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing block: %w", err)
	}
	if existing != nil {
		if existing.IsActive() {
			return existing, nil
		}
		if err := s.blockRepo.ReactivateBlock(existing.ID); err != nil {
			return nil, err
		}
		existing.UnblockedAt = nil
		return existing, nil
	}

	return s.blockRepo.CreateBlock(childID, target)
}

// ClearBlock lifts an active block. The row is soft-closed, never
// deleted, so block history survives for audit.
func (s *BlockService) ClearBlock(childID int64, target models.BlockTarget) error {
	if err := target.Validate(); err != nil {
		return err
	}

	existing, err := s.blockRepo.GetBlock(childID, target)
	if err != nil {
		return fmt.Errorf("failed to find block: %w", err)
	}
	if existing == nil || !existing.IsActive() {
		return ErrBlockNotFound
	}

	return s.blockRepo.CloseBlock(existing.ID)
}

// ListActiveBlocks returns the child's active blocks
func (s *BlockService) ListActiveBlocks(childID int64) ([]*models.Block, error) {
	return s.blockRepo.ListActiveBlocks(childID)
}
