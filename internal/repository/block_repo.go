package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famlink/internal/database"
	"famlink/internal/models"
)

// BlockRepository handles database operations for parent-imposed blocks
type BlockRepository struct {
	db database.DBTX
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(db database.DBTX) *BlockRepository {
	return &BlockRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *BlockRepository) WithTx(tx *database.Tx) *BlockRepository {
	return &BlockRepository{db: tx}
}

// GetBlock retrieves the block row for a child/target pair, active or
// not. Returns nil when no row exists.
func (r *BlockRepository) GetBlock(childID int64, target models.BlockTarget) (*models.Block, error) {
	var query string
	switch target.Kind {
	case models.TargetAdult:
		query = `
			SELECT id, blocker_child_id, blocked_user_id, blocked_child_id, blocked_at, unblocked_at
			FROM blocks WHERE blocker_child_id = ? AND blocked_user_id = ?
		`
	case models.TargetChild:
		query = `
			SELECT id, blocker_child_id, blocked_user_id, blocked_child_id, blocked_at, unblocked_at
			FROM blocks WHERE blocker_child_id = ? AND blocked_child_id = ?
		`
	default:
		return nil, fmt.Errorf("unknown block target kind: %s", target.Kind)
	}
	return r.scanBlock(r.db.QueryRow(query, childID, target.ID))
}

func (r *BlockRepository) scanBlock(row *sql.Row) (*models.Block, error) {
	block := &models.Block{}
	err := row.Scan(
		&block.ID,
		&block.BlockerChildID,
		&block.BlockedUserID,
		&block.BlockedChildID,
		&block.BlockedAt,
		&block.UnblockedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}

	return block, nil
}

// CreateBlock inserts a new active block
func (r *BlockRepository) CreateBlock(childID int64, target models.BlockTarget) (*models.Block, error) {
	block := &models.Block{
		BlockerChildID: childID,
		BlockedAt:      time.Now(),
	}

	var query string
	switch target.Kind {
	case models.TargetAdult:
		query = "INSERT INTO blocks (blocker_child_id, blocked_user_id) VALUES (?, ?)"
		block.BlockedUserID = &target.ID
	case models.TargetChild:
		query = "INSERT INTO blocks (blocker_child_id, blocked_child_id) VALUES (?, ?)"
		block.BlockedChildID = &target.ID
	default:
		return nil, fmt.Errorf("unknown block target kind: %s", target.Kind)
	}

	blockID, err := r.db.ExecReturningID(query, childID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create block: %w", err)
	}
	block.ID = blockID
	return block, nil
}

// ReactivateBlock reopens a previously lifted block
func (r *BlockRepository) ReactivateBlock(blockID int64) error {
	query := "UPDATE blocks SET unblocked_at = NULL, blocked_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, blockID)
	if err != nil {
		return fmt.Errorf("failed to reactivate block: %w", err)
	}
	return nil
}

// CloseBlock lifts a block without deleting its history
func (r *BlockRepository) CloseBlock(blockID int64) error {
	query := "UPDATE blocks SET unblocked_at = ? WHERE id = ? AND unblocked_at IS NULL"
	_, err := r.db.Exec(query, time.Now(), blockID)
	if err != nil {
		return fmt.Errorf("failed to close block: %w", err)
	}
	return nil
}

// HasActiveBlock reports whether the child currently has an active block
// against the given target
func (r *BlockRepository) HasActiveBlock(childID int64, target models.BlockTarget) (bool, error) {
	var query string
	switch target.Kind {
	case models.TargetAdult:
		query = "SELECT COUNT(*) FROM blocks WHERE blocker_child_id = ? AND blocked_user_id = ? AND unblocked_at IS NULL"
	case models.TargetChild:
		query = "SELECT COUNT(*) FROM blocks WHERE blocker_child_id = ? AND blocked_child_id = ? AND unblocked_at IS NULL"
	default:
		return false, fmt.Errorf("unknown block target kind: %s", target.Kind)
	}

	var count int
	if err := r.db.QueryRow(query, childID, target.ID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check active block: %w", err)
	}
	return count > 0, nil
}

// ListActiveBlocks retrieves all active blocks protecting a child
func (r *BlockRepository) ListActiveBlocks(childID int64) ([]*models.Block, error) {
	query := `
		SELECT id, blocker_child_id, blocked_user_id, blocked_child_id, blocked_at, unblocked_at
		FROM blocks WHERE blocker_child_id = ? AND unblocked_at IS NULL
		ORDER BY blocked_at DESC
	`
	rows, err := r.db.Query(query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*models.Block
	for rows.Next() {
		block := &models.Block{}
		if err := rows.Scan(
			&block.ID,
			&block.BlockerChildID,
			&block.BlockedUserID,
			&block.BlockedChildID,
			&block.BlockedAt,
			&block.UnblockedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}
