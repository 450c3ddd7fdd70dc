package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"famlink/internal/database"
	"famlink/internal/models"
)

// FlagRepository handles database operations for per-family feature flags
type FlagRepository struct {
	db database.DBTX
}

// NewFlagRepository creates a new feature flag repository
func NewFlagRepository(db database.DBTX) *FlagRepository {
	return &FlagRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *FlagRepository) WithTx(tx *database.Tx) *FlagRepository {
	return &FlagRepository{db: tx}
}

// SetFlag upserts a flag value for a family
func (r *FlagRepository) SetFlag(familyID int64, key models.FlagKey, enabled bool) error {
	query := r.db.GetDialect().UpsertFeatureFlagQuery()
	_, err := r.db.Exec(query, familyID, string(key), enabled)
	if err != nil {
		return fmt.Errorf("failed to set feature flag: %w", err)
	}
	return nil
}

// GetFlag retrieves a flag row for a family. Returns nil when the family
// has never set the flag, which callers treat as disabled.
func (r *FlagRepository) GetFlag(familyID int64, key models.FlagKey) (*models.FeatureFlag, error) {
	query := "SELECT id, family_id, flag_key, enabled, updated_at FROM feature_flags WHERE family_id = ? AND flag_key = ?"
	flag := &models.FeatureFlag{}
	var flagKey string
	err := r.db.QueryRow(query, familyID, string(key)).Scan(
		&flag.ID,
		&flag.FamilyID,
		&flagKey,
		&flag.Enabled,
		&flag.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature flag: %w", err)
	}

	flag.Key = models.FlagKey(flagKey)
	return flag, nil
}

// IsEnabledForAny reports whether the flag is enabled in at least one of
// the given families. Missing rows count as disabled.
func (r *FlagRepository) IsEnabledForAny(familyIDs []int64, key models.FlagKey) (bool, error) {
	if len(familyIDs) == 0 {
		return false, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(familyIDs)), ", ")
	query := "SELECT COUNT(*) FROM feature_flags WHERE flag_key = ? AND enabled = ? AND family_id IN (" + placeholders + ")"

	args := make([]interface{}, 0, len(familyIDs)+2)
	args = append(args, string(key), true)
	for _, id := range familyIDs {
		args = append(args, id)
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check feature flag: %w", err)
	}
	return count > 0, nil
}

// ListFlags retrieves all flag rows for a family
func (r *FlagRepository) ListFlags(familyID int64) ([]*models.FeatureFlag, error) {
	query := "SELECT id, family_id, flag_key, enabled, updated_at FROM feature_flags WHERE family_id = ? ORDER BY flag_key ASC"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature flags: %w", err)
	}
	defer rows.Close()

	var flags []*models.FeatureFlag
	for rows.Next() {
		flag := &models.FeatureFlag{}
		var flagKey string
		if err := rows.Scan(
			&flag.ID,
			&flag.FamilyID,
			&flagKey,
			&flag.Enabled,
			&flag.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feature flag: %w", err)
		}
		flag.Key = models.FlagKey(flagKey)
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}
