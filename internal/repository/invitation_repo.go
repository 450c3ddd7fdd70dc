package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famlink/internal/database"
	"famlink/internal/models"
)

// InvitationRepository handles database operations for family invitations
type InvitationRepository struct {
	db database.DBTX
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *InvitationRepository) WithTx(tx *database.Tx) *InvitationRepository {
	return &InvitationRepository{db: tx}
}

// CreateInvitation creates a new invitation
func (r *InvitationRepository) CreateInvitation(code, email string, familyID int64, role models.MemberRole, invitedBy int64, expiresAt time.Time) (*models.Invitation, error) {
	query := "INSERT INTO invitations (code, email, family_id, role, invited_by, expires_at) VALUES (?, ?, ?, ?, ?, ?)"
	invID, err := r.db.ExecReturningID(query, code, email, familyID, string(role), invitedBy, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:        invID,
		Code:      code,
		Email:     email,
		FamilyID:  familyID,
		Role:      role,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}, nil
}

// GetInvitationByCode retrieves an invitation by its code, joined with
// the inviter's name for display
func (r *InvitationRepository) GetInvitationByCode(code string) (*models.Invitation, error) {
	query := `
		SELECT i.id, i.code, i.email, i.family_id, i.role, i.invited_by, u.name, i.created_at, i.expires_at, i.used_at, i.used_by
		FROM invitations i
		JOIN users u ON u.id = i.invited_by
		WHERE i.code = ?
	`
	inv := &models.Invitation{}
	var role string
	err := r.db.QueryRow(query, code).Scan(
		&inv.ID,
		&inv.Code,
		&inv.Email,
		&inv.FamilyID,
		&role,
		&inv.InvitedBy,
		&inv.InviterName,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&inv.UsedAt,
		&inv.UsedBy,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	inv.Role = models.MemberRole(role)
	return inv, nil
}

// MarkInvitationUsed records the acceptance of an invitation. Returns
// false when the invitation was already used.
func (r *InvitationRepository) MarkInvitationUsed(invID, usedBy int64) (bool, error) {
	query := "UPDATE invitations SET used_at = ?, used_by = ? WHERE id = ? AND used_at IS NULL"
	result, err := r.db.Exec(query, time.Now(), usedBy, invID)
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	return affected > 0, nil
}

// DeleteExpiredInvitations removes unused invitations past their expiry
func (r *InvitationRepository) DeleteExpiredInvitations() error {
	query := "DELETE FROM invitations WHERE expires_at < ? AND used_at IS NULL"
	_, err := r.db.Exec(query, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return nil
}
