package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famlink/internal/database"
	"famlink/internal/models"
)

// FamilyRepository handles database operations for families and adult memberships
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

// CreateFamily creates a new family
func (r *FamilyRepository) CreateFamily(name, familyCode string) (*models.Family, error) {
	query := "INSERT INTO families (name, family_code) VALUES (?, ?)"
	familyID, err := r.db.ExecReturningID(query, name, familyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return &models.Family{
		ID:         familyID,
		Name:       name,
		FamilyCode: familyCode,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	query := "SELECT id, name, family_code, created_at, updated_at FROM families WHERE id = ?"
	return r.scanFamily(r.db.QueryRow(query, familyID))
}

// GetFamilyByCode retrieves a family by its join code
func (r *FamilyRepository) GetFamilyByCode(code string) (*models.Family, error) {
	query := "SELECT id, name, family_code, created_at, updated_at FROM families WHERE family_code = ?"
	return r.scanFamily(r.db.QueryRow(query, code))
}

func (r *FamilyRepository) scanFamily(row *sql.Row) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(
		&family.ID,
		&family.Name,
		&family.FamilyCode,
		&family.CreatedAt,
		&family.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}

// AddMember adds an adult to a family with the given role
func (r *FamilyRepository) AddMember(familyID, userID int64, role models.MemberRole) (*models.FamilyMember, error) {
	query := "INSERT INTO family_members (family_id, user_id, role, status) VALUES (?, ?, ?, ?)"
	memberID, err := r.db.ExecReturningID(query, familyID, userID, string(role), string(models.MemberActive))
	if err != nil {
		return nil, fmt.Errorf("failed to add family member: %w", err)
	}

	return &models.FamilyMember{
		ID:       memberID,
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		Status:   models.MemberActive,
		JoinedAt: time.Now(),
	}, nil
}

// GetMembership retrieves a single adult's membership in a family
func (r *FamilyRepository) GetMembership(userID, familyID int64) (*models.FamilyMember, error) {
	query := `
		SELECT id, family_id, user_id, role, status, joined_at
		FROM family_members WHERE user_id = ? AND family_id = ?
	`
	member := &models.FamilyMember{}
	var role, status string
	err := r.db.QueryRow(query, userID, familyID).Scan(
		&member.ID,
		&member.FamilyID,
		&member.UserID,
		&role,
		&status,
		&member.JoinedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	member.Role = models.MemberRole(role)
	member.Status = models.MemberStatus(status)
	return member, nil
}

// GetMembershipsByUser retrieves all family memberships for an adult
func (r *FamilyRepository) GetMembershipsByUser(userID int64) ([]*models.FamilyMember, error) {
	query := `
		SELECT id, family_id, user_id, role, status, joined_at
		FROM family_members WHERE user_id = ? ORDER BY joined_at ASC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

// GetFamilyMembers retrieves all adult members of a family
func (r *FamilyRepository) GetFamilyMembers(familyID int64) ([]*models.FamilyMember, error) {
	query := `
		SELECT id, family_id, user_id, role, status, joined_at
		FROM family_members WHERE family_id = ? ORDER BY joined_at ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

func scanMembers(rows *sql.Rows) ([]*models.FamilyMember, error) {
	var members []*models.FamilyMember
	for rows.Next() {
		member := &models.FamilyMember{}
		var role, status string
		if err := rows.Scan(
			&member.ID,
			&member.FamilyID,
			&member.UserID,
			&role,
			&status,
			&member.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		member.Role = models.MemberRole(role)
		member.Status = models.MemberStatus(status)
		members = append(members, member)
	}
	return members, rows.Err()
}

// GetFamilyIDsByUser returns the IDs of all families an adult belongs to,
// counting only active memberships
func (r *FamilyRepository) GetFamilyIDsByUser(userID int64) ([]int64, error) {
	query := "SELECT family_id FROM family_members WHERE user_id = ? AND status = ?"
	rows, err := r.db.Query(query, userID, string(models.MemberActive))
	if err != nil {
		return nil, fmt.Errorf("failed to get family ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan family id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetMemberStatus updates an adult's membership status in a family
func (r *FamilyRepository) SetMemberStatus(familyID, userID int64, status models.MemberStatus) error {
	query := "UPDATE family_members SET status = ? WHERE family_id = ? AND user_id = ?"
	_, err := r.db.Exec(query, string(status), familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}
	return nil
}

// RemoveMember removes an adult from a family
func (r *FamilyRepository) RemoveMember(familyID, userID int64) error {
	query := "DELETE FROM family_members WHERE family_id = ? AND user_id = ?"
	_, err := r.db.Exec(query, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}
