package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famlink/internal/database"
	"famlink/internal/models"
)

// ChildRepository handles database operations for child profiles,
// their family memberships and their sessions
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ChildRepository) WithTx(tx *database.Tx) *ChildRepository {
	return &ChildRepository{db: tx}
}

// CreateChild creates a new child profile
func (r *ChildRepository) CreateChild(name, username, password, avatarColor string) (*models.Child, error) {
	query := "INSERT INTO children (name, username, password, avatar_color) VALUES (?, ?, ?, ?)"
	childID, err := r.db.ExecReturningID(query, name, username, password, avatarColor)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	return &models.Child{
		ID:          childID,
		Name:        name,
		Username:    username,
		Password:    password,
		AvatarColor: avatarColor,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetChildByID retrieves a child by ID
func (r *ChildRepository) GetChildByID(childID int64) (*models.Child, error) {
	query := "SELECT id, name, username, password, avatar_color, created_at, updated_at FROM children WHERE id = ?"
	return r.scanChild(r.db.QueryRow(query, childID))
}

// GetChildByUsername retrieves a child by their generated username
func (r *ChildRepository) GetChildByUsername(username string) (*models.Child, error) {
	query := "SELECT id, name, username, password, avatar_color, created_at, updated_at FROM children WHERE username = ?"
	return r.scanChild(r.db.QueryRow(query, username))
}

func (r *ChildRepository) scanChild(row *sql.Row) (*models.Child, error) {
	child := &models.Child{}
	err := row.Scan(
		&child.ID,
		&child.Name,
		&child.Username,
		&child.Password,
		&child.AvatarColor,
		&child.CreatedAt,
		&child.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}

	return child, nil
}

// AddMembership links a child to a family. A child can belong to more
// than one family, which covers shared-custody households.
func (r *ChildRepository) AddMembership(childID, familyID, addedBy int64) (*models.ChildMembership, error) {
	query := "INSERT INTO child_memberships (child_id, family_id, added_by) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(query, childID, familyID, addedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to add child membership: %w", err)
	}

	return &models.ChildMembership{
		ID:        id,
		ChildID:   childID,
		FamilyID:  familyID,
		AddedBy:   addedBy,
		CreatedAt: time.Now(),
	}, nil
}

// GetFamilyIDsByChild returns the IDs of all families a child belongs to
func (r *ChildRepository) GetFamilyIDsByChild(childID int64) ([]int64, error) {
	query := "SELECT family_id FROM child_memberships WHERE child_id = ?"
	rows, err := r.db.Query(query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child family ids: %w", err)
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

// GetFamilyChildren retrieves all children in a family
func (r *ChildRepository) GetFamilyChildren(familyID int64) ([]*models.Child, error) {
	query := `
		SELECT c.id, c.name, c.username, c.password, c.avatar_color, c.created_at, c.updated_at
		FROM children c
		JOIN child_memberships cm ON cm.child_id = c.id
		WHERE cm.family_id = ?
		ORDER BY c.name ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family children: %w", err)
	}
	defer rows.Close()

	var children []*models.Child
	for rows.Next() {
		child := &models.Child{}
		if err := rows.Scan(
			&child.ID,
			&child.Name,
			&child.Username,
			&child.Password,
			&child.AvatarColor,
			&child.CreatedAt,
			&child.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}
	return children, rows.Err()
}

// IsChildOfFamily reports whether a child belongs to the given family
func (r *ChildRepository) IsChildOfFamily(childID, familyID int64) (bool, error) {
	query := "SELECT COUNT(*) FROM child_memberships WHERE child_id = ? AND family_id = ?"
	var count int
	if err := r.db.QueryRow(query, childID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check child membership: %w", err)
	}
	return count > 0, nil
}

// IsParentOfChild reports whether the adult holds the parent role in any
// of the child's families
func (r *ChildRepository) IsParentOfChild(userID, childID int64) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM family_members fm
		JOIN child_memberships cm ON cm.family_id = fm.family_id
		WHERE fm.user_id = ? AND cm.child_id = ? AND fm.role = ? AND fm.status = ?
	`
	var count int
	err := r.db.QueryRow(query, userID, childID, string(models.RoleParent), string(models.MemberActive)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check parent relationship: %w", err)
	}
	return count > 0, nil
}

// RemoveMembership removes a child from a family
func (r *ChildRepository) RemoveMembership(childID, familyID int64) error {
	query := "DELETE FROM child_memberships WHERE child_id = ? AND family_id = ?"
	_, err := r.db.Exec(query, childID, familyID)
	if err != nil {
		return fmt.Errorf("failed to remove child membership: %w", err)
	}
	return nil
}

// UpdateChildPassword replaces a child's generated password
func (r *ChildRepository) UpdateChildPassword(childID int64, password string) error {
	query := "UPDATE children SET password = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, password, childID)
	if err != nil {
		return fmt.Errorf("failed to update child password: %w", err)
	}
	return nil
}

// CreateChildSession creates a new child session
func (r *ChildRepository) CreateChildSession(sessionID string, childID int64, expiresAt time.Time) (*models.ChildSession, error) {
	query := "INSERT INTO child_sessions (id, child_id, expires_at) VALUES (?, ?, ?)"
	_, err := r.db.Exec(query, sessionID, childID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create child session: %w", err)
	}

	return &models.ChildSession{
		ID:        sessionID,
		ChildID:   childID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// GetChildSession retrieves a child session by ID
func (r *ChildRepository) GetChildSession(sessionID string) (*models.ChildSession, error) {
	query := "SELECT id, child_id, expires_at, created_at FROM child_sessions WHERE id = ?"
	session := &models.ChildSession{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.ChildID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child session: %w", err)
	}

	return session, nil
}

// DeleteChildSession removes a child session
func (r *ChildRepository) DeleteChildSession(sessionID string) error {
	query := "DELETE FROM child_sessions WHERE id = ?"
	_, err := r.db.Exec(query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete child session: %w", err)
	}
	return nil
}

// DeleteExpiredChildSessions removes all expired child sessions
func (r *ChildRepository) DeleteExpiredChildSessions() error {
	query := "DELETE FROM child_sessions WHERE expires_at < ?"
	_, err := r.db.Exec(query, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired child sessions: %w", err)
	}
	return nil
}
