package repository

import (
	"database/sql"
	"fmt"

	"famlink/internal/database"
	"famlink/internal/models"
)

// ConnectionRepository handles database operations for child-to-child
// connection requests
type ConnectionRepository struct {
	db database.DBTX
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db database.DBTX) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ConnectionRepository) WithTx(tx *database.Tx) *ConnectionRepository {
	return &ConnectionRepository{db: tx}
}

const connectionColumns = "id, requester_child_id, requester_family_id, target_child_id, target_family_id, status, approved_by, created_at, updated_at"

// CreateConnection inserts a pending connection request. The insert
// ignores a conflicting pair_key, so concurrent requests between the same
// two children converge on one row regardless of which side asked first.
func (r *ConnectionRepository) CreateConnection(requesterChildID, requesterFamilyID, targetChildID, targetFamilyID int64) (*models.Connection, error) {
	pairKey := models.ConnectionPairKey(requesterChildID, targetChildID)
	query := r.db.GetDialect().InsertConnectionQuery()
	if _, err := r.db.Exec(query, pairKey, requesterChildID, requesterFamilyID, targetChildID, targetFamilyID, string(models.ConnectionPending)); err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	conn, err := r.GetConnectionByPairKey(pairKey)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("connection missing after insert for pair %s", pairKey)
	}
	return conn, nil
}

// GetConnectionByID retrieves a connection by ID
func (r *ConnectionRepository) GetConnectionByID(connID int64) (*models.Connection, error) {
	query := "SELECT " + connectionColumns + " FROM connections WHERE id = ?"
	return r.scanConnection(r.db.QueryRow(query, connID))
}

// GetConnectionByPairKey retrieves a connection by its canonical pair key
func (r *ConnectionRepository) GetConnectionByPairKey(pairKey string) (*models.Connection, error) {
	query := "SELECT " + connectionColumns + " FROM connections WHERE pair_key = ?"
	return r.scanConnection(r.db.QueryRow(query, pairKey))
}

// GetConnectionBetween retrieves the connection linking two children. The
// relation is undirected, so the order of the arguments does not matter.
func (r *ConnectionRepository) GetConnectionBetween(childA, childB int64) (*models.Connection, error) {
	return r.GetConnectionByPairKey(models.ConnectionPairKey(childA, childB))
}

func (r *ConnectionRepository) scanConnection(row *sql.Row) (*models.Connection, error) {
	conn := &models.Connection{}
	var status string
	err := row.Scan(
		&conn.ID,
		&conn.RequesterChildID,
		&conn.RequesterFamilyID,
		&conn.TargetChildID,
		&conn.TargetFamilyID,
		&status,
		&conn.ApprovedBy,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	conn.Status = models.ConnectionStatus(status)
	return conn, nil
}

// UpdateStatus records the parental decision on a pending connection.
// The WHERE clause keeps terminal states immutable even under races.
func (r *ConnectionRepository) UpdateStatus(connID int64, status models.ConnectionStatus, decidedBy int64) (bool, error) {
	query := `
		UPDATE connections SET status = ?, approved_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, string(status), decidedBy, connID, string(models.ConnectionPending))
	if err != nil {
		return false, fmt.Errorf("failed to update connection status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update connection status: %w", err)
	}
	return affected > 0, nil
}

// IsApprovedBetween reports whether an approved connection links the two
// children, in either direction
func (r *ConnectionRepository) IsApprovedBetween(childA, childB int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM connections
		WHERE status = ?
		  AND ((requester_child_id = ? AND target_child_id = ?)
		    OR (requester_child_id = ? AND target_child_id = ?))
	`
	var count int
	err := r.db.QueryRow(query, string(models.ConnectionApproved), childA, childB, childB, childA).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check approved connection: %w", err)
	}
	return count > 0, nil
}

// ListConnectionsForChild retrieves all connections a child appears in,
// on either side
func (r *ConnectionRepository) ListConnectionsForChild(childID int64) ([]*models.Connection, error) {
	query := "SELECT " + connectionColumns + ` FROM connections
		WHERE requester_child_id = ? OR target_child_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, childID, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

// ListPendingForFamily retrieves pending requests awaiting a decision by
// a parent of the given family, on either side of the request. Matching
// goes through child memberships rather than the family stamped on the
// row, so every household of a two-household child sees the request.
func (r *ConnectionRepository) ListPendingForFamily(familyID int64) ([]*models.Connection, error) {
	query := "SELECT " + connectionColumns + ` FROM connections c
		WHERE c.status = ?
		  AND EXISTS (
			SELECT 1 FROM child_memberships cm
			WHERE cm.family_id = ?
			  AND cm.child_id IN (c.requester_child_id, c.target_child_id)
		  )
		ORDER BY c.created_at ASC
	`
	rows, err := r.db.Query(query, string(models.ConnectionPending), familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending connections: %w", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

func scanConnections(rows *sql.Rows) ([]*models.Connection, error) {
	var conns []*models.Connection
	for rows.Next() {
		conn := &models.Connection{}
		var status string
		if err := rows.Scan(
			&conn.ID,
			&conn.RequesterChildID,
			&conn.RequesterFamilyID,
			&conn.TargetChildID,
			&conn.TargetFamilyID,
			&status,
			&conn.ApprovedBy,
			&conn.CreatedAt,
			&conn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conn.Status = models.ConnectionStatus(status)
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}
