package service

import (
	"errors"
	"fmt"

	"famlink/internal/database"
	"famlink/internal/models"
	"famlink/internal/repository"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionDecided  = errors.New("connection has already been decided")
	ErrConnectionExists   = errors.New("a connection between these children already exists")
	ErrNotChildsParent    = errors.New("only a parent of one of the children can decide a connection")
)

// ConnectionService manages child-to-child connection requests and their
// parental decisions
type ConnectionService struct {
	connectionRepo *repository.ConnectionRepository
	relationships  *RelationshipService
}

// NewConnectionService creates a new connection service
func NewConnectionService(connectionRepo *repository.ConnectionRepository, relationships *RelationshipService) *ConnectionService {
	return &ConnectionService{
		connectionRepo: connectionRepo,
		relationships:  relationships,
	}
}

// WithTx returns a copy of the service bound to the given transaction
func (s *ConnectionService) WithTx(tx *database.Tx) *ConnectionService {
	return &ConnectionService{
		connectionRepo: s.connectionRepo.WithTx(tx),
		relationships:  s.relationships.WithTx(tx),
	}
}

// RequestConnection creates a pending connection between two children.
// The connections table is unique on the canonical pair key, so swapped
// or concurrent requests converge on the same row. A repeated request
// onto a pending or approved connection is a no-op returning the
// existing row.
func (s *ConnectionService) RequestConnection(requesterChildID, targetChildID int64) (*models.Connection, error) {
	if requesterChildID == targetChildID {
		return nil, errors.New("a child cannot request a connection to themselves")
	}

	requesterFamilies, err := s.relationships.FamiliesOfChild(requesterChildID)
	if err != nil {
		return nil, err
	}
	targetFamilies, err := s.relationships.FamiliesOfChild(targetChildID)
	if err != nil {
		return nil, err
	}
	if len(requesterFamilies) == 0 || len(targetFamilies) == 0 {
		return nil, ErrIdentityNotResolved
	}

	existing, err := s.connectionRepo.GetConnectionBetween(requesterChildID, targetChildID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing connection: %w", err)
	}
	if existing != nil {
		if existing.Status == models.ConnectionPending || existing.Status == models.ConnectionApproved {
			return existing, nil
		}
		return nil, ErrConnectionExists
	}

	conn, err := s.connectionRepo.CreateConnection(requesterChildID, requesterFamilies[0], targetChildID, targetFamilies[0])
	if err != nil {
		return nil, err
	}
	if conn.Status != models.ConnectionPending && conn.Status != models.ConnectionApproved {
		// the insert raced a decision on a pre-existing row
		return nil, ErrConnectionExists
	}
	return conn, nil
}

// ApproveConnection records parental approval of a pending connection
func (s *ConnectionService) ApproveConnection(connID, parentUserID int64) (*models.Connection, error) {
	return s.decideConnection(connID, parentUserID, models.ConnectionApproved)
}

// RejectConnection records parental rejection of a pending connection
func (s *ConnectionService) RejectConnection(connID, parentUserID int64) (*models.Connection, error) {
	return s.decideConnection(connID, parentUserID, models.ConnectionRejected)
}

// BlockConnection records a parental block of a pending connection,
// which also prevents future re-requests between the pair
func (s *ConnectionService) BlockConnection(connID, parentUserID int64) (*models.Connection, error) {
	return s.decideConnection(connID, parentUserID, models.ConnectionBlocked)
}

func (s *ConnectionService) decideConnection(connID, parentUserID int64, status models.ConnectionStatus) (*models.Connection, error) {
	conn, err := s.connectionRepo.GetConnectionByID(connID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}
	if !conn.Status.CanTransitionTo(status) {
		return nil, ErrConnectionDecided
	}

	// The deciding adult must be a parent of one of the two children
	isParent, err := s.relationships.IsParentOfChild(parentUserID, conn.RequesterChildID)
	if err != nil {
		return nil, err
	}
	if !isParent {
		isParent, err = s.relationships.IsParentOfChild(parentUserID, conn.TargetChildID)
		if err != nil {
			return nil, err
		}
	}
	if !isParent {
		return nil, ErrNotChildsParent
	}

	updated, err := s.connectionRepo.UpdateStatus(connID, status, parentUserID)
	if err != nil {
		return nil, err
	}
	if !updated {
		// lost a race against another parent's decision
		return nil, ErrConnectionDecided
	}

	conn.Status = status
	conn.ApprovedBy = &parentUserID
	return conn, nil
}

// IsApprovedBetween reports whether an approved connection links the two
// children, in either direction
func (s *ConnectionService) IsApprovedBetween(childA, childB int64) (bool, error) {
	return s.connectionRepo.IsApprovedBetween(childA, childB)
}

// ListConnectionsForChild returns every connection the child appears in
func (s *ConnectionService) ListConnectionsForChild(childID int64) ([]*models.Connection, error) {
	return s.connectionRepo.ListConnectionsForChild(childID)
}

// ListPendingForFamily returns the pending requests a parent of the
// family may decide
func (s *ConnectionService) ListPendingForFamily(parentUserID, familyID int64) ([]*models.Connection, error) {
	isParent, err := s.relationships.IsParentOfFamily(parentUserID, familyID)
	if err != nil {
		return nil, err
	}
	if !isParent {
		return nil, ErrNotChildsParent
	}
	return s.connectionRepo.ListPendingForFamily(familyID)
}
