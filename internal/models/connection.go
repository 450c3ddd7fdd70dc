package models

import (
	"fmt"
	"time"
)

// ConnectionStatus is the state of a child-to-child connection request.
// A connection starts pending and transitions exactly once; there are no
// transitions out of the terminal states.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionApproved ConnectionStatus = "approved"
	ConnectionRejected ConnectionStatus = "rejected"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

// ParseConnectionStatus converts a wire string into a ConnectionStatus
func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	switch ConnectionStatus(s) {
	case ConnectionPending, ConnectionApproved, ConnectionRejected, ConnectionBlocked:
		return ConnectionStatus(s), nil
	}
	return "", fmt.Errorf("unknown connection status: %q", s)
}

// IsTerminal reports whether no further transitions are allowed
func (s ConnectionStatus) IsTerminal() bool {
	return s != ConnectionPending
}

// CanTransitionTo reports whether the state machine permits the transition
func (s ConnectionStatus) CanTransitionTo(next ConnectionStatus) bool {
	if s != ConnectionPending {
		return false
	}
	return next == ConnectionApproved || next == ConnectionRejected || next == ConnectionBlocked
}

// ConnectionPairKey returns the canonical unordered encoding of a child
// pair. The connections table holds a unique constraint on this value, so
// swapped or concurrent requests between the same children collide on one
// row.
func ConnectionPairKey(childA, childB int64) string {
	if childA > childB {
		childA, childB = childB, childA
	}
	return fmt.Sprintf("c%d:c%d", childA, childB)
}

// Connection records a child-to-child connection request and its parental
// decision. The row is unique on the pair key; the relation is logically
// undirected, so lookups check both orderings.
type Connection struct {
	ID                int64
	RequesterChildID  int64
	RequesterFamilyID int64
	TargetChildID     int64
	TargetFamilyID    int64
	Status            ConnectionStatus
	ApprovedBy        *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Involves reports whether the connection links the two given children,
// in either direction
func (c *Connection) Involves(childA, childB int64) bool {
	return (c.RequesterChildID == childA && c.TargetChildID == childB) ||
		(c.RequesterChildID == childB && c.TargetChildID == childA)
}
