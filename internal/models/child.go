package models

import "time"

// Child represents an anonymous child profile. Children have no backing
// account; they sign in with a generated username and short password.
// Family membership lives in ChildMembership rows, one or two per child.
type Child struct {
	ID          int64
	Name        string
	Username    string
	Password    string
	AvatarColor string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChildMembership links a child to one of its families
type ChildMembership struct {
	ID        int64
	ChildID   int64
	FamilyID  int64
	AddedBy   int64
	CreatedAt time.Time
}

// ChildSession represents a signed-in child session
type ChildSession struct {
	ID        string
	ChildID   int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the child session has expired
func (s *ChildSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
