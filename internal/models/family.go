package models

import (
	"fmt"
	"time"
)

// MemberRole distinguishes a family's parents from invited family members
type MemberRole string

const (
	RoleParent       MemberRole = "parent"
	RoleFamilyMember MemberRole = "family_member"
)

// ParseMemberRole converts a wire string into a MemberRole
func ParseMemberRole(s string) (MemberRole, error) {
	switch MemberRole(s) {
	case RoleParent, RoleFamilyMember:
		return MemberRole(s), nil
	}
	return "", fmt.Errorf("unknown member role: %q", s)
}

// Kind returns the identity kind of an adult holding this role
func (r MemberRole) Kind() IdentityKind {
	if r == RoleParent {
		return KindParent
	}
	return KindFamilyMember
}

// MemberStatus is the soft lifecycle state of a family membership
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberSuspended MemberStatus = "suspended"
)

// Family represents a household grouping adults and children
type Family struct {
	ID         int64
	Name       string
	FamilyCode string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FamilyMember represents the relationship between an adult user and a family
type FamilyMember struct {
	ID       int64
	FamilyID int64
	UserID   int64
	Role     MemberRole
	Status   MemberStatus
	JoinedAt time.Time
}

// Invitation represents a pending email invitation into a family
type Invitation struct {
	ID          int64
	Code        string
	Email       string
	FamilyID    int64
	Role        MemberRole
	InvitedBy   int64
	InviterName string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
	UsedBy      *int64
}

// IsExpired checks if the invitation has expired
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsUsed checks if the invitation has already been accepted
func (i *Invitation) IsUsed() bool {
	return i.UsedAt != nil
}
