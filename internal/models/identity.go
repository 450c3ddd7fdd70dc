package models

import "fmt"

// IdentityKind classifies a communicating identity. Parents and family
// members are adult kinds backed by an authenticated account; children are
// anonymous profiles backed by a code-based session.
type IdentityKind string

const (
	KindParent       IdentityKind = "parent"
	KindFamilyMember IdentityKind = "family_member"
	KindChild        IdentityKind = "child"
)

// ParseIdentityKind converts a wire string into an IdentityKind
func ParseIdentityKind(s string) (IdentityKind, error) {
	switch IdentityKind(s) {
	case KindParent, KindFamilyMember, KindChild:
		return IdentityKind(s), nil
	}
	return "", fmt.Errorf("unknown identity kind: %q", s)
}

// IsAdult reports whether the kind is backed by an authenticated adult account
func (k IdentityKind) IsAdult() bool {
	return k == KindParent || k == KindFamilyMember
}

// Identity is a resolved, typed participant in a communication attempt.
// ID is a user id for adult kinds and a child id for KindChild. FamilyIDs
// holds every family the identity belongs to; a child in a two-household
// setup carries both.
type Identity struct {
	ID        int64
	Kind      IdentityKind
	FamilyIDs []int64
}

// InFamily reports whether the identity belongs to the given family
func (i Identity) InFamily(familyID int64) bool {
	for _, id := range i.FamilyIDs {
		if id == familyID {
			return true
		}
	}
	return false
}

// SharesFamilyWith reports whether the two identities have any family in common
func (i Identity) SharesFamilyWith(other Identity) bool {
	for _, id := range other.FamilyIDs {
		if i.InFamily(id) {
			return true
		}
	}
	return false
}
