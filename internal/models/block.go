package models

import (
	"errors"
	"time"
)

// BlockTargetKind says whether a block targets an adult account or another child
type BlockTargetKind string

const (
	TargetAdult BlockTargetKind = "adult"
	TargetChild BlockTargetKind = "child"
)

// BlockTarget identifies who a block suppresses contact with
type BlockTarget struct {
	Kind BlockTargetKind
	ID   int64
}

// AdultTarget builds a block target for an adult user
func AdultTarget(userID int64) BlockTarget {
	return BlockTarget{Kind: TargetAdult, ID: userID}
}

// ChildTarget builds a block target for a child profile
func ChildTarget(childID int64) BlockTarget {
	return BlockTarget{Kind: TargetChild, ID: childID}
}

// Validate checks that the target names exactly one identity
func (t BlockTarget) Validate() error {
	if t.Kind != TargetAdult && t.Kind != TargetChild {
		return errors.New("block target must name an adult or a child")
	}
	if t.ID <= 0 {
		return errors.New("block target id is required")
	}
	return nil
}

// Block represents a child's suppression of contact with an adult or another
// child. Exactly one of BlockedUserID / BlockedChildID is set. Blocks are
// soft-closed via UnblockedAt and never deleted, so audit history survives.
type Block struct {
	ID             int64
	BlockerChildID int64
	BlockedUserID  *int64
	BlockedChildID *int64
	BlockedAt      time.Time
	UnblockedAt    *time.Time
}

// IsActive reports whether the block currently suppresses contact
func (b *Block) IsActive() bool {
	return b.UnblockedAt == nil
}

// Target returns the block's target
func (b *Block) Target() BlockTarget {
	if b.BlockedUserID != nil {
		return AdultTarget(*b.BlockedUserID)
	}
	if b.BlockedChildID != nil {
		return ChildTarget(*b.BlockedChildID)
	}
	return BlockTarget{}
}
