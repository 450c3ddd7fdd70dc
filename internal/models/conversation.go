package models

import (
	"errors"
	"fmt"
	"time"
)

// ConversationPair is the canonical participant pair of a conversation.
// A pair is either (adult user, child) or (child, child). Child pairs are
// stored with the lower child id first so both orderings map to the same
// conversation.
type ConversationPair struct {
	AdultUserID int64 // zero for child-child pairs
	ChildID     int64
	PeerChildID int64 // zero for adult-child pairs
}

// NewAdultChildPair builds the canonical pair for an adult and a child
func NewAdultChildPair(adultUserID, childID int64) (ConversationPair, error) {
	if adultUserID <= 0 || childID <= 0 {
		return ConversationPair{}, errors.New("adult and child ids are required")
	}
	return ConversationPair{AdultUserID: adultUserID, ChildID: childID}, nil
}

// NewChildChildPair builds the canonical pair for two children. The order of
// the arguments does not matter.
func NewChildChildPair(childA, childB int64) (ConversationPair, error) {
	if childA <= 0 || childB <= 0 {
		return ConversationPair{}, errors.New("both child ids are required")
	}
	if childA == childB {
		return ConversationPair{}, errors.New("a child cannot converse with itself")
	}
	if childA > childB {
		childA, childB = childB, childA
	}
	return ConversationPair{ChildID: childA, PeerChildID: childB}, nil
}

// IsChildPair reports whether both participants are children
func (p ConversationPair) IsChildPair() bool {
	return p.PeerChildID != 0
}

// Key returns the canonical encoding of the pair. The conversations table
// holds a unique constraint on this value.
func (p ConversationPair) Key() string {
	if p.IsChildPair() {
		return fmt.Sprintf("c%d:c%d", p.ChildID, p.PeerChildID)
	}
	return fmt.Sprintf("a%d:c%d", p.AdultUserID, p.ChildID)
}

// Conversation is the canonical channel identity for a communicating pair.
// It is the unit of message and call visibility.
type Conversation struct {
	ID          int64
	PairKey     string
	AdultUserID *int64
	ChildID     int64
	PeerChildID *int64
	CreatedAt   time.Time
}

// HasParticipant reports whether the identity is a participant of the conversation
func (c *Conversation) HasParticipant(identity Identity) bool {
	if identity.Kind == KindChild {
		if c.ChildID == identity.ID {
			return true
		}
		return c.PeerChildID != nil && *c.PeerChildID == identity.ID
	}
	return c.AdultUserID != nil && *c.AdultUserID == identity.ID
}

// ChildIDs returns the ids of the child participants
func (c *Conversation) ChildIDs() []int64 {
	ids := []int64{c.ChildID}
	if c.PeerChildID != nil {
		ids = append(ids, *c.PeerChildID)
	}
	return ids
}

// Message is a stored message event within a conversation
type Message struct {
	ID             int64
	ConversationID int64
	SenderKind     IdentityKind
	SenderID       int64
	Body           string
	CreatedAt      time.Time
}

// CallStatus is the lifecycle state of a call record
type CallStatus string

const (
	CallPlaced   CallStatus = "placed"
	CallAnswered CallStatus = "answered"
	CallMissed   CallStatus = "missed"
	CallEnded    CallStatus = "ended"
)

// CallRecord is a stored call event within a conversation
type CallRecord struct {
	ID             int64
	ConversationID int64
	CallerKind     IdentityKind
	CallerID       int64
	Status         CallStatus
	StartedAt      time.Time
	EndedAt        *time.Time
}
