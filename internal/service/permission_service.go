package service

import (
	"famlink/internal/database"
	"famlink/internal/models"
)

// PermissionService is the decision core. It answers "may these two
// identities communicate?" by composing the relationship graph, the
// block registry, the connection store and the feature flags into a
// single boolean. It performs no writes; callers act on the result
// inside the same transaction as the write it gates, via WithTx.
//
// Evaluation is fail-closed: any lookup failure denies rather than
// permits.
type PermissionService struct {
	relationships *RelationshipService
	blocks        *BlockService
	connections   *ConnectionService
	flags         *FlagService
}

// NewPermissionService creates a new permission service
func NewPermissionService(relationships *RelationshipService, blocks *BlockService, connections *ConnectionService, flags *FlagService) *PermissionService {
	return &PermissionService{
		relationships: relationships,
		blocks:        blocks,
		connections:   connections,
		flags:         flags,
	}
}

// WithTx returns a copy of the service bound to the given transaction
func (s *PermissionService) WithTx(tx *database.Tx) *PermissionService {
	return &PermissionService{
		relationships: s.relationships.WithTx(tx),
		blocks:        s.blocks.WithTx(tx),
		connections:   s.connections.WithTx(tx),
		flags:         s.flags.WithTx(tx),
	}
}

// CanCommunicate decides whether sender may message receiver
func (s *PermissionService) CanCommunicate(sender, receiver models.Identity) (bool, error) {
	return s.canReach(sender, receiver, models.FlagChildMessaging)
}

// CanCall decides whether sender may call receiver. It mirrors
// CanCommunicate with the calling flag gating the child-to-child case.
func (s *PermissionService) CanCall(sender, receiver models.Identity) (bool, error) {
	return s.canReach(sender, receiver, models.FlagChildCalls)
}

// canReach evaluates the rules in fixed order. The order matters: later
// rules assume earlier ones already excluded invalid cases.
func (s *PermissionService) canReach(sender, receiver models.Identity, flag models.FlagKey) (bool, error) {
	if sender.ID <= 0 || receiver.ID <= 0 {
		return false, nil
	}
	if sender.Kind == receiver.Kind && sender.ID == receiver.ID {
		return false, nil
	}

	// 1. Adults never reach adults
	if sender.Kind.IsAdult() && receiver.Kind.IsAdult() {
		return false, nil
	}

	// 2. Any active block suppresses contact, subject to the parent
	// safety override inside the block service. Between children the
	// check is bidirectional.
	blocked, err := s.isBlockedPair(sender, receiver)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, nil
	}

	// 3. Child to child requires a parent-approved connection and the
	// capability flag enabled for at least one side's family
	if sender.Kind == models.KindChild && receiver.Kind == models.KindChild {
		approved, err := s.connections.IsApprovedBetween(sender.ID, receiver.ID)
		if err != nil {
			return false, err
		}
		if !approved {
			return false, nil
		}

		enabled, err := s.flags.IsEnabledForChildren(sender.ID, receiver.ID, flag)
		if err != nil {
			return false, err
		}
		return enabled, nil
	}

	// One side is an adult, the other a child
	adult, child := sender, receiver
	if receiver.Kind.IsAdult() {
		adult, child = receiver, sender
	}

	// 4. A parent reaches a child with a membership proving ownership.
	// The parent role is per family, so an adult who parents one family
	// may still be an ordinary member of another.
	isParent, err := s.relationships.IsParentOfChild(adult.ID, child.ID)
	if err != nil {
		return false, err
	}
	if isParent {
		return true, nil
	}

	// 5. Otherwise the adult reaches a child only within a shared
	// family. A child in two households matches against either.
	return s.relationships.SharesFamilyWithChild(adult.ID, child.ID)
}

func (s *PermissionService) isBlockedPair(sender, receiver models.Identity) (bool, error) {
	switch {
	case sender.Kind == models.KindChild && receiver.Kind == models.KindChild:
		return s.blocks.IsBlockedBetweenChildren(sender.ID, receiver.ID)
	case sender.Kind.IsAdult():
		return s.blocks.IsBlocked(receiver.ID, models.AdultTarget(sender.ID))
	default:
		return s.blocks.IsBlocked(sender.ID, models.AdultTarget(receiver.ID))
	}
}
