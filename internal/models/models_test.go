package models

import (
	"testing"
	"time"
)

func TestParseIdentityKind(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    IdentityKind
		wantErr bool
	}{
		{name: "parent", input: "parent", want: KindParent},
		{name: "family member", input: "family_member", want: KindFamilyMember},
		{name: "child", input: "child", want: KindChild},
		{name: "unknown", input: "admin", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentityKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseIdentityKind(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdentityKind(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseIdentityKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIdentityKindIsAdult(t *testing.T) {
	if !KindParent.IsAdult() {
		t.Error("parent should be adult")
	}
	if !KindFamilyMember.IsAdult() {
		t.Error("family member should be adult")
	}
	if KindChild.IsAdult() {
		t.Error("child should not be adult")
	}
}

func TestIdentitySharesFamilyWith(t *testing.T) {
	a := Identity{ID: 1, Kind: KindChild, FamilyIDs: []int64{10, 20}}
	b := Identity{ID: 2, Kind: KindChild, FamilyIDs: []int64{20}}
	c := Identity{ID: 3, Kind: KindChild, FamilyIDs: []int64{30}}

	if !a.SharesFamilyWith(b) {
		t.Error("a and b share family 20")
	}
	if !b.SharesFamilyWith(a) {
		t.Error("sharing should be symmetric")
	}
	if a.SharesFamilyWith(c) {
		t.Error("a and c share no family")
	}
	if c.SharesFamilyWith(Identity{}) {
		t.Error("empty identity shares nothing")
	}
}

func TestBlockTargetValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  BlockTarget
		wantErr bool
	}{
		{name: "adult target", target: AdultTarget(5)},
		{name: "child target", target: ChildTarget(7)},
		{name: "zero id", target: BlockTarget{Kind: TargetAdult}, wantErr: true},
		{name: "no kind", target: BlockTarget{ID: 5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBlockIsActive(t *testing.T) {
	userID := int64(3)
	now := time.Now()
	block := Block{BlockerChildID: 1, BlockedUserID: &userID}
	if !block.IsActive() {
		t.Error("block without unblocked_at should be active")
	}

	block.UnblockedAt = &now
	if block.IsActive() {
		t.Error("soft-closed block should not be active")
	}
}

func TestConnectionStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from ConnectionStatus
		to   ConnectionStatus
		want bool
	}{
		{name: "pending to approved", from: ConnectionPending, to: ConnectionApproved, want: true},
		{name: "pending to rejected", from: ConnectionPending, to: ConnectionRejected, want: true},
		{name: "pending to blocked", from: ConnectionPending, to: ConnectionBlocked, want: true},
		{name: "pending to pending", from: ConnectionPending, to: ConnectionPending, want: false},
		{name: "approved is terminal", from: ConnectionApproved, to: ConnectionRejected, want: false},
		{name: "rejected is terminal", from: ConnectionRejected, to: ConnectionApproved, want: false},
		{name: "blocked is terminal", from: ConnectionBlocked, to: ConnectionApproved, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%v -> %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestConnectionInvolves(t *testing.T) {
	conn := Connection{RequesterChildID: 1, TargetChildID: 2}
	if !conn.Involves(1, 2) {
		t.Error("should involve forward direction")
	}
	if !conn.Involves(2, 1) {
		t.Error("should involve reverse direction")
	}
	if conn.Involves(1, 3) {
		t.Error("should not involve unrelated child")
	}
}

func TestConnectionPairKey(t *testing.T) {
	if got := ConnectionPairKey(4, 9); got != "c4:c9" {
		t.Errorf("ConnectionPairKey(4, 9) = %v, want c4:c9", got)
	}
	if ConnectionPairKey(9, 4) != ConnectionPairKey(4, 9) {
		t.Error("pair key should not depend on argument order")
	}
}

func TestConversationPairKey(t *testing.T) {
	t.Run("adult child pair", func(t *testing.T) {
		pair, err := NewAdultChildPair(7, 3)
		if err != nil {
			t.Fatalf("NewAdultChildPair: %v", err)
		}
		if pair.Key() != "a7:c3" {
			t.Errorf("Key() = %v, want a7:c3", pair.Key())
		}
		if pair.IsChildPair() {
			t.Error("adult-child pair should not be a child pair")
		}
	})

	t.Run("child pair ordering is canonical", func(t *testing.T) {
		forward, err := NewChildChildPair(4, 9)
		if err != nil {
			t.Fatalf("NewChildChildPair: %v", err)
		}
		reverse, err := NewChildChildPair(9, 4)
		if err != nil {
			t.Fatalf("NewChildChildPair: %v", err)
		}
		if forward.Key() != reverse.Key() {
			t.Errorf("pair keys differ: %v vs %v", forward.Key(), reverse.Key())
		}
		if forward.Key() != "c4:c9" {
			t.Errorf("Key() = %v, want c4:c9", forward.Key())
		}
	})

	t.Run("self pair rejected", func(t *testing.T) {
		if _, err := NewChildChildPair(4, 4); err == nil {
			t.Error("expected error for self pair")
		}
	})

	t.Run("missing ids rejected", func(t *testing.T) {
		if _, err := NewAdultChildPair(0, 3); err == nil {
			t.Error("expected error for missing adult id")
		}
		if _, err := NewChildChildPair(4, 0); err == nil {
			t.Error("expected error for missing child id")
		}
	})
}

func TestConversationHasParticipant(t *testing.T) {
	adultID := int64(7)
	peerID := int64(9)

	adultChild := Conversation{AdultUserID: &adultID, ChildID: 3}
	if !adultChild.HasParticipant(Identity{ID: 7, Kind: KindParent}) {
		t.Error("adult participant not recognized")
	}
	if !adultChild.HasParticipant(Identity{ID: 3, Kind: KindChild}) {
		t.Error("child participant not recognized")
	}
	if adultChild.HasParticipant(Identity{ID: 3, Kind: KindParent}) {
		t.Error("adult id 3 is not a participant")
	}

	childChild := Conversation{ChildID: 4, PeerChildID: &peerID}
	if !childChild.HasParticipant(Identity{ID: 9, Kind: KindChild}) {
		t.Error("peer child participant not recognized")
	}
	if childChild.HasParticipant(Identity{ID: 9, Kind: KindFamilyMember}) {
		t.Error("adult should not match a child slot")
	}
}

func TestSessionExpiry(t *testing.T) {
	live := Session{ExpiresAt: time.Now().Add(time.Hour)}
	if live.IsExpired() {
		t.Error("future session should not be expired")
	}

	dead := ChildSession{ExpiresAt: time.Now().Add(-time.Hour)}
	if !dead.IsExpired() {
		t.Error("past child session should be expired")
	}
}

func TestInvitationLifecycle(t *testing.T) {
	now := time.Now()
	inv := Invitation{ExpiresAt: now.Add(48 * time.Hour)}
	if inv.IsExpired() || inv.IsUsed() {
		t.Error("fresh invitation should be usable")
	}

	inv.UsedAt = &now
	if !inv.IsUsed() {
		t.Error("invitation with used_at should be used")
	}
}
