package service

import (
	"errors"
	"testing"

	"famlink/internal/models"
)

// enableChildMessaging wires an approved, flag-enabled contact path
// between two children
func (env *testEnv) enableChildMessaging(t *testing.T, childA, childB, parentUserID, familyID int64) {
	t.Helper()
	env.approveConnection(t, childA, childB, parentUserID)
	if err := env.flags.SetFlag(parentUserID, familyID, models.FlagChildMessaging, true); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}
}

func TestSendMessageParentToChild(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	childA := env.createChild(t, familyA, parentA, "Child A")
	parent, child := env.adult(t, parentA), env.child(t, childA)

	msg, err := env.messaging.SendMessage(parent, child, "Dinner at six")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.Body != "Dinner at six" {
		t.Errorf("Message body = %q", msg.Body)
	}

	reply, err := env.messaging.SendMessage(child, parent, "Okay!")
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if reply.ConversationID != msg.ConversationID {
		t.Errorf("Reply landed in conversation %d, want %d", reply.ConversationID, msg.ConversationID)
	}

	messages, err := env.messaging.ListMessages(parent, msg.ConversationID, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	// Chronological order, oldest first
	if messages[0].Body != "Dinner at six" || messages[1].Body != "Okay!" {
		t.Errorf("Messages out of order: %q, %q", messages[0].Body, messages[1].Body)
	}
}

func TestSendMessageDenied(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")

	// An unrelated adult gets the same generic denial as any other failure
	if _, err := env.messaging.SendMessage(env.adult(t, parentB), env.child(t, childA), "hi"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Unrelated adult send error = %v, want ErrPermissionDenied", err)
	}

	// Children without an approved connection are denied
	if _, err := env.messaging.SendMessage(env.child(t, childA), env.child(t, childB), "hi"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Unconnected children send error = %v, want ErrPermissionDenied", err)
	}

	// No conversation may exist after a denied send
	convs, err := env.messaging.ListConversations(env.child(t, childA))
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("Denied sends left %d conversations behind", len(convs))
	}
}

func TestSendMessageBlockedMidConversation(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")
	env.enableChildMessaging(t, childA, childB, parentA, familyA)

	a, b := env.child(t, childA), env.child(t, childB)
	if _, err := env.messaging.SendMessage(a, b, "hey"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	// A block lands between two messages in an existing conversation
	if _, err := env.blocks.SetBlock(childB, models.ChildTarget(childA)); err != nil {
		t.Fatalf("Failed to set block: %v", err)
	}
	if _, err := env.messaging.SendMessage(a, b, "hello?"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Send after block error = %v, want ErrPermissionDenied", err)
	}
}

func TestGetOrCreateConversationIdempotent(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")
	env.enableChildMessaging(t, childA, childB, parentA, familyA)

	a, b := env.child(t, childA), env.child(t, childB)

	first, err := env.messaging.GetOrCreateConversation(a, b)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}
	second, err := env.messaging.GetOrCreateConversation(a, b)
	if err != nil {
		t.Fatalf("Second GetOrCreateConversation failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Repeated calls returned conversations %d and %d", first.ID, second.ID)
	}

	// Participant order must not matter
	swapped, err := env.messaging.GetOrCreateConversation(b, a)
	if err != nil {
		t.Fatalf("Swapped GetOrCreateConversation failed: %v", err)
	}
	if swapped.ID != first.ID {
		t.Errorf("Swapped participants returned conversation %d, want %d", swapped.ID, first.ID)
	}
	if swapped.PairKey != first.PairKey {
		t.Errorf("Pair key changed: %q vs %q", swapped.PairKey, first.PairKey)
	}
}

func TestConversationRequiresChild(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)

	if _, err := env.messaging.GetOrCreateConversation(env.adult(t, parentA), env.adult(t, memberA)); err == nil {
		t.Error("Expected error for an adult-only conversation")
	}
}

func TestReadVisibilityOversight(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)
	stranger, _ := env.createParent(t, "px@example.com", "Parent X")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")
	env.enableChildMessaging(t, childA, childB, parentA, familyA)

	msg, err := env.messaging.SendMessage(env.child(t, childA), env.child(t, childB), "secret plans")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	// Either child's parent can read the thread without being a participant
	for _, parentID := range []int64{parentA, parentB} {
		messages, err := env.messaging.ListMessages(env.adult(t, parentID), msg.ConversationID, 0)
		if err != nil {
			t.Fatalf("Parent %d ListMessages failed: %v", parentID, err)
		}
		if len(messages) != 1 {
			t.Errorf("Parent %d saw %d messages, want 1", parentID, len(messages))
		}
	}

	// A non-parent family member has no oversight
	if _, err := env.messaging.ListMessages(env.adult(t, memberA), msg.ConversationID, 0); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Family member read error = %v, want ErrPermissionDenied", err)
	}
	// Neither does an unrelated parent
	if _, err := env.messaging.ListMessages(env.adult(t, stranger), msg.ConversationID, 0); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Stranger read error = %v, want ErrPermissionDenied", err)
	}
}

func TestPlaceCallGatedSeparately(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")
	env.enableChildMessaging(t, childA, childB, parentA, familyA)

	a, b := env.child(t, childA), env.child(t, childB)

	// Messaging being enabled does not open calling
	if _, err := env.messaging.PlaceCall(a, b); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("PlaceCall without calls flag error = %v, want ErrPermissionDenied", err)
	}

	if err := env.flags.SetFlag(parentA, familyA, models.FlagChildCalls, true); err != nil {
		t.Fatalf("Failed to set calls flag: %v", err)
	}
	call, err := env.messaging.PlaceCall(a, b)
	if err != nil {
		t.Fatalf("PlaceCall failed: %v", err)
	}
	if call.Status != models.CallPlaced {
		t.Errorf("New call status = %s, want placed", call.Status)
	}

	if err := env.messaging.CompleteCall(a, call.ID, models.CallEnded); err != nil {
		t.Fatalf("CompleteCall failed: %v", err)
	}
	calls, err := env.messaging.ListCalls(a, call.ConversationID, 0)
	if err != nil {
		t.Fatalf("ListCalls failed: %v", err)
	}
	if len(calls) != 1 || calls[0].Status != models.CallEnded {
		t.Errorf("Call record not updated: %+v", calls)
	}
}
