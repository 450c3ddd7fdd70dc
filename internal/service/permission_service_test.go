package service

import (
	"errors"
	"path/filepath"
	"testing"

	"famlink/internal/database"
	"famlink/internal/models"
	"famlink/internal/repository"
)

// testEnv wires the full service stack over a temporary sqlite database
type testEnv struct {
	db          *database.DB
	userRepo    *repository.UserRepository
	blockRepo   *repository.BlockRepository
	families    *FamilyService
	identities  *IdentityService
	blocks      *BlockService
	connections *ConnectionService
	flags       *FlagService
	permissions *PermissionService
	messaging   *MessagingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "service.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	flagRepo := repository.NewFlagRepository(db)
	conversationRepo := repository.NewConversationRepository(db)

	relationships := NewRelationshipService(familyRepo, childRepo)
	blocks := NewBlockService(blockRepo, relationships)
	connections := NewConnectionService(connectionRepo, relationships)
	flags := NewFlagService(flagRepo, relationships)
	permissions := NewPermissionService(relationships, blocks, connections, flags)

	return &testEnv{
		db:          db,
		userRepo:    userRepo,
		blockRepo:   blockRepo,
		families:    NewFamilyService(familyRepo, childRepo, 0),
		identities:  NewIdentityService(userRepo, childRepo, familyRepo),
		blocks:      blocks,
		connections: connections,
		flags:       flags,
		permissions: permissions,
		messaging:   NewMessagingService(db, permissions, relationships, conversationRepo),
	}
}

// createParent creates an adult account owning a fresh family and
// returns (userID, familyID)
func (env *testEnv) createParent(t *testing.T, email, name string) (int64, int64) {
	t.Helper()
	user, err := env.userRepo.CreateUser(email, "hashedpass", name)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	family, err := env.families.CreateFamily(name+"'s Family", user.ID)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	return user.ID, family.ID
}

// createFamilyMember creates an adult account joined to the family as a
// family member
func (env *testEnv) createFamilyMember(t *testing.T, email, name string, familyID int64) int64 {
	t.Helper()
	user, err := env.userRepo.CreateUser(email, "hashedpass", name)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	family, err := env.families.GetFamily(familyID)
	if err != nil {
		t.Fatalf("Failed to get family: %v", err)
	}
	if _, err := env.families.JoinFamilyByCode(user.ID, family.FamilyCode); err != nil {
		t.Fatalf("Failed to join family: %v", err)
	}
	return user.ID
}

func (env *testEnv) createChild(t *testing.T, familyID, parentUserID int64, name string) int64 {
	t.Helper()
	child, err := env.families.CreateChild(familyID, parentUserID, name, "")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}
	return child.ID
}

func (env *testEnv) adult(t *testing.T, userID int64) models.Identity {
	t.Helper()
	identity, err := env.identities.ResolveAdult(userID)
	if err != nil {
		t.Fatalf("Failed to resolve adult %d: %v", userID, err)
	}
	return identity
}

func (env *testEnv) child(t *testing.T, childID int64) models.Identity {
	t.Helper()
	identity, err := env.identities.ResolveChild(childID)
	if err != nil {
		t.Fatalf("Failed to resolve child %d: %v", childID, err)
	}
	return identity
}

func (env *testEnv) mustAllow(t *testing.T, sender, receiver models.Identity) {
	t.Helper()
	allowed, err := env.permissions.CanCommunicate(sender, receiver)
	if err != nil {
		t.Fatalf("CanCommunicate failed: %v", err)
	}
	if !allowed {
		t.Errorf("CanCommunicate(%s %d, %s %d) = false, want true",
			sender.Kind, sender.ID, receiver.Kind, receiver.ID)
	}
}

func (env *testEnv) mustDeny(t *testing.T, sender, receiver models.Identity) {
	t.Helper()
	allowed, err := env.permissions.CanCommunicate(sender, receiver)
	if err != nil {
		t.Fatalf("CanCommunicate failed: %v", err)
	}
	if allowed {
		t.Errorf("CanCommunicate(%s %d, %s %d) = true, want false",
			sender.Kind, sender.ID, receiver.Kind, receiver.ID)
	}
}

// approveConnection sets up an approved connection between two children,
// decided by the given parent
func (env *testEnv) approveConnection(t *testing.T, childA, childB, parentUserID int64) {
	t.Helper()
	conn, err := env.connections.RequestConnection(childA, childB)
	if err != nil {
		t.Fatalf("Failed to request connection: %v", err)
	}
	if _, err := env.connections.ApproveConnection(conn.ID, parentUserID); err != nil {
		t.Fatalf("Failed to approve connection: %v", err)
	}
}

func TestAdultAdultVeto(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, _ := env.createParent(t, "pb@example.com", "Parent B")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)

	adults := []models.Identity{
		env.adult(t, parentA),
		env.adult(t, parentB),
		env.adult(t, memberA),
	}

	// No pair of adult identities may ever communicate, in any direction
	for _, sender := range adults {
		for _, receiver := range adults {
			if sender.ID == receiver.ID {
				continue
			}
			env.mustDeny(t, sender, receiver)
		}
	}
}

func TestParentChildOwnership(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, _ := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")

	// Owning parent reaches their child, both directions
	env.mustAllow(t, env.adult(t, parentA), env.child(t, childA))
	env.mustAllow(t, env.child(t, childA), env.adult(t, parentA))

	// A parent from another family does not
	env.mustDeny(t, env.adult(t, parentB), env.child(t, childA))
	env.mustDeny(t, env.child(t, childA), env.adult(t, parentB))
}

func TestFamilyMemberChildScope(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")

	// Same family allows, cross family denies
	env.mustAllow(t, env.adult(t, memberA), env.child(t, childA))
	env.mustDeny(t, env.adult(t, memberA), env.child(t, childB))
}

func TestParentJoinedAsMemberElsewhere(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	parentC, familyC := env.createParent(t, "pc@example.com", "Parent C")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")
	childC := env.createChild(t, familyC, parentC, "Child C")

	// Parent A joins family B as an ordinary member. The parent role in
	// family A must not shadow that membership when reaching B's child.
	familyBRecord, err := env.families.GetFamily(familyB)
	if err != nil {
		t.Fatalf("Failed to get family: %v", err)
	}
	if _, err := env.families.JoinFamilyByCode(parentA, familyBRecord.FamilyCode); err != nil {
		t.Fatalf("Failed to join family: %v", err)
	}

	a := env.adult(t, parentA)
	env.mustAllow(t, a, env.child(t, childA))
	env.mustAllow(t, a, env.child(t, childB))
	env.mustAllow(t, env.child(t, childB), a)

	// No role at all in family C still denies
	env.mustDeny(t, a, env.child(t, childC))
}

func TestChildToChildGate(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")

	a, b := env.child(t, childA), env.child(t, childB)

	// No connection yet
	env.mustDeny(t, a, b)

	// Approved connection but no flag anywhere
	env.approveConnection(t, childA, childB, parentA)
	env.mustDeny(t, a, b)

	// One family enabling the flag is enough
	if err := env.flags.SetFlag(parentA, familyA, models.FlagChildMessaging, true); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}
	env.mustAllow(t, a, b)
	env.mustAllow(t, b, a)

	// Calls are gated by their own flag
	allowed, err := env.permissions.CanCall(a, b)
	if err != nil {
		t.Fatalf("CanCall failed: %v", err)
	}
	if allowed {
		t.Error("CanCall = true with only the messaging flag enabled")
	}

	if err := env.flags.SetFlag(parentB, familyB, models.FlagChildCalls, true); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}
	allowed, err = env.permissions.CanCall(a, b)
	if err != nil {
		t.Fatalf("CanCall failed: %v", err)
	}
	if !allowed {
		t.Error("CanCall = false after enabling the calls flag")
	}

	// Disabling the messaging flag again closes the gate
	if err := env.flags.SetFlag(parentA, familyA, models.FlagChildMessaging, false); err != nil {
		t.Fatalf("Failed to clear flag: %v", err)
	}
	env.mustDeny(t, a, b)
}

func TestBlockOverridesApprovedConnection(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")

	env.approveConnection(t, childA, childB, parentA)
	if err := env.flags.SetFlag(parentA, familyA, models.FlagChildMessaging, true); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}

	a, b := env.child(t, childA), env.child(t, childB)
	env.mustAllow(t, a, b)

	// A block from either child suppresses both directions
	if _, err := env.blocks.SetBlock(childA, models.ChildTarget(childB)); err != nil {
		t.Fatalf("Failed to set block: %v", err)
	}
	env.mustDeny(t, a, b)
	env.mustDeny(t, b, a)

	// Lifting the block restores contact
	if err := env.blocks.ClearBlock(childA, models.ChildTarget(childB)); err != nil {
		t.Fatalf("Failed to clear block: %v", err)
	}
	env.mustAllow(t, a, b)
}

func TestBlockAdultBidirectional(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)
	childA := env.createChild(t, familyA, parentA, "Child A")

	member, child := env.adult(t, memberA), env.child(t, childA)
	env.mustAllow(t, member, child)

	if _, err := env.blocks.SetBlock(childA, models.AdultTarget(memberA)); err != nil {
		t.Fatalf("Failed to set block: %v", err)
	}
	env.mustDeny(t, member, child)
	env.mustDeny(t, child, member)
}

func TestCannotBlockOwnParent(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	childA := env.createChild(t, familyA, parentA, "Child A")

	// The write boundary rejects the block outright
	_, err := env.blocks.SetBlock(childA, models.AdultTarget(parentA))
	if !errors.Is(err, ErrCannotBlockParent) {
		t.Fatalf("SetBlock(child, own parent) error = %v, want ErrCannotBlockParent", err)
	}

	// A stale row slipped in behind the service's back is still ignored
	if _, err := env.blockRepo.CreateBlock(childA, models.AdultTarget(parentA)); err != nil {
		t.Fatalf("Failed to insert stale block row: %v", err)
	}
	blocked, err := env.blocks.IsBlocked(childA, models.AdultTarget(parentA))
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if blocked {
		t.Error("IsBlocked(child, own parent) = true despite the safety override")
	}
	env.mustAllow(t, env.adult(t, parentA), env.child(t, childA))
}

func TestBlockReactivation(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)
	childA := env.createChild(t, familyA, parentA, "Child A")

	target := models.AdultTarget(memberA)
	first, err := env.blocks.SetBlock(childA, target)
	if err != nil {
		t.Fatalf("Failed to set block: %v", err)
	}
	if err := env.blocks.ClearBlock(childA, target); err != nil {
		t.Fatalf("Failed to clear block: %v", err)
	}

	// Re-blocking reuses the soft-closed row
	second, err := env.blocks.SetBlock(childA, target)
	if err != nil {
		t.Fatalf("Failed to re-set block: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Re-block created a new row: first id %d, second id %d", first.ID, second.ID)
	}

	active, err := env.blocks.ListActiveBlocks(childA)
	if err != nil {
		t.Fatalf("Failed to list blocks: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active block, got %d", len(active))
	}
}

func TestConnectionStateMachine(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	stranger, _ := env.createParent(t, "px@example.com", "Parent X")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")

	conn, err := env.connections.RequestConnection(childA, childB)
	if err != nil {
		t.Fatalf("Failed to request connection: %v", err)
	}
	if conn.Status != models.ConnectionPending {
		t.Errorf("New connection status = %s, want pending", conn.Status)
	}

	// A stranger parent cannot decide it
	if _, err := env.connections.ApproveConnection(conn.ID, stranger); !errors.Is(err, ErrNotChildsParent) {
		t.Errorf("Approve by stranger error = %v, want ErrNotChildsParent", err)
	}

	// A parent of either child can
	if _, err := env.connections.ApproveConnection(conn.ID, parentB); err != nil {
		t.Fatalf("Failed to approve connection: %v", err)
	}

	approved, err := env.connections.IsApprovedBetween(childB, childA)
	if err != nil {
		t.Fatalf("IsApprovedBetween failed: %v", err)
	}
	if !approved {
		t.Error("IsApprovedBetween = false after approval (reversed order lookup)")
	}

	// Terminal states take no further transitions
	if _, err := env.connections.RejectConnection(conn.ID, parentA); !errors.Is(err, ErrConnectionDecided) {
		t.Errorf("Reject after approve error = %v, want ErrConnectionDecided", err)
	}
}

func TestDuplicateConnectionRequests(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")

	first, err := env.connections.RequestConnection(childA, childB)
	if err != nil {
		t.Fatalf("Failed to request connection: %v", err)
	}

	// Same ordering is a no-op
	again, err := env.connections.RequestConnection(childA, childB)
	if err != nil {
		t.Fatalf("Repeat request failed: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("Repeat request created a new row: %d vs %d", again.ID, first.ID)
	}

	// Swapped ordering must not create a duplicate logical connection
	swapped, err := env.connections.RequestConnection(childB, childA)
	if err != nil {
		t.Fatalf("Swapped request failed: %v", err)
	}
	if swapped.ID != first.ID {
		t.Errorf("Swapped request created a duplicate row: %d vs %d", swapped.ID, first.ID)
	}

	// A rejected connection stays closed to re-requests
	if _, err := env.connections.RejectConnection(first.ID, parentA); err != nil {
		t.Fatalf("Failed to reject connection: %v", err)
	}
	if _, err := env.connections.RequestConnection(childA, childB); !errors.Is(err, ErrConnectionExists) {
		t.Errorf("Re-request after rejection error = %v, want ErrConnectionExists", err)
	}
}

func TestMirroredInsertsConvergeOnOneRow(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	childA := env.createChild(t, familyA, parentA, "Child A")
	childB := env.createChild(t, familyB, parentB, "Child B")

	// Hit the repository directly, modelling two requests that both
	// passed the duplicate lookup before either inserted
	connectionRepo := repository.NewConnectionRepository(env.db)
	first, err := connectionRepo.CreateConnection(childA, familyA, childB, familyB)
	if err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	mirror, err := connectionRepo.CreateConnection(childB, familyB, childA, familyA)
	if err != nil {
		t.Fatalf("Mirrored insert failed: %v", err)
	}
	if mirror.ID != first.ID {
		t.Errorf("Mirrored insert created a duplicate row: %d vs %d", mirror.ID, first.ID)
	}

	conns, err := env.connections.ListConnectionsForChild(childA)
	if err != nil {
		t.Fatalf("Failed to list connections: %v", err)
	}
	if len(conns) != 1 {
		t.Errorf("Connection count = %d, want 1", len(conns))
	}
}

func TestTwoHouseholdChild(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	parentC, familyC := env.createParent(t, "pc@example.com", "Parent C")
	memberB := env.createFamilyMember(t, "mb@example.com", "Member B", familyB)

	// Child A lives in both family A and family B
	childA := env.createChild(t, familyA, parentA, "Child A")
	if err := env.families.AddChildToFamily(childA, familyB, parentB); err != nil {
		t.Fatalf("Failed to add child to second family: %v", err)
	}
	childC := env.createChild(t, familyC, parentC, "Child C")

	// Adults of either household reach the child
	env.mustAllow(t, env.adult(t, parentA), env.child(t, childA))
	env.mustAllow(t, env.adult(t, parentB), env.child(t, childA))
	env.mustAllow(t, env.adult(t, memberB), env.child(t, childA))

	// The flag check spans both of the child's families
	env.approveConnection(t, childA, childC, parentC)
	env.mustDeny(t, env.child(t, childA), env.child(t, childC))

	if err := env.flags.SetFlag(parentB, familyB, models.FlagChildMessaging, true); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}
	env.mustAllow(t, env.child(t, childA), env.child(t, childC))
}

func TestPendingVisibleToBothHouseholds(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	parentB, familyB := env.createParent(t, "pb@example.com", "Parent B")
	parentC, familyC := env.createParent(t, "pc@example.com", "Parent C")

	// Child A lives in both family A and family B
	childA := env.createChild(t, familyA, parentA, "Child A")
	if err := env.families.AddChildToFamily(childA, familyB, parentB); err != nil {
		t.Fatalf("Failed to add child to second family: %v", err)
	}
	childC := env.createChild(t, familyC, parentC, "Child C")

	conn, err := env.connections.RequestConnection(childA, childC)
	if err != nil {
		t.Fatalf("Failed to request connection: %v", err)
	}

	// Every household of either child sees the pending request
	for _, tc := range []struct {
		name     string
		parentID int64
		familyID int64
	}{
		{"first household", parentA, familyA},
		{"second household", parentB, familyB},
		{"target household", parentC, familyC},
	} {
		pending, err := env.connections.ListPendingForFamily(tc.parentID, tc.familyID)
		if err != nil {
			t.Fatalf("ListPendingForFamily(%s) failed: %v", tc.name, err)
		}
		if len(pending) != 1 || pending[0].ID != conn.ID {
			t.Errorf("ListPendingForFamily(%s) = %d rows, want the pending request", tc.name, len(pending))
		}
	}

	// Either household's parent can decide it
	if _, err := env.connections.ApproveConnection(conn.ID, parentB); err != nil {
		t.Fatalf("Approve by second household failed: %v", err)
	}
	pending, err := env.connections.ListPendingForFamily(parentB, familyB)
	if err != nil {
		t.Fatalf("ListPendingForFamily failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Pending count after decision = %d, want 0", len(pending))
	}
}

func TestSetFlagRequiresParent(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)

	if err := env.flags.SetFlag(memberA, familyA, models.FlagChildMessaging, true); !errors.Is(err, ErrNotFamilyParent) {
		t.Errorf("SetFlag by family member error = %v, want ErrNotFamilyParent", err)
	}
	if err := env.flags.SetFlag(parentA, familyA, models.FlagChildMessaging, true); err != nil {
		t.Errorf("SetFlag by parent failed: %v", err)
	}
}

func TestSuspendedMemberDenied(t *testing.T) {
	env := newTestEnv(t)

	parentA, familyA := env.createParent(t, "pa@example.com", "Parent A")
	memberA := env.createFamilyMember(t, "ma@example.com", "Member A", familyA)
	childA := env.createChild(t, familyA, parentA, "Child A")

	member := env.adult(t, memberA)
	env.mustAllow(t, member, env.child(t, childA))

	if err := env.families.SuspendMember(parentA, familyA, memberA); err != nil {
		t.Fatalf("Failed to suspend member: %v", err)
	}

	// A suspended member no longer resolves to any active family
	if _, err := env.identities.ResolveAdult(memberA); !errors.Is(err, ErrIdentityNotResolved) {
		t.Errorf("ResolveAdult of suspended member error = %v, want ErrIdentityNotResolved", err)
	}

	// Even a stale identity from before the suspension is denied
	env.mustDeny(t, member, env.child(t, childA))
}
