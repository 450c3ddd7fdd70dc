package handlers

import (
	"time"

	"famlink/internal/models"
)

// Wire representations of the domain models. Internal fields such as
// password hashes and pair keys never leave through these.

type UserView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func NewUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, Name: u.Name}
}

type FamilyView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FamilyCode string    `json:"family_code"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewFamilyView(f *models.Family) FamilyView {
	return FamilyView{ID: f.ID, Name: f.Name, FamilyCode: f.FamilyCode, CreatedAt: f.CreatedAt}
}

type MemberView struct {
	ID       int64     `json:"id"`
	FamilyID int64     `json:"family_id"`
	UserID   int64     `json:"user_id"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

func NewMemberView(m *models.FamilyMember) MemberView {
	return MemberView{
		ID:       m.ID,
		FamilyID: m.FamilyID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		Status:   string(m.Status),
		JoinedAt: m.JoinedAt,
	}
}

func NewMemberViews(members []*models.FamilyMember) []MemberView {
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, NewMemberView(m))
	}
	return views
}

type ChildView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	AvatarColor string `json:"avatar_color"`
}

func NewChildView(c *models.Child) ChildView {
	return ChildView{ID: c.ID, Name: c.Name, Username: c.Username, AvatarColor: c.AvatarColor}
}

func NewChildViews(children []*models.Child) []ChildView {
	views := make([]ChildView, 0, len(children))
	for _, c := range children {
		views = append(views, NewChildView(c))
	}
	return views
}

type BlockView struct {
	ID             int64      `json:"id"`
	BlockerChildID int64      `json:"blocker_child_id"`
	BlockedUserID  *int64     `json:"blocked_user_id,omitempty"`
	BlockedChildID *int64     `json:"blocked_child_id,omitempty"`
	BlockedAt      time.Time  `json:"blocked_at"`
	UnblockedAt    *time.Time `json:"unblocked_at,omitempty"`
}

func NewBlockView(b *models.Block) BlockView {
	return BlockView{
		ID:             b.ID,
		BlockerChildID: b.BlockerChildID,
		BlockedUserID:  b.BlockedUserID,
		BlockedChildID: b.BlockedChildID,
		BlockedAt:      b.BlockedAt,
		UnblockedAt:    b.UnblockedAt,
	}
}

func NewBlockViews(blocks []*models.Block) []BlockView {
	views := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		views = append(views, NewBlockView(b))
	}
	return views
}

type ConnectionView struct {
	ID                int64     `json:"id"`
	RequesterChildID  int64     `json:"requester_child_id"`
	RequesterFamilyID int64     `json:"requester_family_id"`
	TargetChildID     int64     `json:"target_child_id"`
	TargetFamilyID    int64     `json:"target_family_id"`
	Status            string    `json:"status"`
	ApprovedBy        *int64    `json:"approved_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewConnectionView(c *models.Connection) ConnectionView {
	return ConnectionView{
		ID:                c.ID,
		RequesterChildID:  c.RequesterChildID,
		RequesterFamilyID: c.RequesterFamilyID,
		TargetChildID:     c.TargetChildID,
		TargetFamilyID:    c.TargetFamilyID,
		Status:            string(c.Status),
		ApprovedBy:        c.ApprovedBy,
		CreatedAt:         c.CreatedAt,
	}
}

func NewConnectionViews(connections []*models.Connection) []ConnectionView {
	views := make([]ConnectionView, 0, len(connections))
	for _, c := range connections {
		views = append(views, NewConnectionView(c))
	}
	return views
}

type FlagView struct {
	FamilyID  int64     `json:"family_id"`
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewFlagViews(flags []*models.FeatureFlag) []FlagView {
	views := make([]FlagView, 0, len(flags))
	for _, f := range flags {
		views = append(views, FlagView{
			FamilyID:  f.FamilyID,
			Key:       string(f.Key),
			Enabled:   f.Enabled,
			UpdatedAt: f.UpdatedAt,
		})
	}
	return views
}

type ConversationView struct {
	ID          int64     `json:"id"`
	AdultUserID *int64    `json:"adult_user_id,omitempty"`
	ChildID     int64     `json:"child_id"`
	PeerChildID *int64    `json:"peer_child_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewConversationView(c *models.Conversation) ConversationView {
	return ConversationView{
		ID:          c.ID,
		AdultUserID: c.AdultUserID,
		ChildID:     c.ChildID,
		PeerChildID: c.PeerChildID,
		CreatedAt:   c.CreatedAt,
	}
}

func NewConversationViews(conversations []*models.Conversation) []ConversationView {
	views := make([]ConversationView, 0, len(conversations))
	for _, c := range conversations {
		views = append(views, NewConversationView(c))
	}
	return views
}

type MessageView struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderKind     string    `json:"sender_kind"`
	SenderID       int64     `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewMessageView(m *models.Message) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderKind:     string(m.SenderKind),
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}

func NewMessageViews(messages []*models.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, NewMessageView(m))
	}
	return views
}

type CallView struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	CallerKind     string     `json:"caller_kind"`
	CallerID       int64      `json:"caller_id"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

func NewCallView(c *models.CallRecord) CallView {
	return CallView{
		ID:             c.ID,
		ConversationID: c.ConversationID,
		CallerKind:     string(c.CallerKind),
		CallerID:       c.CallerID,
		Status:         string(c.Status),
		StartedAt:      c.StartedAt,
		EndedAt:        c.EndedAt,
	}
}

func NewCallViews(calls []*models.CallRecord) []CallView {
	views := make([]CallView, 0, len(calls))
	for _, c := range calls {
		views = append(views, NewCallView(c))
	}
	return views
}

type InvitationView struct {
	Code        string    `json:"code"`
	Email       string    `json:"email"`
	FamilyID    int64     `json:"family_id"`
	Role        string    `json:"role"`
	InviterName string    `json:"inviter_name,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewInvitationView(i *models.Invitation) InvitationView {
	return InvitationView{
		Code:        i.Code,
		Email:       i.Email,
		FamilyID:    i.FamilyID,
		Role:        string(i.Role),
		InviterName: i.InviterName,
		ExpiresAt:   i.ExpiresAt,
	}
}
