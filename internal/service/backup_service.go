package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"famlink/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version       string               `json:"version"`
	ExportedAt    time.Time            `json:"exported_at"`
	Users         []UserBackup         `json:"users"`
	Families      []FamilyBackup       `json:"families"`
	Children      []ChildBackup        `json:"children"`
	Blocks        []BlockBackup        `json:"blocks"`
	Connections   []ConnectionBackup   `json:"connections"`
	FeatureFlags  []FeatureFlagBackup  `json:"feature_flags"`
	Conversations []ConversationBackup `json:"conversations"`
}

// UserBackup represents an adult account record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FamilyBackup represents a family record with its adult members
type FamilyBackup struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	FamilyCode string               `json:"family_code"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Members    []FamilyMemberBackup `json:"members"`
}

// FamilyMemberBackup represents an adult membership record
type FamilyMemberBackup struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// ChildBackup represents a child profile with its family memberships
type ChildBackup struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Username    string                  `json:"username"`
	Password    string                  `json:"password"`
	AvatarColor string                  `json:"avatar_color"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Memberships []ChildMembershipBackup `json:"memberships"`
}

// ChildMembershipBackup represents a child's link to one family
type ChildMembershipBackup struct {
	FamilyID int64 `json:"family_id"`
	AddedBy  int64 `json:"added_by"`
}

// BlockBackup represents a block record, including lifted ones
type BlockBackup struct {
	ID             int64      `json:"id"`
	BlockerChildID int64      `json:"blocker_child_id"`
	BlockedUserID  *int64     `json:"blocked_user_id"`
	BlockedChildID *int64     `json:"blocked_child_id"`
	BlockedAt      time.Time  `json:"blocked_at"`
	UnblockedAt    *time.Time `json:"unblocked_at"`
}

// ConnectionBackup represents a connection request record
type ConnectionBackup struct {
	ID                int64     `json:"id"`
	RequesterChildID  int64     `json:"requester_child_id"`
	RequesterFamilyID int64     `json:"requester_family_id"`
	TargetChildID     int64     `json:"target_child_id"`
	TargetFamilyID    int64     `json:"target_family_id"`
	Status            string    `json:"status"`
	ApprovedBy        *int64    `json:"approved_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FeatureFlagBackup represents a feature flag record
type FeatureFlagBackup struct {
	FamilyID int64  `json:"family_id"`
	FlagKey  string `json:"flag_key"`
	Enabled  bool   `json:"enabled"`
}

// ConversationBackup represents a conversation and its events
type ConversationBackup struct {
	ID          int64              `json:"id"`
	PairKey     string             `json:"pair_key"`
	AdultUserID *int64             `json:"adult_user_id"`
	ChildID     int64              `json:"child_id"`
	PeerChildID *int64             `json:"peer_child_id"`
	CreatedAt   time.Time          `json:"created_at"`
	Messages    []MessageBackup    `json:"messages"`
	Calls       []CallRecordBackup `json:"calls"`
}

// MessageBackup represents a message record
type MessageBackup struct {
	ID         int64     `json:"id"`
	SenderKind string    `json:"sender_kind"`
	SenderID   int64     `json:"sender_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// CallRecordBackup represents a call record
type CallRecordBackup struct {
	ID         int64      `json:"id"`
	CallerKind string     `json:"caller_kind"`
	CallerID   int64      `json:"caller_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database to an io.Writer
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportChildren(backup); err != nil {
		return fmt.Errorf("failed to export children: %w", err)
	}
	if err := s.exportBlocks(backup); err != nil {
		return fmt.Errorf("failed to export blocks: %w", err)
	}
	if err := s.exportConnections(backup); err != nil {
		return fmt.Errorf("failed to export connections: %w", err)
	}
	if err := s.exportFeatureFlags(backup); err != nil {
		return fmt.Errorf("failed to export feature flags: %w", err)
	}
	if err := s.exportConversations(backup); err != nil {
		return fmt.Errorf("failed to export conversations: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d users, %d families, %d children, %d blocks, %d connections, %d flags, %d conversations",
		len(backup.Users), len(backup.Families), len(backup.Children),
		len(backup.Blocks), len(backup.Connections), len(backup.FeatureFlags), len(backup.Conversations))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in dependency order
	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importChildren(backup.Children); err != nil {
		return fmt.Errorf("failed to import children: %w", err)
	}
	if err := s.importBlocks(backup.Blocks); err != nil {
		return fmt.Errorf("failed to import blocks: %w", err)
	}
	if err := s.importConnections(backup.Connections); err != nil {
		return fmt.Errorf("failed to import connections: %w", err)
	}
	if err := s.importFeatureFlags(backup.FeatureFlags); err != nil {
		return fmt.Errorf("failed to import feature flags: %w", err)
	}
	if err := s.importConversations(backup.Conversations); err != nil {
		return fmt.Errorf("failed to import conversations: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := "SELECT id, name, family_code, created_at, updated_at FROM families ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.FamilyCode, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range backup.Families {
		memberQuery := "SELECT user_id, role, status FROM family_members WHERE family_id = ? ORDER BY user_id"
		memberRows, err := s.db.Query(memberQuery, backup.Families[i].ID)
		if err != nil {
			return err
		}
		for memberRows.Next() {
			var m FamilyMemberBackup
			if err := memberRows.Scan(&m.UserID, &m.Role, &m.Status); err != nil {
				memberRows.Close()
				return err
			}
			backup.Families[i].Members = append(backup.Families[i].Members, m)
		}
		memberRows.Close()
	}
	return nil
}

func (s *BackupService) exportChildren(backup *BackupData) error {
	query := "SELECT id, name, username, password, avatar_color, created_at, updated_at FROM children ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChildBackup
		if err := rows.Scan(&c.ID, &c.Name, &c.Username, &c.Password, &c.AvatarColor, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		backup.Children = append(backup.Children, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range backup.Children {
		memberQuery := "SELECT family_id, added_by FROM child_memberships WHERE child_id = ? ORDER BY family_id"
		memberRows, err := s.db.Query(memberQuery, backup.Children[i].ID)
		if err != nil {
			return err
		}
		for memberRows.Next() {
			var m ChildMembershipBackup
			if err := memberRows.Scan(&m.FamilyID, &m.AddedBy); err != nil {
				memberRows.Close()
				return err
			}
			backup.Children[i].Memberships = append(backup.Children[i].Memberships, m)
		}
		memberRows.Close()
	}
	return nil
}

func (s *BackupService) exportBlocks(backup *BackupData) error {
	query := "SELECT id, blocker_child_id, blocked_user_id, blocked_child_id, blocked_at, unblocked_at FROM blocks ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b BlockBackup
		if err := rows.Scan(&b.ID, &b.BlockerChildID, &b.BlockedUserID, &b.BlockedChildID, &b.BlockedAt, &b.UnblockedAt); err != nil {
			return err
		}
		backup.Blocks = append(backup.Blocks, b)
	}
	return rows.Err()
}

func (s *BackupService) exportConnections(backup *BackupData) error {
	query := "SELECT id, requester_child_id, requester_family_id, target_child_id, target_family_id, status, approved_by, created_at, updated_at FROM connections ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ConnectionBackup
		if err := rows.Scan(&c.ID, &c.RequesterChildID, &c.RequesterFamilyID, &c.TargetChildID, &c.TargetFamilyID, &c.Status, &c.ApprovedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		backup.Connections = append(backup.Connections, c)
	}
	return rows.Err()
}

func (s *BackupService) exportFeatureFlags(backup *BackupData) error {
	query := "SELECT family_id, flag_key, enabled FROM feature_flags ORDER BY family_id, flag_key"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FeatureFlagBackup
		if err := rows.Scan(&f.FamilyID, &f.FlagKey, &f.Enabled); err != nil {
			return err
		}
		backup.FeatureFlags = append(backup.FeatureFlags, f)
	}
	return rows.Err()
}

func (s *BackupService) exportConversations(backup *BackupData) error {
	query := "SELECT id, pair_key, adult_user_id, child_id, peer_child_id, created_at FROM conversations ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ConversationBackup
		if err := rows.Scan(&c.ID, &c.PairKey, &c.AdultUserID, &c.ChildID, &c.PeerChildID, &c.CreatedAt); err != nil {
			return err
		}
		backup.Conversations = append(backup.Conversations, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range backup.Conversations {
		convID := backup.Conversations[i].ID

		msgRows, err := s.db.Query("SELECT id, sender_kind, sender_id, body, created_at FROM messages WHERE conversation_id = ? ORDER BY id", convID)
		if err != nil {
			return err
		}
		for msgRows.Next() {
			var m MessageBackup
			if err := msgRows.Scan(&m.ID, &m.SenderKind, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
				msgRows.Close()
				return err
			}
			backup.Conversations[i].Messages = append(backup.Conversations[i].Messages, m)
		}
		msgRows.Close()

		callRows, err := s.db.Query("SELECT id, caller_kind, caller_id, status, started_at, ended_at FROM call_records WHERE conversation_id = ? ORDER BY id", convID)
		if err != nil {
			return err
		}
		for callRows.Next() {
			var c CallRecordBackup
			if err := callRows.Scan(&c.ID, &c.CallerKind, &c.CallerID, &c.Status, &c.StartedAt, &c.EndedAt); err != nil {
				callRows.Close()
				return err
			}
			backup.Conversations[i].Calls = append(backup.Conversations[i].Calls, c)
		}
		callRows.Close()
	}
	return nil
}

func (s *BackupService) importUsers(users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := "INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.OAuthProvider, u.OAuthSubject, u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	log.Printf("Importing %d families...", len(families))
	for _, f := range families {
		query := "INSERT INTO families (id, name, family_code, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, f.ID, f.Name, f.FamilyCode, f.CreatedAt, f.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}

		for _, m := range f.Members {
			memberQuery := "INSERT INTO family_members (family_id, user_id, role, status) VALUES (?, ?, ?, ?)"
			if _, err := s.db.Exec(memberQuery, f.ID, m.UserID, m.Role, m.Status); err != nil {
				return fmt.Errorf("failed to import family member %d for family %d: %w", m.UserID, f.ID, err)
			}
		}
	}
	return nil
}

func (s *BackupService) importChildren(children []ChildBackup) error {
	log.Printf("Importing %d children...", len(children))
	for _, c := range children {
		query := "INSERT INTO children (id, name, username, password, avatar_color, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, c.ID, c.Name, c.Username, c.Password, c.AvatarColor, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import child %d: %w", c.ID, err)
		}

		for _, m := range c.Memberships {
			memberQuery := "INSERT INTO child_memberships (child_id, family_id, added_by) VALUES (?, ?, ?)"
			if _, err := s.db.Exec(memberQuery, c.ID, m.FamilyID, m.AddedBy); err != nil {
				return fmt.Errorf("failed to import membership for child %d: %w", c.ID, err)
			}
		}
	}
	return nil
}

func (s *BackupService) importBlocks(blocks []BlockBackup) error {
	log.Printf("Importing %d blocks...", len(blocks))
	for _, b := range blocks {
		query := "INSERT INTO blocks (id, blocker_child_id, blocked_user_id, blocked_child_id, blocked_at, unblocked_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, b.ID, b.BlockerChildID, b.BlockedUserID, b.BlockedChildID, b.BlockedAt, b.UnblockedAt); err != nil {
			return fmt.Errorf("failed to import block %d: %w", b.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importConnections(connections []ConnectionBackup) error {
	log.Printf("Importing %d connections...", len(connections))
	for _, c := range connections {
		query := "INSERT INTO connections (id, requester_child_id, requester_family_id, target_child_id, target_family_id, status, approved_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, c.ID, c.RequesterChildID, c.RequesterFamilyID, c.TargetChildID, c.TargetFamilyID, c.Status, c.ApprovedBy, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import connection %d: %w", c.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFeatureFlags(flags []FeatureFlagBackup) error {
	log.Printf("Importing %d feature flags...", len(flags))
	for _, f := range flags {
		query := "INSERT INTO feature_flags (family_id, flag_key, enabled) VALUES (?, ?, ?)"
		if _, err := s.db.Exec(query, f.FamilyID, f.FlagKey, f.Enabled); err != nil {
			return fmt.Errorf("failed to import flag %s for family %d: %w", f.FlagKey, f.FamilyID, err)
		}
	}
	return nil
}

func (s *BackupService) importConversations(conversations []ConversationBackup) error {
	log.Printf("Importing %d conversations...", len(conversations))
	for _, c := range conversations {
		query := "INSERT INTO conversations (id, pair_key, adult_user_id, child_id, peer_child_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, c.ID, c.PairKey, c.AdultUserID, c.ChildID, c.PeerChildID, c.CreatedAt); err != nil {
			return fmt.Errorf("failed to import conversation %d: %w", c.ID, err)
		}

		for _, m := range c.Messages {
			msgQuery := "INSERT INTO messages (id, conversation_id, sender_kind, sender_id, body, created_at) VALUES (?, ?, ?, ?, ?, ?)"
			if _, err := s.db.Exec(msgQuery, m.ID, c.ID, m.SenderKind, m.SenderID, m.Body, m.CreatedAt); err != nil {
				return fmt.Errorf("failed to import message %d: %w", m.ID, err)
			}
		}
		for _, cr := range c.Calls {
			callQuery := "INSERT INTO call_records (id, conversation_id, caller_kind, caller_id, status, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
			if _, err := s.db.Exec(callQuery, cr.ID, c.ID, cr.CallerKind, cr.CallerID, cr.Status, cr.StartedAt, cr.EndedAt); err != nil {
				return fmt.Errorf("failed to import call record %d: %w", cr.ID, err)
			}
		}
	}
	return nil
}
