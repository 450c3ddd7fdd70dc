package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famlink/internal/database"
	"famlink/internal/models"
)

// ConversationRepository handles database operations for conversations
// and the message and call events stored within them
type ConversationRepository struct {
	db database.DBTX
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db database.DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ConversationRepository) WithTx(tx *database.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

const conversationColumns = "id, pair_key, adult_user_id, child_id, peer_child_id, created_at"

// GetOrCreateConversation returns the single conversation for the given
// pair, creating it if it does not exist yet. The insert ignores a
// conflicting pair_key, so concurrent callers converge on one row.
func (r *ConversationRepository) GetOrCreateConversation(pair models.ConversationPair) (*models.Conversation, error) {
	var adultID, peerID interface{}
	if pair.AdultUserID != 0 {
		adultID = pair.AdultUserID
	}
	if pair.PeerChildID != 0 {
		peerID = pair.PeerChildID
	}

	query := r.db.GetDialect().InsertConversationQuery()
	if _, err := r.db.Exec(query, pair.Key(), adultID, pair.ChildID, peerID); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	conv, err := r.GetConversationByPairKey(pair.Key())
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation missing after insert for pair %s", pair.Key())
	}
	return conv, nil
}

// GetConversationByID retrieves a conversation by ID
func (r *ConversationRepository) GetConversationByID(convID int64) (*models.Conversation, error) {
	query := "SELECT " + conversationColumns + " FROM conversations WHERE id = ?"
	return r.scanConversation(r.db.QueryRow(query, convID))
}

// GetConversationByPairKey retrieves a conversation by its canonical pair key
func (r *ConversationRepository) GetConversationByPairKey(pairKey string) (*models.Conversation, error) {
	query := "SELECT " + conversationColumns + " FROM conversations WHERE pair_key = ?"
	return r.scanConversation(r.db.QueryRow(query, pairKey))
}

func (r *ConversationRepository) scanConversation(row *sql.Row) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := row.Scan(
		&conv.ID,
		&conv.PairKey,
		&conv.AdultUserID,
		&conv.ChildID,
		&conv.PeerChildID,
		&conv.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// ListConversationsForChild retrieves all conversations a child participates in
func (r *ConversationRepository) ListConversationsForChild(childID int64) ([]*models.Conversation, error) {
	query := "SELECT " + conversationColumns + ` FROM conversations
		WHERE child_id = ? OR peer_child_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, childID, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

// ListConversationsForAdult retrieves all conversations an adult participates in
func (r *ConversationRepository) ListConversationsForAdult(userID int64) ([]*models.Conversation, error) {
	query := "SELECT " + conversationColumns + " FROM conversations WHERE adult_user_id = ? ORDER BY created_at DESC"
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

func scanConversations(rows *sql.Rows) ([]*models.Conversation, error) {
	var convs []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(
			&conv.ID,
			&conv.PairKey,
			&conv.AdultUserID,
			&conv.ChildID,
			&conv.PeerChildID,
			&conv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// CreateMessage stores a message in a conversation
func (r *ConversationRepository) CreateMessage(convID int64, senderKind models.IdentityKind, senderID int64, body string) (*models.Message, error) {
	query := "INSERT INTO messages (conversation_id, sender_kind, sender_id, body) VALUES (?, ?, ?, ?)"
	msgID, err := r.db.ExecReturningID(query, convID, string(senderKind), senderID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return &models.Message{
		ID:             msgID,
		ConversationID: convID,
		SenderKind:     senderKind,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
	}, nil
}

// ListMessages retrieves the most recent messages in a conversation,
// oldest first
func (r *ConversationRepository) ListMessages(convID int64, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_kind, sender_id, body, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`
	rows, err := r.db.Query(query, convID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var senderKind string
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&senderKind,
			&msg.SenderID,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.SenderKind = models.IdentityKind(senderKind)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CreateCallRecord stores a placed call in a conversation
func (r *ConversationRepository) CreateCallRecord(convID int64, callerKind models.IdentityKind, callerID int64) (*models.CallRecord, error) {
	query := "INSERT INTO call_records (conversation_id, caller_kind, caller_id, status) VALUES (?, ?, ?, ?)"
	callID, err := r.db.ExecReturningID(query, convID, string(callerKind), callerID, string(models.CallPlaced))
	if err != nil {
		return nil, fmt.Errorf("failed to create call record: %w", err)
	}

	return &models.CallRecord{
		ID:             callID,
		ConversationID: convID,
		CallerKind:     callerKind,
		CallerID:       callerID,
		Status:         models.CallPlaced,
		StartedAt:      time.Now(),
	}, nil
}

// UpdateCallStatus moves a call record to a new lifecycle state. Ended
// calls also record their end time.
func (r *ConversationRepository) UpdateCallStatus(callID int64, status models.CallStatus) error {
	var err error
	if status == models.CallEnded || status == models.CallMissed {
		_, err = r.db.Exec("UPDATE call_records SET status = ?, ended_at = ? WHERE id = ?", string(status), time.Now(), callID)
	} else {
		_, err = r.db.Exec("UPDATE call_records SET status = ? WHERE id = ?", string(status), callID)
	}
	if err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}
	return nil
}

// GetCallRecordByID retrieves a call record by ID
func (r *ConversationRepository) GetCallRecordByID(callID int64) (*models.CallRecord, error) {
	query := `
		SELECT id, conversation_id, caller_kind, caller_id, status, started_at, ended_at
		FROM call_records WHERE id = ?
	`
	call := &models.CallRecord{}
	var callerKind, status string
	err := r.db.QueryRow(query, callID).Scan(
		&call.ID,
		&call.ConversationID,
		&callerKind,
		&call.CallerID,
		&status,
		&call.StartedAt,
		&call.EndedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}

	call.CallerKind = models.IdentityKind(callerKind)
	call.Status = models.CallStatus(status)
	return call, nil
}

// ListCallRecords retrieves the call history of a conversation, most
// recent first
func (r *ConversationRepository) ListCallRecords(convID int64, limit int) ([]*models.CallRecord, error) {
	query := `
		SELECT id, conversation_id, caller_kind, caller_id, status, started_at, ended_at
		FROM call_records WHERE conversation_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?
	`
	rows, err := r.db.Query(query, convID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}
	defer rows.Close()

	var calls []*models.CallRecord
	for rows.Next() {
		call := &models.CallRecord{}
		var callerKind, status string
		if err := rows.Scan(
			&call.ID,
			&call.ConversationID,
			&callerKind,
			&call.CallerID,
			&status,
			&call.StartedAt,
			&call.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call record: %w", err)
		}
		call.CallerKind = models.IdentityKind(callerKind)
		call.Status = models.CallStatus(status)
		calls = append(calls, call)
	}
	return calls, rows.Err()
}
