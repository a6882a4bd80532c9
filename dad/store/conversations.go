// Package store implements the conversation and relationship stores
// over an embedded libsql database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

// Conversations implements ports.ConversationStore.
type Conversations struct {
	db *sql.DB
}

// NewConversations creates a conversation store over db.
func NewConversations(db *sql.DB) *Conversations {
	return &Conversations{db: db}
}

// FindOrCreate returns the conversation for (platform, channel,
// thread), creating it on first contact. Creation races resolve
// through the unique index: INSERT OR IGNORE then re-select.
func (s *Conversations) FindOrCreate(ctx context.Context, platform, channelID, threadID, userID string) (*ports.Conversation, error) {
	conversation, err := s.find(ctx, platform, channelID, threadID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (channel_id, thread_id, user_id, platform) VALUES (?, ?, ?, ?)`,
		channelID, threadID, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return s.find(ctx, platform, channelID, threadID)
}

func (s *Conversations) find(ctx context.Context, platform, channelID, threadID string) (*ports.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, platform, channel_id, thread_id, session_id, user_id, total_cost_usd, total_turns
		 FROM conversations WHERE platform = ? AND channel_id = ? AND thread_id = ?`,
		platform, channelID, threadID)

	var conversation ports.Conversation
	var sessionID sql.NullString
	err := row.Scan(
		&conversation.ID,
		&conversation.Platform,
		&conversation.ChannelID,
		&conversation.ThreadID,
		&sessionID,
		&conversation.UserID,
		&conversation.TotalCostUSD,
		&conversation.TotalTurns,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	conversation.SessionID = sessionID.String
	return &conversation, nil
}

// UpdateSessionID persists a new continuity token.
func (s *Conversations) UpdateSessionID(ctx context.Context, conversationID int64, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET session_id = ?, updated_at = datetime('now') WHERE id = ?`,
		sessionID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to update session id: %w", err)
	}
	return nil
}

// ClearSessionID drops the stored continuity token, so later turns
// start a fresh session.
func (s *Conversations) ClearSessionID(ctx context.Context, conversationID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET session_id = NULL, updated_at = datetime('now') WHERE id = ?`,
		conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear session id: %w", err)
	}
	return nil
}

// AddUsage accumulates cost and turn count onto the conversation.
func (s *Conversations) AddUsage(ctx context.Context, conversationID int64, costUSD float64, turns int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET total_cost_usd = total_cost_usd + ?, total_turns = total_turns + ?, updated_at = datetime('now') WHERE id = ?`,
		costUSD, turns, conversationID)
	if err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	return nil
}

// LogMessage appends one entry to the conversation's message log.
// Entries are written once and never mutated.
func (s *Conversations) LogMessage(ctx context.Context, conversationID int64, msg ports.Message) error {
	var costUSD, durationMS any
	if msg.CostUSD > 0 {
		costUSD = msg.CostUSD
	}
	if msg.DurationMS > 0 {
		durationMS = msg.DurationMS
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, cost_usd, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		conversationID, msg.Role, msg.Content, costUSD, durationMS)
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}
	return nil
}

// parseDBTime parses sqlite datetime('now') values; zero time on
// malformed input.
func parseDBTime(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Ensure Conversations implements the ConversationStore interface.
var _ ports.ConversationStore = (*Conversations)(nil)
