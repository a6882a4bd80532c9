package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

const (
	// maxHistoryEntries bounds the interaction history; oldest entries
	// drop first.
	maxHistoryEntries = 50

	// contextWindowEntries is how much recent history feeds the next
	// invocation's instructions.
	contextWindowEntries = 10
)

// Relationships implements ports.RelationshipStore. History is stored
// as a JSON array in the interaction_summary column. Two invocations
// for the same user on different threads can race the read-modify-
// write in AppendInteraction; last write wins, which matches the
// thread-keyed admission design. The respect score itself is updated
// with a single clamped statement and does not lose deltas.
type Relationships struct {
	db *sql.DB
}

// NewRelationships creates a relationship store over db.
func NewRelationships(db *sql.DB) *Relationships {
	return &Relationships{db: db}
}

// GetOrCreate returns the relationship for userID, creating it with
// the default score, empty history, and zero counters on first
// contact.
func (s *Relationships) GetOrCreate(ctx context.Context, userID string) (*ports.Relationship, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO relationships (user_id) VALUES (?)`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}
	return s.get(ctx, userID)
}

func (s *Relationships) get(ctx context.Context, userID string) (*ports.Relationship, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, display_name, respect_score, interaction_summary, last_interaction, total_interactions
		 FROM relationships WHERE user_id = ?`, userID)

	var relationship ports.Relationship
	var summary, lastInteraction string
	err := row.Scan(
		&relationship.ID,
		&relationship.UserID,
		&relationship.DisplayName,
		&relationship.RespectScore,
		&summary,
		&lastInteraction,
		&relationship.TotalInteractions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan relationship: %w", err)
	}

	if err := json.Unmarshal([]byte(summary), &relationship.History); err != nil {
		// A corrupt summary should not make the user unreachable;
		// history restarts empty.
		relationship.History = nil
	}
	relationship.LastInteraction = parseDBTime(lastInteraction)
	return &relationship, nil
}

// SetDisplayName fills the display name; used lazily on first sight
// of a user's name.
func (s *Relationships) SetDisplayName(ctx context.Context, userID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE relationships SET display_name = ? WHERE user_id = ?`, name, userID)
	if err != nil {
		return fmt.Errorf("failed to set display name: %w", err)
	}
	return nil
}

// ApplyRespectDelta adjusts the respect score by delta, clamped to
// [0,100] inside the statement so concurrent deltas cannot escape the
// bounds. Returns the new score.
func (s *Relationships) ApplyRespectDelta(ctx context.Context, userID string, delta int) (int, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE relationships
		 SET respect_score = MAX(0, MIN(100, respect_score + ?)), last_interaction = datetime('now')
		 WHERE user_id = ?`, delta, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to apply respect delta: %w", err)
	}

	var score int
	err = s.db.QueryRowContext(ctx,
		`SELECT respect_score FROM relationships WHERE user_id = ?`, userID).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("failed to read respect score: %w", err)
	}
	return score, nil
}

// AppendInteraction appends one history entry, dropping the oldest
// entries past the bound, and bumps the counters. The trimmed history,
// counter increment, and timestamp land in a single UPDATE so no
// intermediate state is observable.
func (s *Relationships) AppendInteraction(ctx context.Context, userID, topic string, sentiment ports.Sentiment) error {
	relationship, err := s.get(ctx, userID)
	if err != nil {
		return err
	}

	history := append(relationship.History, ports.Interaction{
		Timestamp: time.Now().UTC(),
		Topic:     topic,
		Sentiment: sentiment,
	})
	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}

	summary, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction history: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE relationships
		 SET interaction_summary = ?, total_interactions = total_interactions + 1, last_interaction = datetime('now')
		 WHERE user_id = ?`, string(summary), userID)
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	return nil
}

// ContextWindow reads the state fed into the next invocation: current
// score, counters, and the most recent history entries in
// chronological order.
func (s *Relationships) ContextWindow(ctx context.Context, userID string) (*ports.RelationshipContext, error) {
	relationship, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent := relationship.History
	if len(recent) > contextWindowEntries {
		recent = recent[len(recent)-contextWindowEntries:]
	}

	return &ports.RelationshipContext{
		Score:             relationship.RespectScore,
		TotalInteractions: relationship.TotalInteractions,
		LastInteraction:   relationship.LastInteraction,
		Recent:            recent,
	}, nil
}

// Ensure Relationships implements the RelationshipStore interface.
var _ ports.RelationshipStore = (*Relationships)(nil)
