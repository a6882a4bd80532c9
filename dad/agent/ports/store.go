package agentports

import (
	"context"
	"time"
)

// Message roles recorded in the conversation log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentiment labels one interaction-history entry.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Conversation is one chat thread's durable record. SessionID is the
// opaque continuity token returned by the agent; empty means no prior
// session to resume.
type Conversation struct {
	ID           int64
	Platform     string
	ChannelID    string
	ThreadID     string
	SessionID    string
	UserID       string
	TotalCostUSD float64
	TotalTurns   int
}

// Message is one append-only entry in a conversation's log.
type Message struct {
	Role       string
	Content    string
	CostUSD    float64 // zero persists as NULL
	DurationMS int64   // zero persists as NULL
}

// Interaction is one bounded-history entry for a relationship.
type Interaction struct {
	Timestamp time.Time `json:"ts"`
	Topic     string    `json:"topic"`
	Sentiment Sentiment `json:"sentiment"`
}

// Relationship is the durable per-user record.
type Relationship struct {
	ID                int64
	UserID            string
	DisplayName       string
	RespectScore      int
	History           []Interaction
	LastInteraction   time.Time
	TotalInteractions int
}

// RelationshipContext is the read used to build the next invocation's
// instructions: current score, counters, and the most recent history
// entries in chronological order.
type RelationshipContext struct {
	Score             int
	TotalInteractions int
	LastInteraction   time.Time
	Recent            []Interaction
}

// ConversationStore persists conversations and their message logs.
type ConversationStore interface {
	FindOrCreate(ctx context.Context, platform, channelID, threadID, userID string) (*Conversation, error)
	UpdateSessionID(ctx context.Context, conversationID int64, sessionID string) error
	ClearSessionID(ctx context.Context, conversationID int64) error
	AddUsage(ctx context.Context, conversationID int64, costUSD float64, turns int) error
	LogMessage(ctx context.Context, conversationID int64, msg Message) error
}

// RelationshipStore persists per-user respect scores and interaction
// history.
type RelationshipStore interface {
	GetOrCreate(ctx context.Context, userID string) (*Relationship, error)
	SetDisplayName(ctx context.Context, userID, name string) error
	ApplyRespectDelta(ctx context.Context, userID string, delta int) (int, error)
	AppendInteraction(ctx context.Context, userID, topic string, sentiment Sentiment) error
	ContextWindow(ctx context.Context, userID string) (*RelationshipContext, error)
}
