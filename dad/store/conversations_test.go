package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
	"github.com/jeffsuperpower/dad/dad/db"
)

func createTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.ConnectToDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(conn))
	return conn
}

func TestConversationsFindOrCreate(t *testing.T) {
	conn := createTestDB(t)
	conversations := NewConversations(conn)
	ctx := context.Background()

	conversation, err := conversations.FindOrCreate(ctx, "slack", "C01", "1724.001", "U01")
	require.NoError(t, err)
	assert.Equal(t, "slack", conversation.Platform)
	assert.Equal(t, "C01", conversation.ChannelID)
	assert.Equal(t, "1724.001", conversation.ThreadID)
	assert.Equal(t, "U01", conversation.UserID)
	assert.Empty(t, conversation.SessionID)
	assert.Zero(t, conversation.TotalCostUSD)
	assert.Zero(t, conversation.TotalTurns)

	// Second call returns the same row, even for a different user in
	// the thread.
	again, err := conversations.FindOrCreate(ctx, "slack", "C01", "1724.001", "U02")
	require.NoError(t, err)
	assert.Equal(t, conversation.ID, again.ID)
	assert.Equal(t, "U01", again.UserID)

	// Same thread id on a different channel is a distinct conversation.
	other, err := conversations.FindOrCreate(ctx, "slack", "C02", "1724.001", "U01")
	require.NoError(t, err)
	assert.NotEqual(t, conversation.ID, other.ID)
}

func TestConversationsSessionLifecycle(t *testing.T) {
	conn := createTestDB(t)
	conversations := NewConversations(conn)
	ctx := context.Background()

	conversation, err := conversations.FindOrCreate(ctx, "slack", "C01", "t1", "U01")
	require.NoError(t, err)

	require.NoError(t, conversations.UpdateSessionID(ctx, conversation.ID, "sess-abc"))
	conversation, err = conversations.FindOrCreate(ctx, "slack", "C01", "t1", "U01")
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", conversation.SessionID)

	require.NoError(t, conversations.ClearSessionID(ctx, conversation.ID))
	conversation, err = conversations.FindOrCreate(ctx, "slack", "C01", "t1", "U01")
	require.NoError(t, err)
	assert.Empty(t, conversation.SessionID)
}

func TestConversationsAddUsageAccumulates(t *testing.T) {
	conn := createTestDB(t)
	conversations := NewConversations(conn)
	ctx := context.Background()

	conversation, err := conversations.FindOrCreate(ctx, "slack", "C01", "t1", "U01")
	require.NoError(t, err)

	require.NoError(t, conversations.AddUsage(ctx, conversation.ID, 0.25, 3))
	require.NoError(t, conversations.AddUsage(ctx, conversation.ID, 0.50, 5))

	conversation, err = conversations.FindOrCreate(ctx, "slack", "C01", "t1", "U01")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, conversation.TotalCostUSD, 1e-9)
	assert.Equal(t, 8, conversation.TotalTurns)
}

func TestConversationsLogMessage(t *testing.T) {
	conn := createTestDB(t)
	conversations := NewConversations(conn)
	ctx := context.Background()

	conversation, err := conversations.FindOrCreate(ctx, "slack", "C01", "t1", "U01")
	require.NoError(t, err)

	require.NoError(t, conversations.LogMessage(ctx, conversation.ID, ports.Message{
		Role:    ports.RoleUser,
		Content: "hello there",
	}))
	require.NoError(t, conversations.LogMessage(ctx, conversation.ID, ports.Message{
		Role:       ports.RoleAssistant,
		Content:    "hi",
		CostUSD:    0.12,
		DurationMS: 900,
	}))

	rows, err := conn.QueryContext(ctx,
		`SELECT role, content, cost_usd, duration_ms FROM messages WHERE conversation_id = ? ORDER BY id`,
		conversation.ID)
	require.NoError(t, err)
	defer rows.Close()

	type logged struct {
		role, content string
		costUSD       sql.NullFloat64
		durationMS    sql.NullInt64
	}
	var got []logged
	for rows.Next() {
		var entry logged
		require.NoError(t, rows.Scan(&entry.role, &entry.content, &entry.costUSD, &entry.durationMS))
		got = append(got, entry)
	}
	require.NoError(t, rows.Err())

	require.Len(t, got, 2)
	assert.Equal(t, ports.RoleUser, got[0].role)
	assert.Equal(t, "hello there", got[0].content)
	assert.False(t, got[0].costUSD.Valid, "user messages carry no cost")
	assert.False(t, got[0].durationMS.Valid)

	assert.Equal(t, ports.RoleAssistant, got[1].role)
	assert.True(t, got[1].costUSD.Valid)
	assert.InDelta(t, 0.12, got[1].costUSD.Float64, 1e-9)
	assert.Equal(t, int64(900), got[1].durationMS.Int64)
}
