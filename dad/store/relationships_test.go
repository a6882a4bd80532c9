package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

func TestRelationshipsGetOrCreateDefaults(t *testing.T) {
	conn := createTestDB(t)
	relationships := NewRelationships(conn)
	ctx := context.Background()

	relationship, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)
	assert.Equal(t, "U01", relationship.UserID)
	assert.Equal(t, 70, relationship.RespectScore)
	assert.Empty(t, relationship.DisplayName)
	assert.Empty(t, relationship.History)
	assert.Zero(t, relationship.TotalInteractions)

	// Second call is a pure read.
	again, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)
	assert.Equal(t, relationship.ID, again.ID)
}

func TestRelationshipsSetDisplayName(t *testing.T) {
	conn := createTestDB(t)
	relationships := NewRelationships(conn)
	ctx := context.Background()

	_, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)

	require.NoError(t, relationships.SetDisplayName(ctx, "U01", "Jeff"))

	relationship, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)
	assert.Equal(t, "Jeff", relationship.DisplayName)
}

func TestApplyRespectDeltaClamps(t *testing.T) {
	conn := createTestDB(t)
	relationships := NewRelationships(conn)
	ctx := context.Background()

	_, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)

	score, err := relationships.ApplyRespectDelta(ctx, "U01", 5)
	require.NoError(t, err)
	assert.Equal(t, 75, score)

	score, err = relationships.ApplyRespectDelta(ctx, "U01", 40)
	require.NoError(t, err)
	assert.Equal(t, 100, score, "score clamps at the upper bound")

	score, err = relationships.ApplyRespectDelta(ctx, "U01", -200)
	require.NoError(t, err)
	assert.Equal(t, 0, score, "score clamps at the lower bound")

	score, err = relationships.ApplyRespectDelta(ctx, "U01", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, score, "clamping applies per delta, not cumulatively")
}

func TestAppendInteractionBoundsHistory(t *testing.T) {
	conn := createTestDB(t)
	relationships := NewRelationships(conn)
	ctx := context.Background()

	_, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)

	for i := range 60 {
		err := relationships.AppendInteraction(ctx, "U01",
			fmt.Sprintf("topic-%02d", i), ports.SentimentNeutral)
		require.NoError(t, err)
	}

	relationship, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)
	require.Len(t, relationship.History, 50, "history drops the oldest past the bound")
	assert.Equal(t, "topic-10", relationship.History[0].Topic)
	assert.Equal(t, "topic-59", relationship.History[49].Topic)
	assert.Equal(t, 60, relationship.TotalInteractions,
		"the counter keeps counting past the history bound")
	assert.False(t, relationship.LastInteraction.IsZero())
}

func TestContextWindowReturnsRecentEntries(t *testing.T) {
	conn := createTestDB(t)
	relationships := NewRelationships(conn)
	ctx := context.Background()

	_, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)

	for i := range 15 {
		err := relationships.AppendInteraction(ctx, "U01",
			fmt.Sprintf("topic-%02d", i), ports.SentimentPositive)
		require.NoError(t, err)
	}

	window, err := relationships.ContextWindow(ctx, "U01")
	require.NoError(t, err)
	assert.Equal(t, 70, window.Score)
	assert.Equal(t, 15, window.TotalInteractions)
	require.Len(t, window.Recent, 10)
	assert.Equal(t, "topic-05", window.Recent[0].Topic, "window is the most recent entries, oldest first")
	assert.Equal(t, "topic-14", window.Recent[9].Topic)
}

func TestContextWindowForNewUser(t *testing.T) {
	conn := createTestDB(t)
	relationships := NewRelationships(conn)
	ctx := context.Background()

	_, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)

	window, err := relationships.ContextWindow(ctx, "U01")
	require.NoError(t, err)
	assert.Equal(t, 70, window.Score)
	assert.Zero(t, window.TotalInteractions)
	assert.Empty(t, window.Recent)
}

func TestGetOrCreateSurvivesCorruptHistory(t *testing.T) {
	conn := createTestDB(t)
	relationships := NewRelationships(conn)
	ctx := context.Background()

	_, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx,
		`UPDATE relationships SET interaction_summary = 'not json' WHERE user_id = ?`, "U01")
	require.NoError(t, err)

	relationship, err := relationships.GetOrCreate(ctx, "U01")
	require.NoError(t, err)
	assert.Empty(t, relationship.History, "corrupt history reads as empty")
}
