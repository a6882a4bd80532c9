package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseResultStructured(t *testing.T) {
	stdout := []byte(`{"result":"hello","total_cost_usd":0.42,"num_turns":3,"session_id":"sess-1","duration_ms":1234}`)

	result := parseResult(stdout, 9*time.Second)

	assert.False(t, result.Degraded)
	assert.Equal(t, "hello", result.Text)
	assert.Equal(t, 0.42, result.CostUSD)
	assert.Equal(t, 3, result.Turns)
	assert.Equal(t, "sess-1", result.SessionID)
	assert.Equal(t, int64(1234), result.DurationMS)
}

func TestParseResultDegradedOnMalformedOutput(t *testing.T) {
	result := parseResult([]byte("not json"), time.Second)

	assert.True(t, result.Degraded)
	assert.Equal(t, "not json", result.Text)
	assert.Zero(t, result.CostUSD)
	assert.Zero(t, result.Turns)
	assert.Empty(t, result.SessionID)
}

func TestParseResultDegradedOnEmptyOutput(t *testing.T) {
	result := parseResult(nil, time.Second)

	assert.True(t, result.Degraded)
	assert.Equal(t, placeholderText, result.Text)
}

func TestParseResultFallsBackToWallClockDuration(t *testing.T) {
	stdout := []byte(`{"result":"ok","total_cost_usd":0,"num_turns":1,"session_id":"s"}`)

	result := parseResult(stdout, 2500*time.Millisecond)

	assert.Equal(t, int64(2500), result.DurationMS)
}
