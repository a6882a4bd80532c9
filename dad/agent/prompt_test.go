package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

func TestBuildSystemPromptSections(t *testing.T) {
	when := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	prompt := BuildSystemPrompt(&ports.RelationshipContext{
		Score:             72,
		TotalInteractions: 5,
		LastInteraction:   when,
		Recent: []ports.Interaction{
			{Timestamp: when, Topic: "fixed the deploy script", Sentiment: ports.SentimentPositive},
		},
	}, "Jeff prefers short answers.\r\n")

	assert.True(t, strings.HasPrefix(prompt, "You are Dad"))
	assert.Contains(t, prompt, "Respect score: 72/100")
	assert.Contains(t, prompt, "Total interactions: 5")
	assert.Contains(t, prompt, "Last interaction: 2026-08-30 14:00")
	assert.Contains(t, prompt, "(positive) fixed the deploy script")
	assert.Contains(t, prompt, "# Training context")
	assert.Contains(t, prompt, "Jeff prefers short answers.")
	assert.NotContains(t, prompt, "\r\n", "input must be newline-normalized")
}

func TestBuildSystemPromptWithoutOptionalSections(t *testing.T) {
	prompt := BuildSystemPrompt(nil, "")

	assert.True(t, strings.HasPrefix(prompt, "You are Dad"))
	assert.NotContains(t, prompt, "# Relationship with this user")
	assert.NotContains(t, prompt, "# Training context")
}

func TestFormatRelationshipOmitsEmptyParts(t *testing.T) {
	text := formatRelationship(&ports.RelationshipContext{Score: 70})

	assert.Contains(t, text, "Respect score: 70/100")
	assert.NotContains(t, text, "Last interaction:")
	assert.NotContains(t, text, "Recent interactions")
}
