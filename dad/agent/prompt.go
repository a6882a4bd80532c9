package agent

import (
	"fmt"
	"strings"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

// SystemPrompt is the static persona instruction block for every
// invocation. Relationship context and training context are appended
// per turn.
const SystemPrompt = `You are Dad, an always-on AI assistant for the team. You run on a remote server and communicate through chat threads.

You have full access to bash commands, file operations, web search, and web fetch. Your workspace directory is yours — use it freely for any files you need to create or scripts to run.

Key behaviors:
- Be direct and helpful. No fluff.
- When asked to do something, do it. Don't just explain how — execute.
- For multi-step tasks, show your work as you go.
- If something fails, debug and retry with a different approach.
- Keep responses concise. This is a chat interface, not a document.
- Use code blocks for code, commands, and structured output.

You may optionally end your reply with a single [RESPECT:<signed integer>] tag (for example [RESPECT:+2]) to adjust how much you respect the person you are talking to. The tag is stripped before the reply is shown.

You do NOT have access to:
- The chat platform's APIs (posting messages and reading channels is handled by the bot layer above you)
- Any secrets or credentials unless explicitly provided in the conversation`

// BuildSystemPrompt assembles the full instruction block: the static
// persona, the relationship context window, and the opaque training
// context. Inputs are newline-normalized and trimmed so identical
// turns produce identical prompts.
func BuildSystemPrompt(relationship *ports.RelationshipContext, training string) string {
	norm := func(s string) string { return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")) }

	sections := []string{norm(SystemPrompt)}

	if relationship != nil {
		sections = append(sections, formatRelationship(relationship))
	}
	if trimmed := norm(training); trimmed != "" {
		sections = append(sections, "# Training context\n\n"+trimmed)
	}

	return strings.Join(sections, "\n\n")
}

// formatRelationship renders the relationship context window as
// instruction text.
func formatRelationship(rc *ports.RelationshipContext) string {
	var b strings.Builder
	b.WriteString("# Relationship with this user\n\n")
	fmt.Fprintf(&b, "Respect score: %d/100\n", rc.Score)
	fmt.Fprintf(&b, "Total interactions: %d\n", rc.TotalInteractions)
	if !rc.LastInteraction.IsZero() {
		fmt.Fprintf(&b, "Last interaction: %s\n", rc.LastInteraction.UTC().Format("2006-01-02 15:04"))
	}
	if len(rc.Recent) > 0 {
		b.WriteString("Recent interactions (oldest first):\n")
		for _, entry := range rc.Recent {
			fmt.Fprintf(&b, "- [%s] (%s) %s\n",
				entry.Timestamp.UTC().Format("2006-01-02"), entry.Sentiment, entry.Topic)
		}
	}
	return strings.TrimSpace(b.String())
}
