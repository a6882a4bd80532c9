package agent

import (
	"encoding/json"
	"strings"
	"time"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

// placeholderText substitutes for a successful invocation that
// produced no output at all.
const placeholderText = "Done (no text output)."

// cliResult is the structured record the agent CLI prints on stdout in
// JSON output mode.
type cliResult struct {
	Result       string  `json:"result"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	NumTurns     int     `json:"num_turns"`
	SessionID    string  `json:"session_id"`
	DurationMS   int64   `json:"duration_ms"`
}

// parseResult decodes the agent's stdout into an InvocationResult. A
// decode failure degrades to the raw output with zeroed fields rather
// than failing; a successful process exit always yields a result.
func parseResult(stdout []byte, elapsed time.Duration) ports.InvocationResult {
	var record cliResult
	if err := json.Unmarshal(stdout, &record); err != nil {
		text := strings.TrimSpace(string(stdout))
		if text == "" {
			text = placeholderText
		}
		return ports.InvocationResult{Text: text, Degraded: true}
	}

	result := ports.InvocationResult{
		Text:       record.Result,
		CostUSD:    record.TotalCostUSD,
		Turns:      record.NumTurns,
		SessionID:  record.SessionID,
		DurationMS: record.DurationMS,
	}
	if result.Text == "" {
		result.Text = placeholderText
	}
	if result.DurationMS == 0 {
		result.DurationMS = elapsed.Milliseconds()
	}
	return result
}
