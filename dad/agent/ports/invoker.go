package agentports

import "context"

// InvokeRequest carries one agent invocation.
type InvokeRequest struct {
	Prompt       string
	SystemPrompt string

	// SessionID resumes a prior session when non-empty.
	SessionID string

	// ClearSession, when set, is called before the single retry after
	// the agent rejects SessionID as stale. It should drop the stored
	// continuity token so later turns start fresh too.
	ClearSession func(ctx context.Context) error
}

// InvocationResult is the structured outcome of one agent invocation.
// Degraded marks a successful process exit whose output could not be
// decoded; Text then holds the raw output and the numeric fields are
// zero.
type InvocationResult struct {
	Text       string
	CostUSD    float64
	Turns      int
	SessionID  string
	DurationMS int64
	Degraded   bool
}

// Invoker runs the external agent to completion.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvocationResult, error)
}
