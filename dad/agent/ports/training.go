package agentports

// TrainingSource supplies the opaque training-context blob appended to
// the system prompt. The orchestrator treats it as read-only.
type TrainingSource interface {
	Context() string
}
