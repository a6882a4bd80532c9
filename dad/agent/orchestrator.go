package agent

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

// snippetLen bounds the interaction-history topic snippet.
const snippetLen = 100

// Orchestrator composes admission control, the stores, and the invoker
// into one turn of the conversation. It is the only component the
// transport calls.
type Orchestrator struct {
	gate          *Gate
	conversations ports.ConversationStore
	relationships ports.RelationshipStore
	invoker       ports.Invoker
	training      ports.TrainingSource
	tracer        ports.Tracer
	logger        zerolog.Logger
	platform      string

	// background runs best-effort observer notifications; Close waits
	// for them.
	background conc.WaitGroup
}

// NewOrchestrator wires an orchestrator. ceiling bounds system-wide
// concurrent invocations; platform labels conversation identities
// (e.g. "slack").
func NewOrchestrator(
	ceiling int,
	platform string,
	conversations ports.ConversationStore,
	relationships ports.RelationshipStore,
	invoker ports.Invoker,
	training ports.TrainingSource,
	tracer ports.Tracer,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		gate:          NewGate(ceiling),
		conversations: conversations,
		relationships: relationships,
		invoker:       invoker,
		training:      training,
		tracer:        tracer,
		logger:        logger.With().Str("component", "orchestrator").Logger(),
		platform:      platform,
	}
}

// TurnRequest is one chat event handed to the orchestrator.
type TurnRequest struct {
	Prompt    string
	ChannelID string
	ThreadID  string
	UserID    string

	// DisplayName lazily fills the relationship record when set.
	DisplayName string

	// OnProgress is an optional best-effort observer, notified
	// asynchronously with no ordering guarantee.
	OnProgress func(text string)
}

// IsBusy reports whether the thread already has an in-flight
// invocation, without attempting admission.
func (o *Orchestrator) IsBusy(channelID, threadID string) bool {
	return o.gate.IsBusy(ThreadKey(channelID, threadID))
}

// ActiveInvocations returns the number of in-flight invocations.
func (o *Orchestrator) ActiveInvocations() int {
	return o.gate.Active()
}

// Close waits for outstanding background notifications.
func (o *Orchestrator) Close() {
	o.background.Wait()
}

// RunTurn runs one full turn: admit, look up conversation and
// relationship state, invoke the agent (resuming the stored session if
// any), fold the respect marker back into the relationship, persist
// the results, release. Admission errors return before any side
// effects; persistence failures after a successful invocation are
// logged and do not discard the result.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (ports.InvocationResult, error) {
	release, err := o.gate.Admit(ThreadKey(req.ChannelID, req.ThreadID))
	if err != nil {
		return ports.InvocationResult{}, err
	}
	defer release()

	ctx, finish := o.tracer.StartSpan(ctx, "run_turn", map[string]any{
		"invocation_id": uuid.NewString(),
		"channel_id":    req.ChannelID,
		"thread_id":     req.ThreadID,
		"user_id":       req.UserID,
	})
	result, err := o.runAdmitted(ctx, req)
	finish(err)
	return result, err
}

// runAdmitted is the guarded body of RunTurn; admission is already
// held and release is guaranteed by the caller.
func (o *Orchestrator) runAdmitted(ctx context.Context, req TurnRequest) (ports.InvocationResult, error) {
	conversation, err := o.conversations.FindOrCreate(ctx, o.platform, req.ChannelID, req.ThreadID, req.UserID)
	if err != nil {
		return ports.InvocationResult{}, err
	}
	if err := o.conversations.LogMessage(ctx, conversation.ID, ports.Message{
		Role:    ports.RoleUser,
		Content: req.Prompt,
	}); err != nil {
		return ports.InvocationResult{}, err
	}

	relationship, err := o.relationships.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return ports.InvocationResult{}, err
	}
	if req.DisplayName != "" && relationship.DisplayName == "" {
		if err := o.relationships.SetDisplayName(ctx, req.UserID, req.DisplayName); err != nil {
			o.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to set display name")
		}
	}

	window, err := o.relationships.ContextWindow(ctx, req.UserID)
	if err != nil {
		return ports.InvocationResult{}, err
	}
	systemPrompt := BuildSystemPrompt(window, o.training.Context())

	result, err := o.invoker.Invoke(ctx, ports.InvokeRequest{
		Prompt:       req.Prompt,
		SystemPrompt: systemPrompt,
		SessionID:    conversation.SessionID,
		ClearSession: func(ctx context.Context) error {
			return o.conversations.ClearSessionID(ctx, conversation.ID)
		},
	})
	if err != nil {
		return ports.InvocationResult{}, err
	}

	// The invocation succeeded; everything below is best-effort. A
	// persistence failure must not discard the user-visible result,
	// but it is surfaced so it is not silently lost.
	if result.SessionID != "" && result.SessionID != conversation.SessionID {
		if err := o.conversations.UpdateSessionID(ctx, conversation.ID, result.SessionID); err != nil {
			o.logger.Error().Err(err).Int64("conversation_id", conversation.ID).Msg("failed to persist continuity token")
		}
	}

	outcome := ExtractRespect(result.Text)
	result.Text = outcome.Text
	if outcome.Found {
		newScore, err := o.relationships.ApplyRespectDelta(ctx, req.UserID, outcome.Delta)
		if err != nil {
			o.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to apply respect delta")
		} else {
			o.logger.Info().
				Str("user_id", req.UserID).
				Int("delta", outcome.Delta).
				Int("score", newScore).
				Msg("respect score updated")
		}
	}
	if err := o.relationships.AppendInteraction(ctx, req.UserID, snippet(req.Prompt), outcome.Sentiment); err != nil {
		o.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to append interaction history")
	}

	if err := o.conversations.LogMessage(ctx, conversation.ID, ports.Message{
		Role:       ports.RoleAssistant,
		Content:    result.Text,
		CostUSD:    result.CostUSD,
		DurationMS: result.DurationMS,
	}); err != nil {
		o.logger.Error().Err(err).Int64("conversation_id", conversation.ID).Msg("failed to log assistant message")
	}
	if err := o.conversations.AddUsage(ctx, conversation.ID, result.CostUSD, result.Turns); err != nil {
		o.logger.Error().Err(err).Int64("conversation_id", conversation.ID).Msg("failed to accumulate usage")
	}

	if req.OnProgress != nil {
		text := result.Text
		o.background.Go(func() { req.OnProgress(text) })
	}

	return result, nil
}

// snippet truncates a prompt to the history topic bound, ellipsis
// suffixed.
func snippet(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= snippetLen {
		return prompt
	}
	return string(runes[:snippetLen-3]) + "..."
}
