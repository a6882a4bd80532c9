package agent

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

// stderrExcerptLen bounds how much captured error output travels up
// with a ProcessError.
const stderrExcerptLen = 200

// InvokerConfig holds the fixed arguments for agent invocations.
type InvokerConfig struct {
	Binary       string // agent CLI binary, resolved via PATH if bare
	Model        string
	MaxTurns     int
	WorkspaceDir string // working directory for the spawned process, "" for inherited
}

// CLIInvoker runs the agent CLI as a subprocess, one process per
// attempt, capturing output to completion. If a supplied continuity
// token is rejected as stale, it clears the stored token and retries
// exactly once without resuming.
type CLIInvoker struct {
	config InvokerConfig
	logger zerolog.Logger
}

// NewCLIInvoker creates an invoker for the configured agent CLI.
func NewCLIInvoker(config InvokerConfig, logger zerolog.Logger) *CLIInvoker {
	return &CLIInvoker{
		config: config,
		logger: logger.With().Str("component", "invoker").Logger(),
	}
}

// Invoke runs one logical invocation: a single attempt, plus at most
// one retry without the continuity token when the first attempt fails
// with a stale-session error. Any other failure, or a second failure
// after the retry, propagates unchanged (the retry's error, not the
// first attempt's).
func (inv *CLIInvoker) Invoke(ctx context.Context, req ports.InvokeRequest) (ports.InvocationResult, error) {
	result, err := inv.attempt(ctx, req, req.SessionID)
	if err == nil || req.SessionID == "" || !isStaleSession(err) {
		return result, err
	}

	inv.logger.Warn().
		Err(err).
		Str("session_id", req.SessionID).
		Msg("continuity token rejected, retrying without resume")

	if req.ClearSession != nil {
		if clearErr := req.ClearSession(ctx); clearErr != nil {
			inv.logger.Error().Err(clearErr).Msg("failed to clear stored continuity token")
		}
	}

	return inv.attempt(ctx, req, "")
}

// attempt spawns exactly one agent process and buffers its output to
// completion.
func (inv *CLIInvoker) attempt(ctx context.Context, req ports.InvokeRequest, sessionID string) (ports.InvocationResult, error) {
	args := []string{
		"--print",
		"--output-format", "json",
		"--model", inv.config.Model,
		"--max-turns", strconv.Itoa(inv.config.MaxTurns),
		"--append-system-prompt", req.SystemPrompt,
	}
	if sessionID != "" {
		args = append(args, "--resume", sessionID)
	}
	// User prompt is always the final positional argument.
	args = append(args, req.Prompt)

	command := exec.CommandContext(ctx, inv.config.Binary, args...)
	if inv.config.WorkspaceDir != "" {
		command.Dir = inv.config.WorkspaceDir
	}

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	start := time.Now()
	if err := command.Start(); err != nil {
		return ports.InvocationResult{}, &SpawnError{Err: err}
	}

	inv.logger.Debug().
		Str("model", inv.config.Model).
		Bool("resume", sessionID != "").
		Msg("agent process started")

	if err := command.Wait(); err != nil {
		return ports.InvocationResult{}, &ProcessError{
			ExitCode: command.ProcessState.ExitCode(),
			Stderr:   excerpt(stderr.String(), stderrExcerptLen),
		}
	}

	result := parseResult(stdout.Bytes(), time.Since(start))
	if result.Degraded {
		inv.logger.Warn().Msg("agent output was not structured, degrading to raw text")
	}
	return result, nil
}

// excerpt truncates s to at most n bytes on a rune boundary.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
