// Package dad holds project-wide defaults shared by config and the
// daemon entry point.
package dad

const (
	DefaultAppName    = "dad"
	DefaultConfigPath = "/etc/dad"
	DefaultDataDir    = "/data"
	DefaultDBPath     = "/data/dad.db"

	// DefaultWorkspaceDir is the working directory handed to the agent
	// process; the training directory lives alongside it.
	DefaultWorkspaceDir = "/data/workspace"
	DefaultTrainingDir  = "/data/training"

	DefaultModel    = "claude-sonnet-4-5-20250929"
	DefaultMaxTurns = 25

	// MaxConcurrentInvocations is the global admission ceiling across
	// all threads. One agent process can burn real money; three at a
	// time is the observed safe bound.
	MaxConcurrentInvocations = 3
)
