package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/apierr"
	"github.com/alnah/go-summarizeme/internal/caption"
	"github.com/alnah/go-summarizeme/internal/cli"
	"github.com/alnah/go-summarizeme/internal/config"
	"github.com/alnah/go-summarizeme/internal/digest"
	"github.com/alnah/go-summarizeme/internal/generate"
	"github.com/alnah/go-summarizeme/internal/ingest"
	"github.com/alnah/go-summarizeme/internal/interrupt"
	"github.com/alnah/go-summarizeme/internal/library"
	"github.com/alnah/go-summarizeme/internal/prompt"
	"github.com/alnah/go-summarizeme/internal/store"
	"github.com/alnah/go-summarizeme/internal/syncer"
	"github.com/alnah/go-summarizeme/internal/tasks"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitNotFound   = 5
	ExitConflict   = 6
	ExitGeneration = 7
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels the run, a second one exits at once.
	handler, ctx := interrupt.NewHandler(context.Background())

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:   "summarizeme",
		Short: "Collect video transcripts and summarize them with language models",
		Long: `summarizeme keeps a local database of video transcripts grouped in
collections, and generates summaries and readable rewrites of them with
OpenAI or a local Ollama model.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.SyncCmd(env))
	rootCmd.AddCommand(cli.IngestCmd(env))
	rootCmd.AddCommand(cli.GenerateCmd(env))
	rootCmd.AddCommand(cli.EnhanceCmd(env))
	rootCmd.AddCommand(cli.RunsCmd(env))
	rootCmd.AddCommand(cli.CollectionsCmd(env))
	rootCmd.AddCommand(cli.ChunkCmd(env))
	rootCmd.AddCommand(cli.ModelsCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	err := rootCmd.ExecuteContext(ctx)
	handler.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, cli.ErrAPIKeyMissing) || errors.Is(err, generate.ErrEmptyAPIKey) ||
		errors.Is(err, apierr.ErrAuthFailed) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, cli.ErrInvalidValue) || errors.Is(err, cli.ErrFileNotFound) ||
		errors.Is(err, cli.ErrInvalidProvider) || errors.Is(err, generate.ErrUnknownProvider) ||
		errors.Is(err, config.ErrInvalidValue) || errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, library.ErrValidation) || errors.Is(err, prompt.ErrUnknown) ||
		errors.Is(err, caption.ErrMissingID) || errors.Is(err, caption.ErrMalformedSRT) ||
		errors.Is(err, caption.ErrUnsafeName) {
		return ExitValidation
	}

	// Not found errors (ExitNotFound = 5).
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, ingest.ErrTranscriptUnavailable) ||
		errors.Is(err, digest.ErrNoTranscript) || errors.Is(err, apierr.ErrModelNotFound) ||
		errors.Is(err, syncer.ErrRootMissing) {
		return ExitNotFound
	}

	// Conflict errors (ExitConflict = 6).
	if errors.Is(err, library.ErrConflict) || errors.Is(err, tasks.ErrRunInProgress) {
		return ExitConflict
	}

	// Generation errors (ExitGeneration = 7).
	if errors.Is(err, generate.ErrGeneration) || errors.Is(err, apierr.ErrRateLimit) ||
		errors.Is(err, apierr.ErrQuotaExceeded) || errors.Is(err, apierr.ErrTimeout) ||
		errors.Is(err, apierr.ErrServer) || errors.Is(err, apierr.ErrEmptyResponse) ||
		errors.Is(err, apierr.ErrBadRequest) {
		return ExitGeneration
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
