package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/chunk"
	"github.com/alnah/go-summarizeme/internal/estimate"
	"github.com/alnah/go-summarizeme/internal/logging"
)

// chunkOptions holds validated options for the chunk command.
type chunkOptions struct {
	input string
	size  int
	model string
}

// ChunkCmd creates the chunk command (preview how a text is split).
func ChunkCmd(env *Env) *cobra.Command {
	var (
		size  int
		model string
	)

	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Preview how a text is split for generation",
		Long: `Split a text file at sentence boundaries the way generate does and
print the size of each chunk.

Sizes are counted in words, or in tokens of --model when given.`,
		Example: `  summarizeme chunk transcript.txt
  summarizeme chunk transcript.txt --size 2000 --model gpt-4o`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseChunkOptions(args[0], size, model)
			if err != nil {
				return err
			}
			return runChunk(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().IntVarP(&size, "size", "s", chunk.DefaultMaxSize, "Maximum chunk size")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Count tokens of this model instead of words")

	return cmd
}

// parseChunkOptions validates and parses CLI inputs into chunkOptions.
func parseChunkOptions(input string, size int, model string) (chunkOptions, error) {
	if _, err := os.Stat(input); err != nil {
		return chunkOptions{}, fmt.Errorf("%s: %w", input, ErrFileNotFound)
	}
	if size < 1 {
		return chunkOptions{}, fmt.Errorf("size must be positive, got %d: %w", size, ErrInvalidValue)
	}
	return chunkOptions{input: input, size: size, model: model}, nil
}

func runChunk(_ context.Context, env *Env, opts chunkOptions) error {
	data, err := os.ReadFile(opts.input) // #nosec G304 -- user-provided path is intentional
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.input, err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(env.Stderr, "Nothing to split: the file has no text.")
		return nil
	}

	var est estimate.Estimator = estimate.Words{}
	unit := "words"
	if opts.model != "" {
		logger, err := logging.New(logging.Options{Level: "warn", Writer: env.Stderr})
		if err != nil {
			return err
		}
		est = estimate.ForModel(opts.model, logger)
		unit = "tokens"
	}

	chunks := chunk.New(est, opts.size).Chunk(text)
	rows := make([][]string, 0, len(chunks))
	for i, c := range chunks {
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(est.Estimate(c)), preview(c, 60)})
	}
	fmt.Fprintln(env.Stdout, renderTable(
		[]string{"#", "Size (" + unit + ")", "Starts with"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft},
	))
	return nil
}

// preview returns the first n runes of s on one line.
func preview(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' || c == '\t' {
			r[i] = ' '
		}
	}
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
