package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/config"
	"github.com/alnah/go-summarizeme/internal/format"
)

// ModelsCmd creates the models command (list locally installed Ollama models).
func ModelsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models installed in Ollama",
		Long: `List the models the local Ollama server can run.

The server address comes from base-url when the provider is ollama,
then OLLAMA_HOST, then http://localhost:11434.`,
		Example: `  summarizeme models`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd.Context(), env)
		},
	}
}

func runModels(ctx context.Context, env *Env) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// base-url belongs to OpenAI unless the provider is ollama.
	if cfg.Provider != config.ProviderOllama {
		cfg.Provider = config.ProviderOllama
		cfg.BaseURL = ""
		if host := env.Getenv(config.EnvOllamaHost); host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			cfg.BaseURL = host
		}
	}

	models, err := env.GeneratorFactory.NewModelLister(cfg).Models(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(env.Stdout, "No models installed. Pull one with: ollama pull llama3.2")
		return nil
	}

	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{m.Name, format.Size(m.Size), m.ModifiedAt.Local().Format("2006-01-02")})
	}
	fmt.Fprintln(env.Stdout, renderTable(
		[]string{"Name", "Size", "Modified"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
	return nil
}
