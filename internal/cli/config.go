package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/summarizeme/config.toml.
Settings left unset fall back to environment variables, then to defaults.

Supported settings:
` + configKeyHelp(),
		Example: `  summarizeme config set provider ollama
  summarizeme config get model
  summarizeme config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configKeyHelp lists the keys with their environment variables.
func configKeyHelp() string {
	var b strings.Builder
	for _, key := range config.Keys() {
		fmt.Fprintf(&b, "  %-12s", key)
		if env := config.EnvVar(key); env != "" {
			fmt.Fprintf(&b, "(env: %s)", env)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Paths starting with ~/ are expanded before being stored.`,
		Example: `  summarizeme config set data-dir ~/channels
  summarizeme config set workers 8`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  summarizeme config get provider`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable overrides.`,
		Example: `  summarizeme config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	switch key {
	case config.KeyDataDir, config.KeyDatabase:
		value = config.ExpandPath(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("%q (valid keys: %s): %w", key, strings.Join(config.Keys(), ", "), config.ErrUnknownKey)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		if name := config.EnvVar(key); name != "" {
			value = env.Getenv(name)
		}
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	for _, key := range config.Keys() {
		if _, ok := data[key]; ok {
			continue
		}
		if name := config.EnvVar(key); name != "" {
			if v := env.Getenv(name); v != "" {
				data[key] = v + " (from env)"
			}
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range config.Keys() {
		if v, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, v)
		}
	}
	return nil
}
