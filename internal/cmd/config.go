package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/candidash/internal/config"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit candidash configuration",
		Long: `Manage candidash configuration.

Settings are layered, later layers winning:
  1. built-in defaults
  2. ~/.candidash/config.yaml
  3. ./.candidash.yaml
  4. the file given with --config
  5. CANDIDASH_API_URL, CANDIDASH_SESSION_BACKEND, CANDIDASH_REDIS_URL and
     CANDIDASH_LOG_LEVEL

'config set' edits the user file only.

Examples:
  # View the resolved configuration
  candidash config view

  # Point the CLI at another backend
  candidash config set api_url https://console.example.org

  # Keep sessions in redis
  candidash config set session.backend redis
  candidash config set session.redis_url redis://localhost:6379/0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "view",
			Short: "Display the resolved configuration",
			RunE:  runE(runConfigView),
		},
		&cobra.Command{
			Use:       "get <key>",
			Short:     "Get a configuration value",
			Long:      `Retrieve a resolved configuration value using dot notation (e.g., session.backend).`,
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.Keys(),
			RunE:      runE(runConfigGet),
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a value in the user configuration file",
			Long:  `Set a configuration value in ~/.candidash/config.yaml using dot notation (e.g., log.level debug).`,
			Args:  cobra.ExactArgs(2),
			RunE:  runConfigSet,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the user configuration file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), config.NewLoader().UserPath())
				return err
			},
		},
	)
	return configCmd
}

func runConfigView(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	return cc.Printer.Emit(cc.Config, func(w io.Writer, s ux.Styles) error {
		data, err := yaml.Marshal(cc.Config)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(data))
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Title.Render("Sources"))
		for _, src := range cc.Sources {
			fmt.Fprintf(w, "  %s\n", s.Muted.Render(src))
		}
		return nil
	})
}

func runConfigGet(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	value, err := cc.Config.Get(args[0])
	if err != nil {
		return fmt.Errorf("invalid argument: %w", err)
	}
	return cc.Printer.Emit(map[string]string{args[0]: value}, textLine(value))
}

// runConfigSet edits the user file directly. It does not build a command
// context, so a broken configuration can still be repaired with it.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	path := config.NewLoader().UserPath()

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("invalid argument: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, value)
	return err
}
