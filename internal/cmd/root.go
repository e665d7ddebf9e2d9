package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the candidash command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "candidash",
		Short: "Candidate admin console in the terminal",
		Long: `candidash signs administrators in to the candidate-management backend, keeps
the session between runs and checks what the session may open.

Console screens are addressed by their route (for example /enroll or
/admin-management). Every command that reads console data checks the route
first, exactly as the web console does, and the backend invalidating the
session logs you out locally.

Candidates register through the signup commands, which need no session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file layered over ~/.candidash/config.yaml and ./.candidash.yaml")
	flags.String("api-url", "", "backend base URL (overrides api_url)")
	flags.String("format", "text", "output format: text, json or yaml")
	flags.Bool("no-color", false, "disable coloured output")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newAuthCommand(),
		newRouteCommand(),
		newCanCommand(),
		newMenuCommand(),
		newAdminsCommand(),
		newRolesCommand(),
		newPermissionsCommand(),
		newScreeningCommand(),
		newTrainingCommand(),
		newSignupCommand(),
		newConfigCommand(),
		newDoctorCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt by the caller.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
