package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
	"github.com/felixgeelhaar/candidash/internal/gate"
	"github.com/felixgeelhaar/candidash/internal/permission"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

type canResult struct {
	Requirement string                 `json:"requirement" yaml:"requirement"`
	Decision    gate.ComponentDecision `json:"decision" yaml:"decision"`
}

func newCanCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "can <PERMISSION>...",
		Short: "Check the session's permissions",
		Long: `Check whether the session holds the given permission codes.

By default every code is required; --mode any accepts any one of them.
The command exits 0 when the check passes and 3 when it does not.

Examples:
  candidash can SCREENING_VIEW
  candidash can TRAINING_VIEW TRAINING_MANAGE --mode any`,
		Args: cobra.MinimumNArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			parsed, err := permission.ParseMode(mode)
			if err != nil {
				return fmt.Errorf("invalid argument: %w", err)
			}
			req := permission.AllOf(args...)
			if parsed == permission.ModeAny {
				req = permission.AnyOf(args...)
			}

			m, err := cc.Bootstrap(ctx)
			if err != nil {
				return err
			}
			if !m.IsAuthenticated() {
				if cc.SessionRejected() {
					return cerrors.NewSessionExpiredError()
				}
				return cerrors.NewNotLoggedInError("")
			}

			res := canResult{Requirement: req.String(), Decision: cc.Routes().CheckComponent(m.Snapshot(), req)}
			if err := cc.Printer.Emit(res, func(w io.Writer, s ux.Styles) error {
				_, err := fmt.Fprintf(w, "%s %s\n", s.Mark(res.Decision == gate.Show), res.Requirement)
				return err
			}); err != nil {
				return err
			}
			if res.Decision != gate.Show {
				return cerrors.NewPermissionDeniedError("this action", res.Requirement)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&mode, "mode", "all", "all: every permission is required; any: one suffices")
	return cmd
}
