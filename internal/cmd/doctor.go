package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/health"
	"github.com/felixgeelhaar/candidash/internal/transport"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

// doctorReport is the printable result of 'candidash doctor'.
type doctorReport struct {
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

var errUnhealthy = errors.New("one or more checks are unhealthy")

func newDoctorCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, session storage and backend reachability",
		Long: `Run the environment checks the other commands depend on:

  config    the resolved configuration is valid
  session   the session store is readable and the stored token is not expired
  backend   the backend answers at api_url

The stored session is not sent to the backend. Exits non-zero when a check
is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m := health.NewManager().WithTimeout(timeout)
			m.AddChecker(health.NewConfigChecker(cc.Config, cc.Sources))

			if store, err := cc.openStore(ctx); err != nil {
				m.AddChecker(health.CheckFunc{CheckName: health.NameSession, Fn: func(context.Context) *health.Result {
					return health.Unhealthy("session store unavailable").WithDetail("error", err.Error())
				}})
			} else {
				m.AddChecker(health.NewSessionChecker(store, nil))
			}

			tr := transport.New(nil, nil)
			tr.Observer = cc.Metrics
			client, err := cc.newClient(tr)
			if err != nil {
				return err
			}
			m.AddChecker(health.NewBackendChecker(client, cc.Config.APIURL))

			reports := m.Check(ctx)
			out := doctorReport{Status: health.OverallStatus(reports), Checks: reports}
			for _, r := range reports {
				cc.Logger.Debug("health check", "name", r.Name, "status", r.Status.String(), "latency", r.Latency)
			}

			if err := cc.Printer.Emit(out, func(w io.Writer, s ux.Styles) error {
				t := newTable("CHECK", "STATUS", "MESSAGE", "LATENCY")
				for _, r := range reports {
					t.Row(r.Name, healthStatus(s, r.Status), r.Message, r.Latency.Round(time.Millisecond).String())
				}
				fmt.Fprintln(w, t.Render())
				fmt.Fprintln(w, s.Field("overall", healthStatus(s, out.Status)))
				return nil
			}); err != nil {
				return err
			}

			if out.Status == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		}),
	}

	cmd.Flags().DurationVar(&timeout, "timeout", health.DefaultTimeout, "timeout for each check")
	return cmd
}

func healthStatus(s ux.Styles, status health.Status) string {
	switch status {
	case health.StatusHealthy:
		return s.Success.Render(status.String())
	case health.StatusDegraded:
		return s.Warning.Render(status.String())
	default:
		return s.Failure.Render(status.String())
	}
}
