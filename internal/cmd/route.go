package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/gate"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

func newRouteCommand() *cobra.Command {
	routeCmd := &cobra.Command{
		Use:   "route",
		Short: "Inspect console routes and their access rules",
		Long: `Inspect console routes and what the current session may open.

Examples:
  # Decide whether the session may open the enrollment screen
  candidash route check /enroll

  # List every route with its permission requirement
  candidash route list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	routeCmd.AddCommand(newRouteCheckCommand(), newRouteListCommand())
	return routeCmd
}

// routeDecision is the printable result of a route check.
type routeDecision struct {
	Path        string        `json:"path" yaml:"path"`
	Decision    gate.Decision `json:"decision" yaml:"decision"`
	Redirect    string        `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Route       string        `json:"route,omitempty" yaml:"route,omitempty"`
	Requirement string        `json:"requirement,omitempty" yaml:"requirement,omitempty"`
}

func newRouteCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Decide whether the session may open a route",
		Long: `Decide whether the session may open a route and print the decision.

The command exits 0 when the route is allowed, 5 when a login is needed and
3 when the session lacks the route's permission. Unknown paths need a
session and send you to the dashboard.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m, err := cc.Bootstrap(ctx)
			if err != nil {
				return err
			}

			res := cc.Routes().Check(m.Snapshot(), args[0])
			out := routeDecision{Path: res.AttemptedPath, Decision: res.Decision, Redirect: res.Redirect}
			if res.Route != nil {
				out.Route = res.Route.Name
				if res.Route.Requirement != nil {
					out.Requirement = res.Route.Requirement.String()
				}
			}

			if err := cc.Printer.Emit(out, func(w io.Writer, s ux.Styles) error {
				fmt.Fprintf(w, "%s %s\n", s.Decision(out.Decision), out.Path)
				if out.Requirement != "" {
					fmt.Fprintln(w, s.Field("requires", out.Requirement))
				}
				if out.Redirect != "" {
					fmt.Fprintln(w, s.Field("redirect", out.Redirect))
				}
				return nil
			}); err != nil {
				return err
			}
			return decisionError(res, cc.SessionRejected())
		}),
	}
}

// routeEntry is one row of the route listing.
type routeEntry struct {
	Path        string `json:"path" yaml:"path"`
	Name        string `json:"name" yaml:"name"`
	Public      bool   `json:"public" yaml:"public"`
	Requirement string `json:"requirement,omitempty" yaml:"requirement,omitempty"`
	Allowed     bool   `json:"allowed" yaml:"allowed"`
}

func newRouteListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List console routes",
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			m, err := cc.Bootstrap(ctx)
			if err != nil {
				return err
			}
			snap := m.Snapshot()

			var entries []routeEntry
			for _, r := range cc.Routes().Routes.Routes() {
				e := routeEntry{Path: r.Path, Name: r.Name, Public: r.Public}
				if r.Requirement != nil {
					e.Requirement = r.Requirement.String()
				}
				e.Allowed = r.Public || gate.Decide(snap, r.Requirement) == gate.Allow
				entries = append(entries, e)
			}

			return cc.Printer.Emit(entries, func(w io.Writer, s ux.Styles) error {
				t := newTable("ROUTE", "NAME", "REQUIRES", "ACCESS")
				for _, e := range entries {
					req := e.Requirement
					switch {
					case e.Public:
						req = "public"
					case req == "":
						req = "session"
					}
					t.Row(e.Path, e.Name, req, s.Mark(e.Allowed))
				}
				_, err := fmt.Fprintln(w, t.Render())
				return err
			})
		}),
	}
}
