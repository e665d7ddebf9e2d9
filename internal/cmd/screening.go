package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/api"
	"github.com/felixgeelhaar/candidash/internal/permission"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

// Console routes backing the screening commands.
const (
	routeScreening   = "/under-screening"
	routeOrientation = "/orientation"
	routeEnroll      = "/enroll"
)

var manageScreening = permission.Require(permission.ScreeningManage)

func newScreeningCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screening",
		Short: "Work the candidate screening pipeline",
		Long: `Work the candidate screening pipeline: screening, orientation and
enrollment into a training batch.

Listing needs SCREENING_VIEW. Recording an outcome or enrolling a candidate
needs SCREENING_MANAGE.

Examples:
  candidash screening list
  candidash screening list --queue orientation
  candidash screening complete 31 --notes "good communication"
  candidash screening enroll 31 --batch 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newScreeningListCommand(),
		newScreeningStatsCommand(),
		newScreeningShowCommand(),
		newScreeningCompleteCommand(),
		newScreeningOrientationCommand(),
		newScreeningEnrollCommand(),
	)
	return cmd
}

func newScreeningListCommand() *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the candidates waiting in a queue",
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			q, err := api.ParseQueue(queue)
			if err != nil {
				return fmt.Errorf("invalid argument: %w", err)
			}
			route := routeScreening
			if q == api.QueueOrientation {
				route = routeOrientation
			}
			if _, err := cc.Require(ctx, route); err != nil {
				return err
			}

			items, err := cc.Client().WorkflowQueue(ctx, q)
			if err != nil {
				return cc.backendError(err)
			}
			return cc.Printer.Emit(items, func(w io.Writer, s ux.Styles) error {
				if len(items) == 0 {
					_, err := fmt.Fprintf(w, "No candidates in the %s queue.\n", q)
					return err
				}
				t := newTable("ID", "CANDIDATE", "CITY", "STATUS", "BATCH")
				for _, it := range items {
					t.Row(strconv.FormatInt(it.ID, 10), it.CandidateName(), it.City, statusLabel(it), it.TrainingBatchCode)
				}
				_, err := fmt.Fprintln(w, t.Render())
				return err
			})
		}),
	}

	cmd.Flags().StringVar(&queue, "queue", string(api.QueueScreening), "queue to list: screening, orientation, enroll or enrolled")
	return cmd
}

func newScreeningStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count candidates per pipeline stage",
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			if _, err := cc.Require(ctx, routeScreening); err != nil {
				return err
			}
			stats, err := cc.Client().WorkflowStats(ctx)
			if err != nil {
				return cc.backendError(err)
			}
			return cc.Printer.Emit(stats, func(w io.Writer, s ux.Styles) error {
				lines := []string{
					s.Field("screening", strconv.Itoa(stats.PendingScreening)),
					s.Field("orientation", strconv.Itoa(stats.PendingOrientation)),
					s.Field("enroll", strconv.Itoa(stats.PendingEnroll)),
					s.Field("enrolled", strconv.Itoa(stats.Enrolled)),
					s.Field("on hold", strconv.Itoa(stats.OnHold)),
				}
				_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
				return err
			})
		}),
	}
}

func newScreeningShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <workflow-id>",
		Short: "Show one candidate's progress",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow id")
			if err != nil {
				return err
			}
			if _, err := cc.Require(ctx, routeScreening); err != nil {
				return err
			}
			wf, err := cc.Client().Workflow(ctx, id)
			if err != nil {
				return cc.backendError(err)
			}
			return cc.Printer.Emit(wf, func(w io.Writer, s ux.Styles) error {
				return renderWorkflow(w, s, wf)
			})
		}),
	}
}

func newScreeningCompleteCommand() *cobra.Command {
	var (
		notes  string
		reject bool
	)

	cmd := &cobra.Command{
		Use:   "complete <workflow-id>",
		Short: "Record a screening outcome",
		Long: `Record the outcome of a screening interview. The candidate moves on to
orientation unless --reject is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow id")
			if err != nil {
				return err
			}
			m, err := cc.RequireAction(ctx, routeScreening, "complete screening", manageScreening)
			if err != nil {
				return err
			}
			wf, err := cc.Client().CompleteScreening(ctx, m.Session().UserID,
				api.ScreeningUpdate{WorkflowID: id, Notes: notes, Approved: !reject})
			if err != nil {
				return cc.backendError(err)
			}
			return emitWorkflowUpdate(cc, wf, "Screening recorded")
		}),
	}

	cmd.Flags().StringVar(&notes, "notes", "", "interview notes")
	cmd.Flags().BoolVar(&reject, "reject", false, "record the candidate as not approved")
	return cmd
}

func newScreeningOrientationCommand() *cobra.Command {
	var (
		notes  string
		absent bool
	)

	cmd := &cobra.Command{
		Use:   "orientation <workflow-id>",
		Short: "Record an orientation outcome",
		Long: `Record that a candidate attended orientation, or with --absent that they
did not.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow id")
			if err != nil {
				return err
			}
			m, err := cc.RequireAction(ctx, routeOrientation, "complete orientation", manageScreening)
			if err != nil {
				return err
			}
			wf, err := cc.Client().CompleteOrientation(ctx, m.Session().UserID,
				api.OrientationUpdate{WorkflowID: id, Notes: notes, Completed: !absent})
			if err != nil {
				return cc.backendError(err)
			}
			return emitWorkflowUpdate(cc, wf, "Orientation recorded")
		}),
	}

	cmd.Flags().StringVar(&notes, "notes", "", "orientation notes")
	cmd.Flags().BoolVar(&absent, "absent", false, "record the candidate as not having attended")
	return cmd
}

func newScreeningEnrollCommand() *cobra.Command {
	var (
		notes string
		batch int64
	)

	cmd := &cobra.Command{
		Use:   "enroll <workflow-id>",
		Short: "Enroll a candidate into a training batch",
		Long: `Enroll a candidate into a training batch. List batches with free slots
with 'candidash training batches --available'.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow id")
			if err != nil {
				return err
			}
			if batch <= 0 {
				return errors.New("invalid argument: --batch is required")
			}
			m, err := cc.Require(ctx, routeEnroll)
			if err != nil {
				return err
			}
			wf, err := cc.Client().Enroll(ctx, m.Session().UserID,
				api.Enrollment{WorkflowID: id, BatchID: batch, Notes: notes})
			if err != nil {
				return cc.backendError(err)
			}
			return emitWorkflowUpdate(cc, wf, "Enrolled")
		}),
	}

	cmd.Flags().Int64Var(&batch, "batch", 0, "training batch id")
	cmd.Flags().StringVar(&notes, "notes", "", "enrollment notes")
	return cmd
}

func emitWorkflowUpdate(cc *CommandContext, wf *api.Workflow, done string) error {
	return cc.Printer.Emit(wf, func(w io.Writer, s ux.Styles) error {
		_, err := fmt.Fprintf(w, "%s %s: %s is now %s\n", s.Mark(true), done, wf.CandidateName(), statusLabel(*wf))
		return err
	})
}

func renderWorkflow(w io.Writer, s ux.Styles, wf *api.Workflow) error {
	lines := []string{
		s.Field("candidate", fmt.Sprintf("%s (#%d)", wf.CandidateName(), wf.CandidateID)),
		s.Field("status", statusLabel(*wf)),
	}
	optional := []struct{ key, value string }{
		{"email", wf.Email},
		{"phone", wf.PhoneNumber},
		{"location", joinNonEmpty(", ", wf.City, wf.State)},
		{"screened", joinNonEmpty(" · ", wf.ScreeningCompletedAt, wf.ScreeningCompletedByName)},
		{"oriented", joinNonEmpty(" · ", wf.OrientationCompletedAt, wf.OrientationCompletedByName)},
		{"enrolled", joinNonEmpty(" · ", wf.EnrolledAt, wf.EnrolledByName)},
		{"batch", joinNonEmpty(" · ", wf.TrainingBatchCode, wf.TrainingName)},
	}
	for _, f := range optional {
		if f.value != "" {
			lines = append(lines, s.Field(f.key, f.value))
		}
	}
	if wf.EngagementScore != nil {
		lines = append(lines, s.Field("engagement", strconv.FormatFloat(*wf.EngagementScore, 'f', 1, 64)))
	}
	if wf.DropoutRiskScore != nil {
		lines = append(lines, s.Field("dropout risk", strconv.FormatFloat(*wf.DropoutRiskScore, 'f', 1, 64)))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func statusLabel(wf api.Workflow) string {
	if wf.StatusDisplayName != "" {
		return wf.StatusDisplayName
	}
	return wf.Status
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// parseID parses a positive numeric identifier given as an argument.
func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid argument: %s must be a positive number, got %q", what, arg)
	}
	return id, nil
}
