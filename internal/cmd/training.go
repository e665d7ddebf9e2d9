package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/api"
	"github.com/felixgeelhaar/candidash/internal/ux"
)

// routeTraining is the read-only training view; TRAINING_VIEW opens it.
const routeTraining = "/training-calendar"

func newTrainingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "training",
		Short: "Browse trainings and their batches",
		Long: `Browse the training catalogue and the scheduled batches candidates are
enrolled into. Requires the TRAINING_VIEW permission.

Examples:
  candidash training list --active
  candidash training batches --available
  candidash training batches --training 3
  candidash training batch 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newTrainingListCommand(),
		newTrainingShowCommand(),
		newTrainingBatchesCommand(),
		newTrainingBatchCommand(),
	)
	return cmd
}

func newTrainingListCommand() *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trainings",
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			if _, err := cc.Require(ctx, routeTraining); err != nil {
				return err
			}
			items, err := cc.Client().Trainings(ctx, active)
			if err != nil {
				return cc.backendError(err)
			}
			return cc.Printer.Emit(items, func(w io.Writer, s ux.Styles) error {
				t := newTable("ID", "TRAINING", "CATEGORY", "DAYS", "BATCHES", "ACTIVE")
				for _, it := range items {
					t.Row(strconv.FormatInt(it.ID, 10), it.Name, it.SkillCategory, strconv.Itoa(it.DurationDays),
						fmt.Sprintf("%d/%d", it.ActiveBatches, it.TotalBatches), s.Mark(it.IsActive))
				}
				_, err := fmt.Fprintln(w, t.Render())
				return err
			})
		}),
	}

	cmd.Flags().BoolVar(&active, "active", false, "only list active trainings")
	return cmd
}

func newTrainingShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <training-id>",
		Short: "Show one training",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "training id")
			if err != nil {
				return err
			}
			if _, err := cc.Require(ctx, routeTraining); err != nil {
				return err
			}
			tr, err := cc.Client().Training(ctx, id)
			if err != nil {
				return cc.backendError(err)
			}
			return cc.Printer.Emit(tr, func(w io.Writer, s ux.Styles) error {
				lines := []string{
					s.Field("training", tr.Name),
					s.Field("category", tr.SkillCategory),
					s.Field("duration", fmt.Sprintf("%d days", tr.DurationDays)),
					s.Field("batches", fmt.Sprintf("%d active of %d", tr.ActiveBatches, tr.TotalBatches)),
					s.Field("active", s.Mark(tr.IsActive)),
				}
				if tr.Description != "" {
					lines = append(lines, "", tr.Description)
				}
				_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
				return err
			})
		}),
	}
}

func newTrainingBatchesCommand() *cobra.Command {
	var filter api.BatchFilter

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List training batches",
		Long: `List training batches. --training restricts the list to one training and
takes precedence over --available, which takes precedence over --upcoming.`,
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			if filter.TrainingID < 0 {
				return fmt.Errorf("invalid argument: --training must be positive, got %d", filter.TrainingID)
			}
			if _, err := cc.Require(ctx, routeTraining); err != nil {
				return err
			}
			batches, err := cc.Client().Batches(ctx, filter)
			if err != nil {
				return cc.backendError(err)
			}
			return cc.Printer.Emit(batches, func(w io.Writer, s ux.Styles) error {
				t := newTable("ID", "BATCH", "TRAINING", "DATES", "SEATS", "LOCATION", "ACTIVE")
				for _, b := range batches {
					t.Row(strconv.FormatInt(b.ID, 10), b.BatchCode, b.TrainingName, batchDates(b),
						fmt.Sprintf("%d/%d", b.CurrentEnrolled, b.MaxCapacity), b.Location, s.Mark(b.IsActive))
				}
				_, err := fmt.Fprintln(w, t.Render())
				return err
			})
		}),
	}

	cmd.Flags().Int64Var(&filter.TrainingID, "training", 0, "only list batches of this training")
	cmd.Flags().BoolVar(&filter.Available, "available", false, "only list batches with free seats")
	cmd.Flags().BoolVar(&filter.Upcoming, "upcoming", false, "only list batches that have not started")
	return cmd
}

func newTrainingBatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <batch-id>",
		Short: "Show one training batch",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "batch id")
			if err != nil {
				return err
			}
			if _, err := cc.Require(ctx, routeTraining); err != nil {
				return err
			}
			b, err := cc.Client().Batch(ctx, id)
			if err != nil {
				return cc.backendError(err)
			}
			return cc.Printer.Emit(b, func(w io.Writer, s ux.Styles) error {
				lines := []string{
					s.Field("batch", b.BatchCode),
					s.Field("training", b.TrainingName),
					s.Field("dates", batchDates(*b)),
					s.Field("seats", fmt.Sprintf("%d of %d taken, %d free", b.CurrentEnrolled, b.MaxCapacity, b.AvailableSlots)),
					s.Field("location", b.Location),
					s.Field("trainer", b.TrainerName),
					s.Field("active", s.Mark(b.IsActive)),
				}
				_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
				return err
			})
		}),
	}
}

func batchDates(b api.Batch) string {
	return joinNonEmpty(" → ", b.StartDate, b.EndDate)
}
