package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/cumulus/internal/workflows"
)

const scheduleID = "cumulus-detection-cycle"

var scheduleNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Register the detection cycle schedule with Temporal",
	Long: "Creates a Temporal schedule that starts the detection cycle workflow on " +
		"temporal.schedule. Cycles run on a worker started with cmd/worker.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return fmt.Errorf("temporal client: %w", err)
		}
		defer c.Close()

		ctx := cmd.Context()
		input := workflows.DetectionCycleInput{Delay: cfg.Selection.Delay}

		if scheduleNow {
			run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
				TaskQueue: cfg.Temporal.TaskQueue,
			}, workflows.DetectionCycleWorkflow, input)
			if err != nil {
				return fmt.Errorf("start workflow: %w", err)
			}
			slog.Info("cycle started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

			var out workflows.CycleOutcome
			if err := run.Get(ctx, &out); err != nil {
				return fmt.Errorf("cycle: %w", err)
			}
			slog.Info("cycle complete", "cycle", out.CycleID, "cloudy", out.Summary.Cloudy, "high_res", out.Summary.HighResImages)
			return nil
		}

		_, err = c.ScheduleClient().Create(ctx, client.ScheduleOptions{
			ID: scheduleID,
			Spec: client.ScheduleSpec{
				CronExpressions: []string{cfg.Temporal.Schedule},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        scheduleID + "-run",
				Workflow:  workflows.DetectionCycleWorkflow,
				Args:      []interface{}{input},
				TaskQueue: cfg.Temporal.TaskQueue,
			},
		})
		if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
			slog.Info("schedule already registered", "id", scheduleID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}

		slog.Info("schedule registered", "id", scheduleID, "cron", cfg.Temporal.Schedule, "task_queue", cfg.Temporal.TaskQueue)
		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Start one cycle immediately and wait for it instead of registering the schedule")
	rootCmd.AddCommand(scheduleCmd)
}
