package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// DetectionCycleInput is the input for the detection cycle workflow.
type DetectionCycleInput struct {
	// Delay is slept between consecutive follow-up requests.
	Delay time.Duration
}

// CycleOutcome is what the workflow reports once the cycle is written.
type CycleOutcome struct {
	CycleID   string
	Timestamp string
	Summary   domain.Summary
	DataPath  string
}

// DetectionCycleWorkflow plans a cycle, requests each follow-up image with a
// durable timer between requests, then writes the outputs. Planning and
// finalizing are retried; a failed follow-up is only recorded.
func DetectionCycleWorkflow(ctx workflow.Context, input DetectionCycleInput) (*CycleOutcome, error) {
	logger := workflow.GetLogger(ctx)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *CycleActivities

	// Step 1: base image, detection and selection
	var plan *domain.CyclePlan
	if err := workflow.ExecuteActivity(ctx, a.PlanCycle).Get(ctx, &plan); err != nil {
		return nil, err
	}
	logger.Info("cycle planned", "cycle", plan.ID, "crossings", len(plan.Results), "selected", len(plan.Selected))

	// Step 2: follow-ups, one at a time
	followCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	highRes := make([]domain.HighResResult, 0, len(plan.Selected))
	for i, r := range plan.Selected {
		if i > 0 && input.Delay > 0 {
			if err := workflow.Sleep(ctx, input.Delay); err != nil {
				return nil, err
			}
		}

		var res domain.HighResResult
		in := FollowUpInput{CycleID: plan.ID, Timestamp: plan.Timestamp, Result: r}
		if err := workflow.ExecuteActivity(followCtx, a.RequestHighRes, in).Get(followCtx, &res); err != nil {
			logger.Warn("follow-up activity failed", "border", r.BorderNumber, "error", err)
			res = domain.HighResResult{
				BorderNumber: r.BorderNumber,
				Crossing:     r.Crossing.Name,
				Confidence:   r.Detection.Confidence,
				Error:        err.Error(),
			}
		}
		highRes = append(highRes, res)
	}

	// Step 3: render, write and announce
	var outcome *CycleOutcome
	if err := workflow.ExecuteActivity(ctx, a.FinalizeCycle, plan, highRes).Get(ctx, &outcome); err != nil {
		return nil, err
	}

	logger.Info("cycle complete", "cycle", outcome.CycleID, "cloudy", outcome.Summary.Cloudy, "highRes", outcome.Summary.HighResImages)
	return outcome, nil
}
