package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/usecases"
)

// CycleRunner is the part of usecases.MonitorService the activities drive.
type CycleRunner interface {
	Plan(ctx context.Context) (*domain.CyclePlan, error)
	FollowUp(ctx context.Context, plan *domain.CyclePlan, r domain.CrossingResult) domain.HighResResult
	Finalize(ctx context.Context, plan *domain.CyclePlan, highRes []domain.HighResResult) (*usecases.CycleResult, error)
}

// FollowUpInput identifies one high-resolution request of a cycle.
type FollowUpInput struct {
	CycleID   string
	Timestamp string
	Result    domain.CrossingResult
}

// CycleActivities holds the activity implementations for the detection cycle workflow.
type CycleActivities struct {
	Runner CycleRunner
}

// PlanCycle downloads the base image, classifies every crossing and picks the follow-ups.
func (a *CycleActivities) PlanCycle(ctx context.Context) (*domain.CyclePlan, error) {
	plan, err := a.Runner.Plan(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan cycle: %w", err)
	}
	return plan, nil
}

// RequestHighRes fetches and stores one follow-up image. Failures are recorded
// in the result so the workflow keeps going.
func (a *CycleActivities) RequestHighRes(ctx context.Context, in FollowUpInput) (domain.HighResResult, error) {
	plan := &domain.CyclePlan{ID: in.CycleID, Timestamp: in.Timestamp}
	return a.Runner.FollowUp(ctx, plan, in.Result), nil
}

// FinalizeCycle writes the cycle outputs and returns its summary.
func (a *CycleActivities) FinalizeCycle(ctx context.Context, plan *domain.CyclePlan, highRes []domain.HighResResult) (*CycleOutcome, error) {
	res, err := a.Runner.Finalize(ctx, plan, highRes)
	if err != nil {
		return nil, fmt.Errorf("finalize cycle %s: %w", plan.ID, err)
	}
	slog.Info("cycle finalized by workflow", "cycle", plan.ID, "data", res.Paths.Data)
	return &CycleOutcome{
		CycleID:   res.Snapshot.ID,
		Timestamp: res.Snapshot.Timestamp,
		Summary:   res.Snapshot.Summary,
		DataPath:  res.Paths.Data,
	}, nil
}
