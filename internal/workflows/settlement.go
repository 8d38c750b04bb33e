package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/tripdesk/internal/core/usecases"
)

// SettlementWorkflowID is the workflow ID used for a trip, so a trip is settled once.
func SettlementWorkflowID(tripID string) string {
	return "trip-settlement-" + tripID
}

// SettlementInput is the input for the settlement workflow.
type SettlementInput struct {
	TripID string
}

// SettlementResult is returned once the trip's amount is final.
type SettlementResult struct {
	TripID         string
	Amount         float64
	PreviousAmount float64
}

// TripSettlementWorkflow recomputes the amount of a completed trip, stores it
// and announces it. If the announcement fails the stored amount is reverted.
func TripSettlementWorkflow(ctx workflow.Context, input SettlementInput) (*SettlementResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting settlement workflow", "tripID", input.TripID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Recompute the amount
	var st usecases.Settlement
	if err := workflow.ExecuteActivity(ctx, "ComputeSettlement", input.TripID).Get(ctx, &st); err != nil {
		return nil, err
	}
	amount := st.Quote.Total

	// Step 2: Persist it
	if err := workflow.ExecuteActivity(ctx, "ApplySettlement", input.TripID, amount).Get(ctx, nil); err != nil {
		return nil, err
	}

	// Step 3: Announce it
	if err := workflow.ExecuteActivity(ctx, "PublishSettlement", input.TripID, amount).Get(ctx, nil); err != nil {
		logger.Warn("settlement publish failed, compensating", "error", err)
		_ = workflow.ExecuteActivity(ctx, "RevertSettlement", input.TripID, st.PreviousAmount).Get(ctx, nil)
		return nil, err
	}

	logger.Info("Trip settled", "tripID", input.TripID, "amount", amount)
	return &SettlementResult{TripID: input.TripID, Amount: amount, PreviousAmount: st.PreviousAmount}, nil
}
