package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
)

// SettlementActivities holds the activity implementations for the settlement workflow.
type SettlementActivities struct {
	Settlements *usecases.SettlementService
}

// ComputeSettlement recomputes the final amount of a completed trip.
func (a *SettlementActivities) ComputeSettlement(ctx context.Context, tripID string) (*usecases.Settlement, error) {
	st, err := a.Settlements.Compute(ctx, tripID)
	if errors.Is(err, domain.ErrTripNotFound) || errors.Is(err, domain.ErrInvalidTransition) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "settlement_rejected", err)
	}
	if err != nil {
		return nil, fmt.Errorf("compute settlement: %w", err)
	}
	return st, nil
}

// ApplySettlement stores the settled amount on the trip.
func (a *SettlementActivities) ApplySettlement(ctx context.Context, tripID string, amount float64) error {
	return a.Settlements.Apply(ctx, tripID, amount)
}

// PublishSettlement announces the settled amount.
func (a *SettlementActivities) PublishSettlement(ctx context.Context, tripID string, amount float64) error {
	if err := a.Settlements.Notify(ctx, tripID, amount); err != nil {
		return fmt.Errorf("publish settlement %s: %w", tripID, err)
	}
	return nil
}

// RevertSettlement restores the pre-settlement amount (saga compensation).
func (a *SettlementActivities) RevertSettlement(ctx context.Context, tripID string, previousAmount float64) error {
	if err := a.Settlements.Revert(ctx, tripID, previousAmount); err != nil {
		return fmt.Errorf("revert settlement %s: %w", tripID, err)
	}
	activity.GetLogger(ctx).Info("settlement reverted", "tripID", tripID)
	return nil
}
