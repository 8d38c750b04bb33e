package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/tripdesk/internal/workflows"
)

// Starter implements ports.SettlementStarter by starting TripSettlementWorkflow.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter returns a Starter using an existing Temporal client.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// Dial connects to Temporal and returns a Starter that owns the client.
func Dial(hostPort, namespace, taskQueue string) (*Starter, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return NewStarter(c, taskQueue), nil
}

// StartSettlement starts the settlement workflow for tripID. A workflow that is
// already running for the trip counts as started.
func (s *Starter) StartSettlement(ctx context.Context, tripID string) error {
	opts := client.StartWorkflowOptions{
		ID:        workflows.SettlementWorkflowID(tripID),
		TaskQueue: s.taskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, workflows.TripSettlementWorkflow, workflows.SettlementInput{TripID: tripID})
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("start settlement %s: %w", tripID, err)
	}
	return nil
}

// Close releases the Temporal client.
func (s *Starter) Close() {
	s.client.Close()
}
