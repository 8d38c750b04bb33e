package temporal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/samirrijal/tripdesk/internal/adapters/temporal"
)

func TestStarter_StartSettlement(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.ID == "trip-settlement-trip-1" && o.TaskQueue == "trip-settlement"
	}), mock.Anything, mock.Anything).Return(&mocks.WorkflowRun{}, nil).Once()

	s := temporal.NewStarter(c, "trip-settlement")
	if err := s.StartSettlement(context.Background(), "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.AssertExpectations(t)
}

func TestStarter_AlreadyStarted(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("running", "", ""))

	s := temporal.NewStarter(c, "trip-settlement")
	if err := s.StartSettlement(context.Background(), "trip-1"); err != nil {
		t.Errorf("already running workflow should count as started, got %v", err)
	}
}

func TestStarter_Failure(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("unavailable"))

	s := temporal.NewStarter(c, "trip-settlement")
	if err := s.StartSettlement(context.Background(), "trip-1"); err == nil {
		t.Error("expected error")
	}
}
