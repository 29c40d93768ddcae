package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"tipping-platform/activities"
	"tipping-platform/models"
)

const (
	QueryProvisioningState = "provisioningState"
)

// ProvisioningWorkflow drives the account-provisioning steps one at a time,
// passing each step's output state as the next step's input. The workflow
// owns retry/backoff for transient step failures; the steps themselves are
// idempotent, so re-entering a step after a timeout is safe.
func ProvisioningWorkflow(ctx workflow.Context, state models.WorkflowState) (models.WorkflowState, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("ProvisioningWorkflow started", "account_type", state.AccountType)

	// Expose the current state for operational queries.
	err := workflow.SetQueryHandler(ctx, QueryProvisioningState, func() (models.WorkflowState, error) {
		return state, nil
	})
	if err != nil {
		return state, fmt.Errorf("failed to set query handler: %w", err)
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		HeartbeatTimeout:    15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var act *activities.ProvisioningActivities

	for state.Step != models.StepDone {
		var next models.WorkflowState
		if err := workflow.ExecuteActivity(ctx, act.ExecuteStep, state).Get(ctx, &next); err != nil {
			logger.Error("Provisioning step failed", "step", state.Step, "error", err)

			// The workflow's own failure notification; best-effort.
			notifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
				StartToCloseTimeout: 10 * time.Second,
			})
			_ = workflow.ExecuteActivity(notifyCtx, act.NotifyProvisioningFailure, state, err.Error()).Get(ctx, nil)

			return state, fmt.Errorf("provisioning failed at step %q: %w", state.Step, err)
		}

		// Steps advance monotonically; a non-advancing transition means the
		// executor and this driver disagree about the step order.
		if next.Step.Index() <= state.Step.Index() {
			return state, fmt.Errorf("provisioning step %q did not advance (returned %q)", state.Step, next.Step)
		}
		state = next
		logger.Info("Provisioning step completed", "next_step", state.Step)
	}

	logger.Info("ProvisioningWorkflow completed",
		"profile_id", state.ProfileID, "account_number", state.AccountNumber)
	return state, nil
}
