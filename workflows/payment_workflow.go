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
	PaymentWorkflowName = "PaymentWorkflow"
)

// PaymentWorkflow submits a single payment intent. The executor activity is
// idempotent per payment id, so the retry policy here can safely re-enter it
// after a transient failure without double-charging.
func PaymentWorkflow(ctx workflow.Context, input models.PaymentInput) (models.PaymentResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("PaymentWorkflow started",
		"amount", input.Amount, "currency", input.Currency, "wallet_id", input.DestinationWalletID)

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

	var act *activities.PaymentActivities

	var result models.PaymentResult
	if err := workflow.ExecuteActivity(ctx, act.SubmitPayment, input).Get(ctx, &result); err != nil {
		logger.Error("Payment submission failed", "error", err)
		return models.PaymentResult{}, fmt.Errorf("payment submission failed: %w", err)
	}

	logger.Info("PaymentWorkflow completed", "payment_id", result.PaymentID, "status", result.Status)
	return result, nil
}
