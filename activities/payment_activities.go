package activities

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"tipping-platform/gateway"
	"tipping-platform/models"
	"tipping-platform/notify"
	"tipping-platform/store"
)

// PaymentActivities contains the payment-intent step executor.
type PaymentActivities struct {
	payments     store.PaymentStore
	gateway      Gateway
	publisher    notify.Publisher
	successTopic string
	failureTopic string
}

// NewPaymentActivities creates a PaymentActivities instance. failureTopic may
// be empty, in which case failure events fall back to the success topic.
func NewPaymentActivities(payments store.PaymentStore, gw Gateway, publisher notify.Publisher, successTopic, failureTopic string) *PaymentActivities {
	return &PaymentActivities{
		payments:     payments,
		gateway:      gw,
		publisher:    publisher,
		successTopic: successTopic,
		failureTopic: failureTopic,
	}
}

// SubmitPayment validates, persists, submits, and reconciles a single payment
// intent. The PENDING record is written before any network call, so every
// attempted payment leaves an auditable trace even if the gateway call never
// completes. There is no retry loop here; the orchestrator owns retries, and
// the gateway's external-unique-id deduplication bounds re-submission.
func (p *PaymentActivities) SubmitPayment(ctx context.Context, in models.PaymentInput) (models.PaymentResult, error) {
	logger := activity.GetLogger(ctx)

	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return models.PaymentResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("amount must be a positive finite number, got %v", in.Amount), ErrTypeValidation, nil)
	}
	if in.DestinationWalletID == "" {
		return models.PaymentResult{}, temporal.NewNonRetryableApplicationError(
			"destinationWalletId is required", ErrTypeValidation, nil)
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	paymentID := in.IdempotencyToken
	if paymentID == "" {
		paymentID = uuid.NewString()
	}

	now := time.Now().UTC()
	rec := &models.PaymentRecord{
		PaymentID:      paymentID,
		Status:         models.PaymentStatusPending,
		Amount:         in.Amount,
		Currency:       currency,
		WalletID:       in.DestinationWalletID,
		PayerID:        in.PayerID,
		BeneficiaryID:  in.BeneficiaryID,
		YourReference:  in.YourReference,
		TheirReference: in.TheirReference,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.payments.CreatePending(ctx, rec); err != nil {
		return models.PaymentResult{}, fmt.Errorf("persist pending payment: %w", err)
	}
	activity.RecordHeartbeat(ctx, "pending payment recorded")

	result, err := p.submit(ctx, paymentID, currency, in)
	if err != nil {
		logger.Error("Payment submission failed", "payment_id", paymentID, "error", err)
		if markErr := p.payments.MarkFailed(ctx, paymentID, err.Error()); markErr != nil {
			logger.Error("Failed to record FAILED payment status", "payment_id", paymentID, "error", markErr)
		}
		p.notify(ctx, p.failureTopicOrFallback(), "payment-failed",
			fmt.Sprintf("payment %s failed: %v", paymentID, err))
		return models.PaymentResult{}, err
	}

	logger.Info("Payment submitted", "payment_id", paymentID, "status", result.Status)
	p.notify(ctx, p.successTopic, "payment-submitted",
		fmt.Sprintf("payment %s submitted with status %s", paymentID, result.Status))
	return result, nil
}

func (p *PaymentActivities) submit(ctx context.Context, paymentID, currency string, in models.PaymentInput) (models.PaymentResult, error) {
	token, err := p.gateway.Authenticate(ctx)
	if err != nil {
		return models.PaymentResult{}, fmt.Errorf("gateway auth: %w", err)
	}
	activity.RecordHeartbeat(ctx, "gateway authenticated")

	metadata := map[string]string{}
	if in.YourReference != "" {
		metadata["yourReference"] = in.YourReference
	}
	if in.TheirReference != "" {
		metadata["theirReference"] = in.TheirReference
	}
	if in.BeneficiaryToken != "" {
		metadata["beneficiaryToken"] = in.BeneficiaryToken
	}

	envelope, raw, err := p.gateway.CreatePayment(ctx, token, gateway.PaymentRequest{
		Type:                "collection",
		Amount:              in.Amount,
		Currency:            currency,
		DestinationWalletID: in.DestinationWalletID,
		ExternalUniqueID:    paymentID,
		Metadata:            metadata,
	})
	if err != nil {
		return models.PaymentResult{}, fmt.Errorf("submit payment: %w", err)
	}
	activity.RecordHeartbeat(ctx, "payment submitted")

	status := models.PaymentStatusPending
	if s, ok := gateway.Extract(envelope, []string{"status"}); ok {
		status = models.PaymentStatus(s)
	}
	authorizationURL, _ := gateway.Extract(envelope, []string{"completionUrl"}, []string{"redirectUrl"})

	if err := p.payments.MarkResult(ctx, paymentID, status, authorizationURL, string(raw)); err != nil {
		return models.PaymentResult{}, fmt.Errorf("record payment result: %w", err)
	}

	return models.PaymentResult{
		PaymentID:        paymentID,
		AuthorizationURL: authorizationURL,
		Status:           status,
	}, nil
}

func (p *PaymentActivities) failureTopicOrFallback() string {
	if p.failureTopic != "" {
		return p.failureTopic
	}
	return p.successTopic
}

// notify publishes best-effort; a failed publish is logged, never propagated.
func (p *PaymentActivities) notify(ctx context.Context, topic, subject, message string) {
	if err := p.publisher.Publish(ctx, topic, subject, message); err != nil {
		activity.GetLogger(ctx).Warn("Notification publish failed", "topic", topic, "error", err)
	}
}
