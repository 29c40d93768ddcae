package activities

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"tipping-platform/gateway"
	"tipping-platform/models"
	"tipping-platform/notify"
	"tipping-platform/store"
)

type paymentFixture struct {
	env      *testsuite.TestActivityEnvironment
	act      *PaymentActivities
	mem      *store.Memory
	recorder *notify.Recorder
	gw       *gatewayServer
}

func newPaymentFixture(t *testing.T, successTopic, failureTopic string) *paymentFixture {
	t.Helper()
	gw := newGatewayServer(t)
	mem := store.NewMemory()
	recorder := &notify.Recorder{}

	act := NewPaymentActivities(
		mem,
		gateway.NewClient(gateway.Config{
			BaseURL:  gw.URL,
			TenantID: "t1",
			Scheme:   gateway.AuthPasswordLogin,
			Identity: "svc@example.com",
			Password: "hunter2",
		}, nil),
		recorder,
		successTopic, failureTopic,
	)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	env.RegisterActivity(act.SubmitPayment)

	return &paymentFixture{env: env, act: act, mem: mem, recorder: recorder, gw: gw}
}

func (f *paymentFixture) submit(t *testing.T, in models.PaymentInput) (models.PaymentResult, error) {
	t.Helper()
	val, err := f.env.ExecuteActivity(f.act.SubmitPayment, in)
	if err != nil {
		return models.PaymentResult{}, err
	}
	var out models.PaymentResult
	require.NoError(t, val.Get(&out))
	return out, nil
}

func TestSubmitPayment(t *testing.T) {
	f := newPaymentFixture(t, "platform.events", "platform.alerts")

	result, err := f.submit(t, models.PaymentInput{
		IdempotencyToken:    "tok-1",
		Amount:              50,
		Currency:            "zar",
		DestinationWalletID: "123",
		BeneficiaryID:       "ben-1",
		YourReference:       "tip jar",
	})
	require.NoError(t, err)

	// completionUrl is null in the gateway response; the result carries the
	// pass-through status and no authorization URL.
	assert.Equal(t, "tok-1", result.PaymentID)
	assert.Equal(t, models.PaymentStatus("SUCCESSFUL"), result.Status)
	assert.Empty(t, result.AuthorizationURL)

	rec, err := f.mem.GetPayment(t.Context(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatus("SUCCESSFUL"), rec.Status)
	assert.Equal(t, "ZAR", rec.Currency)
	assert.Equal(t, float64(50), rec.Amount)
	assert.Equal(t, "123", rec.WalletID)
	assert.NotEmpty(t, rec.RawResponse)
	assert.Empty(t, rec.Error)

	events := f.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "platform.events", events[0].Topic)
	assert.Equal(t, "payment-submitted", events[0].Subject)
}

func TestSubmitPaymentAuthorizationURL(t *testing.T) {
	f := newPaymentFixture(t, "platform.events", "platform.alerts")
	f.gw.paymentBody = `{"status":"PENDING","redirectUrl":"https://pay.example/authorize/abc"}`

	result, err := f.submit(t, models.PaymentInput{
		IdempotencyToken:    "tok-2",
		Amount:              12.5,
		Currency:            "ZAR",
		DestinationWalletID: "123",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, result.Status)
	assert.Equal(t, "https://pay.example/authorize/abc", result.AuthorizationURL)
}

func TestSubmitPaymentDefaultsStatusToPending(t *testing.T) {
	f := newPaymentFixture(t, "platform.events", "platform.alerts")
	f.gw.paymentBody = `{}`

	result, err := f.submit(t, models.PaymentInput{
		IdempotencyToken:    "tok-3",
		Amount:              5,
		Currency:            "ZAR",
		DestinationWalletID: "123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, result.Status)
}

func TestSubmitPaymentGeneratesPaymentID(t *testing.T) {
	f := newPaymentFixture(t, "platform.events", "platform.alerts")

	result, err := f.submit(t, models.PaymentInput{
		Amount:              5,
		Currency:            "ZAR",
		DestinationWalletID: "123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.PaymentID)

	_, err = f.mem.GetPayment(t.Context(), result.PaymentID)
	require.NoError(t, err)
}

func TestSubmitPaymentValidation(t *testing.T) {
	tests := []struct {
		name string
		in   models.PaymentInput
	}{
		{"negative amount", models.PaymentInput{Amount: -5, Currency: "ZAR", DestinationWalletID: "123"}},
		{"zero amount", models.PaymentInput{Amount: 0, Currency: "ZAR", DestinationWalletID: "123"}},
		{"missing wallet", models.PaymentInput{Amount: 5, Currency: "ZAR"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newPaymentFixture(t, "platform.events", "platform.alerts")

			_, err := f.submit(t, tc.in)
			require.Error(t, err)

			var appErr *temporal.ApplicationError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, ErrTypeValidation, appErr.Type())
			assert.True(t, appErr.NonRetryable())

			// Rejected before persistence: no record, no network, no event.
			assert.Equal(t, 0, f.mem.PaymentCount())
			assert.Equal(t, int64(0), f.gw.paymentCalls.Load())
			assert.Empty(t, f.recorder.Events())
		})
	}
}

func TestSubmitPaymentGatewayFailure(t *testing.T) {
	f := newPaymentFixture(t, "platform.events", "platform.alerts")
	f.gw.paymentStatus = http.StatusInternalServerError
	f.gw.paymentBody = `{"message":"ledger unavailable"}`

	_, err := f.submit(t, models.PaymentInput{
		IdempotencyToken:    "tok-4",
		Amount:              50,
		Currency:            "ZAR",
		DestinationWalletID: "123",
	})
	require.Error(t, err)

	// Exactly one auditable FAILED record with the cause recorded.
	assert.Equal(t, 1, f.mem.PaymentCount())
	rec, getErr := f.mem.GetPayment(t.Context(), "tok-4")
	require.NoError(t, getErr)
	assert.Equal(t, models.PaymentStatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Error)
	assert.Contains(t, rec.Error, "ledger unavailable")

	events := f.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "platform.alerts", events[0].Topic)
	assert.Equal(t, "payment-failed", events[0].Subject)
}

func TestSubmitPaymentFailureTopicFallsBack(t *testing.T) {
	f := newPaymentFixture(t, "platform.events", "")
	f.gw.paymentStatus = http.StatusBadGateway
	f.gw.paymentBody = `{}`

	_, err := f.submit(t, models.PaymentInput{
		IdempotencyToken:    "tok-5",
		Amount:              50,
		Currency:            "ZAR",
		DestinationWalletID: "123",
	})
	require.Error(t, err)

	events := f.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "platform.events", events[0].Topic)
	assert.Equal(t, "payment-failed", events[0].Subject)
}

func TestSubmitPaymentNotificationFailureDoesNotChangeOutcome(t *testing.T) {
	f := newPaymentFixture(t, "platform.events", "platform.alerts")
	f.recorder.Err = errors.New("broker down")

	result, err := f.submit(t, models.PaymentInput{
		IdempotencyToken:    "tok-6",
		Amount:              50,
		Currency:            "ZAR",
		DestinationWalletID: "123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatus("SUCCESSFUL"), result.Status)
}
