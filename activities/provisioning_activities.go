package activities

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"tipping-platform/gateway"
	"tipping-platform/identity"
	"tipping-platform/models"
	"tipping-platform/notify"
	"tipping-platform/store"
)

// Application error types for the fatal (non-retryable) taxonomy. The
// orchestrator's retry policy skips these; everything else stays retryable
// because every step is idempotent with respect to its own side effect.
const (
	ErrTypeValidation     = "ValidationError"
	ErrTypeIdentityExists = "IdentityExistsError"
	ErrTypeOutOfOrder     = "OutOfOrderError"
	ErrTypeAllocation     = "AllocationError"
)

// Name normalization bounds for the external customer record.
const (
	minNameLength   = 2
	maxNameLength   = 50
	namePlaceholder = "Customer"
)

// Gateway is the slice of the payment gateway the provisioning and payment
// steps depend on.
type Gateway interface {
	Authenticate(ctx context.Context) (string, error)
	CreateCustomer(ctx context.Context, token, idempotencyKey string, in gateway.CustomerInput) (string, error)
	CreateWallet(ctx context.Context, token, idempotencyKey, customerID, currency string) (string, error)
	CreatePayment(ctx context.Context, token string, req gateway.PaymentRequest) (map[string]any, []byte, error)
}

// ProvisioningActivities contains the account-provisioning step executor.
type ProvisioningActivities struct {
	identity       identity.Provider
	profiles       store.ProfileStore
	counters       store.CounterStore
	gateway        Gateway
	publisher      notify.Publisher
	failureTopic   string
	walletCurrency string
}

// NewProvisioningActivities creates a ProvisioningActivities instance.
func NewProvisioningActivities(
	idp identity.Provider,
	profiles store.ProfileStore,
	counters store.CounterStore,
	gw Gateway,
	publisher notify.Publisher,
	failureTopic, walletCurrency string,
) *ProvisioningActivities {
	return &ProvisioningActivities{
		identity:       idp,
		profiles:       profiles,
		counters:       counters,
		gateway:        gw,
		publisher:      publisher,
		failureTopic:   failureTopic,
		walletCurrency: walletCurrency,
	}
}

// ExecuteStep runs exactly one provisioning step and returns the state with
// Step advanced. Resumability belongs to the caller: a step whose output is
// already present in the state advances without repeating its side effect.
func (a *ProvisioningActivities) ExecuteStep(ctx context.Context, state models.WorkflowState) (models.WorkflowState, error) {
	logger := activity.GetLogger(ctx)

	if state.Step == "" {
		// First invocation: any caller-supplied identity fields are stripped
		// so a fresh identity is always created.
		state.Step = models.StepIdentity
		state.IdentityUsername = ""
		state.IdentitySubjectID = ""
	}

	logger.Info("Executing provisioning step", "step", state.Step, "account_type", state.AccountType)

	next, err := a.runStep(ctx, state)
	if err != nil {
		logger.Error("Provisioning step failed", "step", state.Step, "error", err)
		a.notifyFailure(ctx, state, err)
		return state, err
	}

	logger.Info("Provisioning step completed", "step", state.Step, "next", next.Step)
	return next, nil
}

func (a *ProvisioningActivities) runStep(ctx context.Context, state models.WorkflowState) (models.WorkflowState, error) {
	switch state.Step {
	case models.StepIdentity:
		return a.identityStep(ctx, state)
	case models.StepProfile:
		return a.profileStep(ctx, state)
	case models.StepExternalCustomer:
		return a.externalCustomerStep(ctx, state)
	case models.StepExternalWallet:
		return a.externalWalletStep(ctx, state)
	case models.StepUpdateProfile:
		return a.updateProfileStep(ctx, state)
	case models.StepDone:
		return state, nil
	}
	return state, temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("unknown provisioning step %q", state.Step), ErrTypeValidation, nil)
}

// identityStep creates the login identity and assigns it to the account
// type's group. A username collision is fatal: adopting the existing
// identity's subject id would forge a new account onto an old login.
func (a *ProvisioningActivities) identityStep(ctx context.Context, state models.WorkflowState) (models.WorkflowState, error) {
	if state.IdentitySubjectID != "" {
		state.Step = state.Step.Next()
		return state, nil
	}

	state.FirstName = strings.TrimSpace(state.FirstName)
	state.FamilyName = strings.TrimSpace(state.FamilyName)
	if state.FirstName == "" || state.FamilyName == "" {
		return state, temporal.NewNonRetryableApplicationError(
			"firstName and familyName are required", ErrTypeValidation, nil)
	}
	if state.Email == "" && state.PhoneNumber == "" {
		return state, temporal.NewNonRetryableApplicationError(
			"either email or phoneNumber is required", ErrTypeValidation, nil)
	}
	if !state.AccountType.Valid() {
		return state, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown account type %q", state.AccountType), ErrTypeValidation, nil)
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}

	username := deriveUsername(state.FamilyName, state.FirstName, state.CreatedAt)
	tempPassword, err := temporaryPassword()
	if err != nil {
		return state, fmt.Errorf("generate temporary credential: %w", err)
	}

	attrs := map[string]string{
		"given_name":  state.FirstName,
		"family_name": state.FamilyName,
	}
	if state.Email != "" {
		attrs["email"] = state.Email
	}
	if state.PhoneNumber != "" {
		attrs["phone_number"] = state.PhoneNumber
	}

	created, err := a.identity.CreateUser(ctx, identity.CreateUserInput{
		Username:          username,
		TemporaryPassword: tempPassword,
		Attributes:        attrs,
		SuppressWelcome:   true,
	})
	if errors.Is(err, identity.ErrUserExists) {
		return state, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("identity username %q already exists", username), ErrTypeIdentityExists, err)
	}
	if err != nil {
		return state, fmt.Errorf("create identity: %w", err)
	}
	activity.RecordHeartbeat(ctx, "identity created")

	if err := a.identity.AddUserToGroup(ctx, state.AccountType.IdentityGroup(), created.Username); err != nil {
		return state, fmt.Errorf("assign identity group: %w", err)
	}

	state.IdentityUsername = created.Username
	state.IdentitySubjectID = created.SubjectID
	state.Step = state.Step.Next()
	return state, nil
}

// profileStep computes the canonical profile id, allocates the account number,
// and conditionally creates the profile record. This is the single allocation
// point for account numbers; the accountNumber guard keeps a retried step
// from minting a second one.
func (a *ProvisioningActivities) profileStep(ctx context.Context, state models.WorkflowState) (models.WorkflowState, error) {
	if state.AccountNumber != "" || (state.ProfileAlreadyExists && state.ProfileID != "") {
		state.Step = state.Step.Next()
		return state, nil
	}

	profileID := state.IdentitySubjectID
	if profileID == "" {
		profileID = state.IdentityUsername
	}
	if profileID == "" {
		profileID = uuid.NewString()
	}
	state.ProfileID = profileID

	if !state.ProfileAlreadyExists {
		value, err := a.counters.Increment(ctx, counterName(state.AccountType))
		if err != nil {
			return state, fmt.Errorf("allocate account number: %w", err)
		}
		if value <= 0 {
			return state, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("account number counter returned non-positive value %d", value), ErrTypeAllocation, nil)
		}
		state.AccountNumber = models.FormatAccountNumber(state.AccountType, value)

		attrs := map[string]any{
			"profileId":     state.ProfileID,
			"accountType":   string(state.AccountType),
			"firstName":     state.FirstName,
			"familyName":    state.FamilyName,
			"accountNumber": state.AccountNumber,
			"status":        "pending",
			"createdAt":     time.Now().UTC().Format(time.RFC3339),
		}
		if state.Email != "" {
			attrs["email"] = state.Email
		}
		if state.PhoneNumber != "" {
			attrs["phoneNumber"] = state.PhoneNumber
		}
		if state.Address != "" {
			attrs["address"] = state.Address
		}
		if state.IdentityUsername != "" {
			attrs["identityUsername"] = state.IdentityUsername
		}
		if state.IdentitySubjectID != "" {
			attrs["identitySubjectId"] = state.IdentitySubjectID
		}

		err = a.profiles.PutIfAbsent(ctx, state.ProfileID, attrs)
		if errors.Is(err, store.ErrProfileExists) {
			// Expected shape of a retried provisioning step.
			activity.GetLogger(ctx).Info("Profile already exists; continuing", "profile_id", state.ProfileID)
		} else if err != nil {
			return state, fmt.Errorf("create profile: %w", err)
		}
	}

	state.Step = state.Step.Next()
	return state, nil
}

// externalCustomerStep creates the gateway customer. The idempotency key is
// derived from the identity subject id so a gateway-side replay resolves to
// the same customer.
func (a *ProvisioningActivities) externalCustomerStep(ctx context.Context, state models.WorkflowState) (models.WorkflowState, error) {
	if state.ExternalCustomerID != "" {
		state.Step = state.Step.Next()
		return state, nil
	}

	token, err := a.gateway.Authenticate(ctx)
	if err != nil {
		return state, fmt.Errorf("gateway auth: %w", err)
	}
	activity.RecordHeartbeat(ctx, "gateway authenticated")

	customerID, err := a.gateway.CreateCustomer(ctx, token, "customer-"+a.idempotencyBase(state), gateway.CustomerInput{
		FirstName:   normalizeName(state.FirstName),
		LastName:    normalizeName(state.FamilyName),
		Email:       state.Email,
		PhoneNumber: state.PhoneNumber,
	})
	if err != nil {
		return state, err
	}

	state.ExternalCustomerID = customerID
	state.Step = state.Step.Next()
	return state, nil
}

// externalWalletStep creates the customer's wallet. Running it before the
// customer step is an ordering violation, not a transient condition.
func (a *ProvisioningActivities) externalWalletStep(ctx context.Context, state models.WorkflowState) (models.WorkflowState, error) {
	if state.ExternalWalletID != "" {
		state.Step = state.Step.Next()
		return state, nil
	}
	if state.ExternalCustomerID == "" {
		return state, temporal.NewNonRetryableApplicationError(
			"externalCustomerId missing: wallet step cannot run before customer step", ErrTypeOutOfOrder, nil)
	}

	token, err := a.gateway.Authenticate(ctx)
	if err != nil {
		return state, fmt.Errorf("gateway auth: %w", err)
	}
	activity.RecordHeartbeat(ctx, "gateway authenticated")

	walletID, err := a.gateway.CreateWallet(ctx, token, "wallet-"+a.idempotencyBase(state),
		state.ExternalCustomerID, a.walletCurrency)
	if err != nil {
		return state, err
	}

	state.ExternalWalletID = walletID
	state.Step = state.Step.Next()
	return state, nil
}

// updateProfileStep lands the external ids on the profile record. Everything
// except the external ids, status, and updatedAt merges set-if-absent, so the
// step can be re-run without clobbering data written elsewhere while still
// guaranteeing the ids arrive.
func (a *ProvisioningActivities) updateProfileStep(ctx context.Context, state models.WorkflowState) (models.WorkflowState, error) {
	if state.ProfileID == "" {
		return state, temporal.NewNonRetryableApplicationError(
			"profileId missing: update-profile step cannot run before profile step", ErrTypeOutOfOrder, nil)
	}

	setIfAbsent := map[string]any{
		"accountType": string(state.AccountType),
		"firstName":   state.FirstName,
		"familyName":  state.FamilyName,
	}
	if state.Email != "" {
		setIfAbsent["email"] = state.Email
	}
	if state.PhoneNumber != "" {
		setIfAbsent["phoneNumber"] = state.PhoneNumber
	}
	if state.Address != "" {
		setIfAbsent["address"] = state.Address
	}
	if state.AccountNumber != "" {
		setIfAbsent["accountNumber"] = state.AccountNumber
	}
	if state.IdentityUsername != "" {
		setIfAbsent["identityUsername"] = state.IdentityUsername
	}
	if state.IdentitySubjectID != "" {
		setIfAbsent["identitySubjectId"] = state.IdentitySubjectID
	}

	merge := store.Merge{
		SetIfAbsent: setIfAbsent,
		SetAlways: map[string]any{
			"externalCustomerId": state.ExternalCustomerID,
			"externalWalletId":   state.ExternalWalletID,
			"status":             "active",
			"updatedAt":          time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := a.profiles.UpdateMerge(ctx, state.ProfileID, merge); err != nil {
		return state, fmt.Errorf("update profile: %w", err)
	}

	state.Step = state.Step.Next()
	return state, nil
}

// NotifyProvisioningFailure publishes an operational notification for a
// workflow that has given up. It never fails the caller.
func (a *ProvisioningActivities) NotifyProvisioningFailure(ctx context.Context, state models.WorkflowState, reason string) error {
	payload, _ := json.Marshal(state)
	message := fmt.Sprintf("account provisioning failed: %s\nstate: %s", reason, payload)
	if err := a.publisher.Publish(ctx, a.failureTopic, "provisioning-failed", message); err != nil {
		activity.GetLogger(ctx).Warn("Failure notification publish failed", "error", err)
	}
	return nil
}

// notifyFailure is the per-step best-effort notification. Its own errors are
// swallowed so the original step error is always the one that surfaces.
func (a *ProvisioningActivities) notifyFailure(ctx context.Context, state models.WorkflowState, cause error) {
	payload, _ := json.Marshal(state)
	message := fmt.Sprintf("provisioning step %s failed: %v\nstate: %s", state.Step, cause, payload)
	if err := a.publisher.Publish(ctx, a.failureTopic, "provisioning-step-failed", message); err != nil {
		activity.GetLogger(ctx).Warn("Failure notification publish failed", "error", err)
	}
}

func (a *ProvisioningActivities) idempotencyBase(state models.WorkflowState) string {
	if state.IdentitySubjectID != "" {
		return state.IdentitySubjectID
	}
	return state.ProfileID
}

func counterName(t models.AccountType) string {
	return "account-number:" + string(t)
}

// deriveUsername builds a deterministic username from the family name, first
// name, and creation date. Determinism is what makes a retried identity step
// collide with its own earlier success instead of minting a second login.
func deriveUsername(family, first string, createdAt time.Time) string {
	return fmt.Sprintf("%s.%s.%s", sanitizeNamePart(family), sanitizeNamePart(first), createdAt.UTC().Format("20060102"))
}

func sanitizeNamePart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeName trims, substitutes a placeholder below the minimum length,
// and caps the result.
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < minNameLength {
		return namePlaceholder
	}
	runes := []rune(s)
	if len(runes) > maxNameLength {
		return string(runes[:maxNameLength])
	}
	return s
}

// temporaryPassword generates a one-time credential for the new identity.
// The provider forces a reset on first login; the value is never persisted.
func temporaryPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "Tmp1!" + hex.EncodeToString(buf), nil
}
