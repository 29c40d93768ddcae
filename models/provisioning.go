package models

import (
	"fmt"
	"time"
)

// AccountType identifies which side of the platform an account belongs to.
type AccountType string

const (
	AccountTypePayer       AccountType = "payer"
	AccountTypeBeneficiary AccountType = "beneficiary"
	AccountTypeOperator    AccountType = "operator"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypePayer, AccountTypeBeneficiary, AccountTypeOperator:
		return true
	}
	return false
}

// AccountNumberPrefix returns the type-specific prefix used when formatting
// account numbers.
func (t AccountType) AccountNumberPrefix() string {
	switch t {
	case AccountTypePayer:
		return "PAY"
	case AccountTypeBeneficiary:
		return "BEN"
	case AccountTypeOperator:
		return "OPR"
	}
	return "ACC"
}

// IdentityGroup returns the identity-provider group new logins of this type
// are assigned to.
func (t AccountType) IdentityGroup() string {
	if t == AccountTypeBeneficiary {
		return "beneficiaries"
	}
	return string(t) + "s"
}

// FormatAccountNumber renders a counter value as a fixed-width account number.
func FormatAccountNumber(t AccountType, n int64) string {
	return fmt.Sprintf("%s%08d", t.AccountNumberPrefix(), n)
}

// Step names one stage of the provisioning workflow. Steps advance through a
// fixed total order and never regress.
type Step string

const (
	StepIdentity         Step = "identity"
	StepProfile          Step = "profile"
	StepExternalCustomer Step = "externalCustomer"
	StepExternalWallet   Step = "externalWallet"
	StepUpdateProfile    Step = "updateProfile"
	StepDone             Step = "done"
)

// Next returns the step that follows s. StepDone is terminal.
func (s Step) Next() Step {
	switch s {
	case StepIdentity:
		return StepProfile
	case StepProfile:
		return StepExternalCustomer
	case StepExternalCustomer:
		return StepExternalWallet
	case StepExternalWallet:
		return StepUpdateProfile
	case StepUpdateProfile:
		return StepDone
	}
	return StepDone
}

// Index returns the position of s in the step order, so callers can assert
// that a transition moved forward.
func (s Step) Index() int {
	switch s {
	case StepIdentity:
		return 0
	case StepProfile:
		return 1
	case StepExternalCustomer:
		return 2
	case StepExternalWallet:
		return 3
	case StepUpdateProfile:
		return 4
	case StepDone:
		return 5
	}
	return -1
}

// WorkflowState is the payload threaded through every provisioning step.
// It is the step input/output contract, so field names are part of the
// external JSON surface.
type WorkflowState struct {
	AccountType          AccountType `json:"accountType"`
	FirstName            string      `json:"firstName"`
	FamilyName           string      `json:"familyName"`
	Email                string      `json:"email,omitempty"`
	PhoneNumber          string      `json:"phoneNumber,omitempty"`
	Address              string      `json:"address,omitempty"`
	IdentityUsername     string      `json:"identityUsername,omitempty"`
	IdentitySubjectID    string      `json:"identitySubjectId,omitempty"`
	ProfileID            string      `json:"profileId,omitempty"`
	AccountNumber        string      `json:"accountNumber,omitempty"`
	ExternalCustomerID   string      `json:"externalCustomerId,omitempty"`
	ExternalWalletID     string      `json:"externalWalletId,omitempty"`
	Step                 Step        `json:"step,omitempty"`
	ProfileAlreadyExists bool        `json:"profileAlreadyExists,omitempty"`
	CreatedAt            time.Time   `json:"createdAt,omitempty"`
}
