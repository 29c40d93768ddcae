package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepOrder(t *testing.T) {
	order := []Step{StepIdentity, StepProfile, StepExternalCustomer, StepExternalWallet, StepUpdateProfile, StepDone}
	for i, s := range order {
		assert.Equal(t, i, s.Index())
		if i < len(order)-1 {
			assert.Equal(t, order[i+1], s.Next())
		}
	}
	assert.Equal(t, StepDone, StepDone.Next())
	assert.Equal(t, -1, Step("").Index())
	assert.Equal(t, -1, Step("bogus").Index())
}

func TestAccountType(t *testing.T) {
	assert.True(t, AccountTypePayer.Valid())
	assert.True(t, AccountTypeBeneficiary.Valid())
	assert.True(t, AccountTypeOperator.Valid())
	assert.False(t, AccountType("merchant").Valid())
	assert.False(t, AccountType("").Valid())

	assert.Equal(t, "payers", AccountTypePayer.IdentityGroup())
	assert.Equal(t, "beneficiaries", AccountTypeBeneficiary.IdentityGroup())
}

func TestFormatAccountNumber(t *testing.T) {
	assert.Equal(t, "PAY00000001", FormatAccountNumber(AccountTypePayer, 1))
	assert.Equal(t, "BEN00000042", FormatAccountNumber(AccountTypeBeneficiary, 42))
	assert.Equal(t, "OPR00000007", FormatAccountNumber(AccountTypeOperator, 7))
	assert.Equal(t, "BEN123456789", FormatAccountNumber(AccountTypeBeneficiary, 123456789))
}
