package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to InvoiceStatus
		ok       bool
	}{
		{InvoiceStatusDraft, InvoiceStatusSent, true},
		{InvoiceStatusDraft, InvoiceStatusCancelled, true},
		{InvoiceStatusSent, InvoiceStatusCancelled, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},
		{InvoiceStatusDraft, InvoiceStatusPartial, false},
		{InvoiceStatusSent, InvoiceStatusDraft, false},
		{InvoiceStatusSent, InvoiceStatusOverdue, false},
		{InvoiceStatusPaid, InvoiceStatusCancelled, false},
		{InvoiceStatusCancelled, InvoiceStatusDraft, false},
		{InvoiceStatusOverdue, InvoiceStatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range []PaymentMethod{
		PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodUPI, PaymentMethodCheque,
	} {
		assert.True(t, ValidPaymentMethod(m), string(m))
	}
	assert.False(t, ValidPaymentMethod("Barter"))
	assert.False(t, ValidPaymentMethod("cash"))
	assert.False(t, ValidPaymentMethod(""))
}
