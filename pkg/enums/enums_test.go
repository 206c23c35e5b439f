package enums

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatusFor(t *testing.T) {
	cases := []struct {
		name  string
		paid  int64
		total int64
		want  PaymentStatus
	}{
		{"nothing paid", 0, 295, PaymentStatusUnpaid},
		{"partially paid", 100, 295, PaymentStatusPartial},
		{"fully paid", 295, 295, PaymentStatusPaid},
		{"overpaid still reads paid", 300, 295, PaymentStatusPaid},
		{"zero total never reads paid", 0, 0, PaymentStatusUnpaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PaymentStatusFor(decimal.NewFromInt(tc.paid), decimal.NewFromInt(tc.total))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLedgerAccountNamespace(t *testing.T) {
	assert.True(t, LedgerAccountBank.IsValid())
	assert.True(t, LedgerAccountAccountsReceivable.IsValid())
	assert.True(t, LedgerAccountAccountsPayable.IsValid())

	assert.Equal(t, LedgerAccount("Revenue - Sales"), RevenueAccount(" Sales "))
	assert.Equal(t, LedgerAccount("Expense - Utilities"), ExpenseAccount("Utilities"))
	assert.True(t, RevenueAccount("Sales").IsValid())
	assert.True(t, ExpenseAccount("Rent").IsValid())

	// A bare prefix names no category and is not an account.
	assert.False(t, LedgerAccount("Revenue - ").IsValid())
	assert.False(t, LedgerAccount("Slush Fund").IsValid())

	account, err := ParseLedgerAccount("  Bank Account ")
	require.NoError(t, err)
	assert.Equal(t, LedgerAccountBank, account)

	_, err = ParseLedgerAccount("Petty Cash")
	require.Error(t, err)
}

func TestParsersRejectUnknownValues(t *testing.T) {
	invoiceType, err := ParseInvoiceType("sales")
	require.NoError(t, err)
	assert.Equal(t, InvoiceTypeSales, invoiceType)
	_, err = ParseInvoiceType("loan")
	require.Error(t, err)

	method, err := ParsePaymentMethod("bank_transfer")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodBankTransfer, method)
	_, err = ParsePaymentMethod("barter")
	require.Error(t, err)

	status, err := ParsePaymentStatus("partial")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPartial, status)
	_, err = ParsePaymentStatus("halfway")
	require.Error(t, err)

	txType, err := ParseTransactionType("expense")
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeExpense, txType)
	_, err = ParseTransactionType("refund")
	require.Error(t, err)
}

func TestTransactionStatusMutability(t *testing.T) {
	assert.True(t, TransactionStatusPending.Mutable())
	assert.False(t, TransactionStatusCompleted.Mutable())

	status, err := ParseTransactionStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusCompleted, status)
	_, err = ParseTransactionStatus("void")
	require.Error(t, err)
}
