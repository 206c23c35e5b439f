package payments

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/internal/sequence"
	"github.com/artvpp/books-backend/pkg/config"
	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testTxRunner struct {
	db *gorm.DB
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:payments_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{`
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  invoice_number TEXT NOT NULL UNIQUE,
  invoice_date DATETIME NOT NULL,
  due_date DATETIME NOT NULL,
  invoice_type TEXT NOT NULL,
  customer_id TEXT,
  vendor_id TEXT,
  subtotal NUMERIC NOT NULL DEFAULT 0,
  tax_rate NUMERIC NOT NULL DEFAULT 0,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  paid_amount NUMERIC NOT NULL DEFAULT 0,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  notes TEXT NOT NULL DEFAULT '',
  created_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS invoice_items (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  item_name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  quantity NUMERIC NOT NULL,
  unit_price NUMERIC NOT NULL,
  amount NUMERIC NOT NULL,
  tax_rate NUMERIC NOT NULL DEFAULT 0,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  payment_number TEXT NOT NULL UNIQUE,
  invoice_id TEXT NOT NULL,
  payment_date DATETIME NOT NULL,
  amount NUMERIC NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'bank_transfer',
  reference_number TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  created_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL,
  account_name TEXT NOT NULL,
  debit NUMERIC NOT NULL DEFAULT 0,
  credit NUMERIC NOT NULL DEFAULT 0,
  entry_date DATETIME NOT NULL,
  balance NUMERIC NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sequence_counters (
  scope TEXT NOT NULL,
  period_key TEXT NOT NULL,
  next_value INTEGER NOT NULL,
  updated_at DATETIME,
  PRIMARY KEY (scope, period_key)
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type paymentsHarness struct {
	db       *gorm.DB
	svc      Service
	invoices invoices.Repository
	ledger   ledger.Service
}

func newPaymentsHarness(t *testing.T) *paymentsHarness {
	t.Helper()

	db := setupPaymentsTestDB(t)
	books := config.BooksConfig{
		InvoiceDueDays:    30,
		SalesPrefix:       "INV",
		PurchasePrefix:    "PUR",
		PaymentPrefix:     "PAY",
		TransactionPrefix: "TXN",
	}

	sequences, err := sequence.NewService(sequence.NewRepository(db), books)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)

	invoiceRepo := invoices.NewRepository(db)
	svc, err := NewService(NewRepository(db), invoiceRepo, &testTxRunner{db: db}, ledgerSvc, sequences)
	require.NoError(t, err)

	return &paymentsHarness{db: db, svc: svc, invoices: invoiceRepo, ledger: ledgerSvc}
}

func (h *paymentsHarness) newInvoice(t *testing.T, invoiceType enums.InvoiceType, total int64) *models.Invoice {
	t.Helper()

	amount := decimal.NewFromInt(total)
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "TEST" + uuid.NewString()[:8],
		InvoiceDate:   time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
		InvoiceType:   invoiceType,
		Subtotal:      amount,
		TotalAmount:   amount,
		PaidAmount:    decimal.Zero,
		PaymentStatus: enums.PaymentStatusUnpaid,
	}
	require.NoError(t, h.invoices.Create(context.Background(), invoice))
	return invoice
}

func (h *paymentsHarness) reload(t *testing.T, id uuid.UUID) *models.Invoice {
	t.Helper()
	invoice, err := h.invoices.FindByID(context.Background(), id)
	require.NoError(t, err)
	return invoice
}

func TestRecordPaymentWalk(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	invoice := h.newInvoice(t, enums.InvoiceTypeSales, 295)

	first, err := h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Date:      time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.NewFromInt(100),
		Method:    enums.PaymentMethodUPI,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.PaymentNumber, "PAY202608"), "number = %s", first.PaymentNumber)

	loaded := h.reload(t, invoice.ID)
	assert.True(t, loaded.PaidAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, enums.PaymentStatusPartial, loaded.PaymentStatus)

	// Exceeding the remaining 195 must be rejected without side effects.
	_, err = h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(200),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Contains(t, pkgerrors.As(err).Message(), "exceeds invoice total")

	loaded = h.reload(t, invoice.ID)
	assert.True(t, loaded.PaidAmount.Equal(decimal.NewFromInt(100)))

	_, err = h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(195),
	})
	require.NoError(t, err)

	loaded = h.reload(t, invoice.ID)
	assert.True(t, loaded.PaidAmount.Equal(decimal.NewFromInt(295)))
	assert.Equal(t, enums.PaymentStatusPaid, loaded.PaymentStatus)
}

func TestRecordPaymentPostsBalancedPair(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	invoice := h.newInvoice(t, enums.InvoiceTypeSales, 500)

	payment, err := h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	entries, err := h.ledger.EntriesForTransaction(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var debits, credits decimal.Decimal
	for _, entry := range entries {
		debits = debits.Add(entry.Debit)
		credits = credits.Add(entry.Credit)
	}
	assert.True(t, debits.Equal(credits), "debits %s != credits %s", debits, credits)

	bank, err := h.ledger.AccountBalance(ctx, enums.LedgerAccountBank)
	require.NoError(t, err)
	assert.True(t, bank.Equal(decimal.NewFromInt(500)), "bank balance = %s", bank)

	receivable, err := h.ledger.AccountBalance(ctx, enums.LedgerAccountAccountsReceivable)
	require.NoError(t, err)
	assert.True(t, receivable.Equal(decimal.NewFromInt(-500)), "receivable balance = %s", receivable)
}

func TestPurchasePaymentAccounts(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	invoice := h.newInvoice(t, enums.InvoiceTypePurchase, 300)

	payment, err := h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	entries, err := h.ledger.EntriesForTransaction(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byAccount := map[enums.LedgerAccount]models.LedgerEntry{}
	for _, entry := range entries {
		byAccount[entry.AccountName] = entry
	}
	require.Contains(t, byAccount, enums.LedgerAccountAccountsPayable)
	require.Contains(t, byAccount, enums.LedgerAccountBank)
	assert.True(t, byAccount[enums.LedgerAccountAccountsPayable].Debit.Equal(decimal.NewFromInt(300)))
	assert.True(t, byAccount[enums.LedgerAccountBank].Credit.Equal(decimal.NewFromInt(300)))
}

func TestUpdatePaymentAdjustsInvoice(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	invoice := h.newInvoice(t, enums.InvoiceTypeSales, 295)

	payment, err := h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	bigger := decimal.NewFromInt(150)
	_, err = h.svc.Update(ctx, payment.ID, UpdatePaymentInput{Amount: &bigger})
	require.NoError(t, err)

	loaded := h.reload(t, invoice.ID)
	assert.True(t, loaded.PaidAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, enums.PaymentStatusPartial, loaded.PaymentStatus)

	// Shrinking also works, through an offsetting ledger pair.
	smaller := decimal.NewFromInt(50)
	_, err = h.svc.Update(ctx, payment.ID, UpdatePaymentInput{Amount: &smaller})
	require.NoError(t, err)

	loaded = h.reload(t, invoice.ID)
	assert.True(t, loaded.PaidAmount.Equal(decimal.NewFromInt(50)))

	bank, err := h.ledger.AccountBalance(ctx, enums.LedgerAccountBank)
	require.NoError(t, err)
	assert.True(t, bank.Equal(decimal.NewFromInt(50)), "bank balance = %s", bank)

	tooMuch := decimal.NewFromInt(400)
	_, err = h.svc.Update(ctx, payment.ID, UpdatePaymentInput{Amount: &tooMuch})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdatePaymentPostsAdjustmentAtNewDate(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	invoice := h.newInvoice(t, enums.InvoiceTypeSales, 295)

	recorded := time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)
	moved := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	payment, err := h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Date:      recorded,
		Amount:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	bigger := decimal.NewFromInt(150)
	updated, err := h.svc.Update(ctx, payment.ID, UpdatePaymentInput{Amount: &bigger, Date: &moved})
	require.NoError(t, err)
	assert.Equal(t, moved, updated.PaymentDate)

	entries, err := h.ledger.EntriesForTransaction(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	onMoved := 0
	for _, entry := range entries {
		if entry.EntryDate.Equal(moved) {
			onMoved++
		}
	}
	assert.Equal(t, 2, onMoved, "the adjustment pair belongs to the edited date")
}

func TestDeletePaymentRevertsInvoiceAndLedger(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()
	invoice := h.newInvoice(t, enums.InvoiceTypeSales, 295)

	payment, err := h.svc.Record(ctx, RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(295),
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, h.reload(t, invoice.ID).PaymentStatus)

	require.NoError(t, h.svc.Delete(ctx, payment.ID))

	loaded := h.reload(t, invoice.ID)
	assert.True(t, loaded.PaidAmount.IsZero())
	assert.Equal(t, enums.PaymentStatusUnpaid, loaded.PaymentStatus)

	_, err = h.svc.Get(ctx, payment.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	// The original pair stays; a reversal pair offsets it.
	entries, err := h.ledger.EntriesForTransaction(ctx, payment.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	bank, err := h.ledger.AccountBalance(ctx, enums.LedgerAccountBank)
	require.NoError(t, err)
	assert.True(t, bank.IsZero(), "bank balance = %s", bank)
}

func TestRecordPaymentValidation(t *testing.T) {
	h := newPaymentsHarness(t)
	ctx := context.Background()

	_, err := h.svc.Record(ctx, RecordPaymentInput{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	invoice := h.newInvoice(t, enums.InvoiceTypeSales, 100)
	_, err = h.svc.Record(ctx, RecordPaymentInput{InvoiceID: invoice.ID, Amount: decimal.Zero})
	require.Error(t, err)

	_, err = h.svc.Record(ctx, RecordPaymentInput{InvoiceID: uuid.New(), Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
