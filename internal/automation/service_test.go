package automation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/artvpp/books-backend/internal/finconfig"
	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/internal/parties"
	"github.com/artvpp/books-backend/internal/payments"
	"github.com/artvpp/books-backend/internal/sequence"
	"github.com/artvpp/books-backend/internal/summaries"
	"github.com/artvpp/books-backend/internal/transactions"
	"github.com/artvpp/books-backend/pkg/config"
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

func setupAutomationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:automation_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{`
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  pincode TEXT NOT NULL DEFAULT '',
  gst_number TEXT NOT NULL DEFAULT '',
  pan_number TEXT NOT NULL DEFAULT '',
  credit_limit NUMERIC NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  transaction_number TEXT NOT NULL UNIQUE,
  transaction_date DATETIME NOT NULL,
  transaction_type TEXT NOT NULL,
  category TEXT NOT NULL,
  subcategory TEXT NOT NULL DEFAULT '',
  amount NUMERIC NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'bank_transfer',
  description TEXT NOT NULL DEFAULT '',
  customer_id TEXT,
  vendor_id TEXT,
  invoice_id TEXT,
  reference_number TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
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
CREATE TABLE IF NOT EXISTS daily_summaries (
  id TEXT PRIMARY KEY,
  summary_date DATETIME NOT NULL UNIQUE,
  total_income NUMERIC NOT NULL DEFAULT 0,
  total_expenses NUMERIC NOT NULL DEFAULT 0,
  net_profit NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS monthly_summaries (
  id TEXT PRIMARY KEY,
  year INTEGER NOT NULL,
  month INTEGER NOT NULL,
  total_income NUMERIC NOT NULL DEFAULT 0,
  total_expenses NUMERIC NOT NULL DEFAULT 0,
  net_profit NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME,
  UNIQUE (year, month)
);`, `
CREATE TABLE IF NOT EXISTS sequence_counters (
  scope TEXT NOT NULL,
  period_key TEXT NOT NULL,
  next_value INTEGER NOT NULL,
  updated_at DATETIME,
  PRIMARY KEY (scope, period_key)
);`, `
CREATE TABLE IF NOT EXISTS financial_configs (
  id TEXT PRIMARY KEY,
  config_key TEXT NOT NULL UNIQUE,
  config_value TEXT NOT NULL,
  data_type TEXT NOT NULL DEFAULT 'string',
  description TEXT NOT NULL DEFAULT '',
  updated_at DATETIME
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type automationHarness struct {
	db     *gorm.DB
	svc    Service
	ledger ledger.Service
}

func newAutomationHarness(t *testing.T) *automationHarness {
	t.Helper()

	db := setupAutomationTestDB(t)
	runner := &testTxRunner{db: db}
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
	summariesSvc, err := summaries.NewService(summaries.NewRepository(db))
	require.NoError(t, err)
	partiesSvc, err := parties.NewService(parties.NewRepository(db))
	require.NoError(t, err)

	invoiceRepo := invoices.NewRepository(db)
	invoicesSvc, err := invoices.NewService(invoiceRepo, runner, sequences, books)
	require.NoError(t, err)
	paymentsSvc, err := payments.NewService(payments.NewRepository(db), invoiceRepo, runner, ledgerSvc, sequences)
	require.NoError(t, err)
	transactionsSvc, err := transactions.NewService(transactions.NewRepository(db), runner, ledgerSvc, sequences, summariesSvc)
	require.NoError(t, err)
	settings, err := finconfig.NewService(finconfig.NewRepository(db))
	require.NoError(t, err)

	_, err = settings.Set(context.Background(), finconfig.KeyDefaultTaxRate, "18", "number", "")
	require.NoError(t, err)
	_, err = settings.Set(context.Background(), finconfig.KeyCurrency, "INR", "string", "")
	require.NoError(t, err)

	svc, err := NewService(runner, partiesSvc, invoicesSvc, paymentsSvc, transactionsSvc, settings)
	require.NoError(t, err)

	return &automationHarness{db: db, svc: svc, ledger: ledgerSvc}
}

func orderInput() OrderInput {
	return OrderInput{
		OrderReference: "ORD-4411",
		CustomerName:   "Ravi Kumar",
		CustomerEmail:  "Ravi.Kumar@Example.com",
		CustomerPhone:  "9876543210",
		PlacedAt:       time.Date(2026, 8, 12, 10, 30, 0, 0, time.UTC),
		Items: []invoices.ItemInput{
			{Name: "Field Guide to Rivers", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
			{Name: "City Atlas", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		},
	}
}

func TestCreateSalesInvoiceForOrder(t *testing.T) {
	h := newAutomationHarness(t)
	ctx := context.Background()

	result, err := h.svc.CreateSalesInvoiceForOrder(ctx, orderInput())
	require.NoError(t, err)

	require.NotNil(t, result.Customer)
	assert.Equal(t, "ravi.kumar@example.com", result.Customer.Email)

	require.NotNil(t, result.Invoice)
	assert.Equal(t, enums.InvoiceTypeSales, result.Invoice.InvoiceType)
	assert.True(t, result.Invoice.Subtotal.Equal(decimal.NewFromInt(250)))
	assert.True(t, result.Invoice.TotalAmount.Equal(decimal.NewFromInt(295)), "total = %s", result.Invoice.TotalAmount)
	require.NotNil(t, result.Invoice.CustomerID)
	assert.Equal(t, result.Customer.ID, *result.Invoice.CustomerID)
	assert.Contains(t, result.Invoice.Notes, "ORD-4411")

	require.NotNil(t, result.Transaction)
	assert.Equal(t, enums.TransactionStatusCompleted, result.Transaction.Status)
	assert.Equal(t, enums.PaymentMethodOrderPayment, result.Transaction.PaymentMethod)
	assert.True(t, result.Transaction.Amount.Equal(result.Invoice.TotalAmount))

	// Revenue posts to the ledger as part of the same booking.
	balance, err := h.ledger.AccountBalance(ctx, enums.LedgerAccountBank)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(295)))
}

func TestRepeatOrdersReuseCustomer(t *testing.T) {
	h := newAutomationHarness(t)
	ctx := context.Background()

	first, err := h.svc.CreateSalesInvoiceForOrder(ctx, orderInput())
	require.NoError(t, err)

	again := orderInput()
	again.OrderReference = "ORD-4412"
	again.CustomerName = "R. Kumar"
	second, err := h.svc.CreateSalesInvoiceForOrder(ctx, again)
	require.NoError(t, err)

	assert.Equal(t, first.Customer.ID, second.Customer.ID)
	assert.NotEqual(t, first.Invoice.InvoiceNumber, second.Invoice.InvoiceNumber)

	var count int64
	require.NoError(t, h.db.Raw("SELECT COUNT(*) FROM customers").Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOrderValidation(t *testing.T) {
	h := newAutomationHarness(t)
	ctx := context.Background()

	noEmail := orderInput()
	noEmail.CustomerEmail = "  "
	_, err := h.svc.CreateSalesInvoiceForOrder(ctx, noEmail)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	noItems := orderInput()
	noItems.Items = nil
	_, err = h.svc.CreateSalesInvoiceForOrder(ctx, noItems)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	// Nothing is half-booked after a rejected order.
	var invoiceCount int64
	require.NoError(t, h.db.Raw("SELECT COUNT(*) FROM invoices").Scan(&invoiceCount).Error)
	assert.Equal(t, int64(0), invoiceCount)
}

func TestReconcileOrderPaymentDefaultsMethod(t *testing.T) {
	h := newAutomationHarness(t)
	ctx := context.Background()

	result, err := h.svc.CreateSalesInvoiceForOrder(ctx, orderInput())
	require.NoError(t, err)

	payment, err := h.svc.ReconcileOrderPayment(ctx, payments.RecordPaymentInput{
		InvoiceID: result.Invoice.ID,
		Date:      time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC),
		Amount:    result.Invoice.TotalAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodOrderPayment, payment.PaymentMethod)

	var status string
	require.NoError(t, h.db.Raw("SELECT payment_status FROM invoices WHERE id = ?", result.Invoice.ID).Scan(&status).Error)
	assert.Equal(t, string(enums.PaymentStatusPaid), status)
}
