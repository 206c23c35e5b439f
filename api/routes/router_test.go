package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/artvpp/books-backend/internal/automation"
	"github.com/artvpp/books-backend/internal/finconfig"
	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/internal/parties"
	"github.com/artvpp/books-backend/internal/payments"
	"github.com/artvpp/books-backend/internal/reports"
	"github.com/artvpp/books-backend/internal/sequence"
	"github.com/artvpp/books-backend/internal/summaries"
	"github.com/artvpp/books-backend/internal/transactions"
	"github.com/artvpp/books-backend/pkg/config"
	"github.com/artvpp/books-backend/pkg/logger"
	"github.com/artvpp/books-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type testTxRunner struct {
	db *gorm.DB
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

var routerDDL = []string{`
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
CREATE TABLE IF NOT EXISTS vendors (
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

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		Books: config.BooksConfig{
			InvoiceDueDays:    30,
			SalesPrefix:       "INV",
			PurchasePrefix:    "PUR",
			PaymentPrefix:     "PAY",
			TransactionPrefix: "TXN",
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dsn := fmt.Sprintf("file:routes_%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range routerDDL {
		require.NoError(t, gormDB.Exec(stmt).Error)
	}

	cfg := testConfig()
	runner := &testTxRunner{db: gormDB}
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	sequences, err := sequence.NewService(sequence.NewRepository(gormDB), cfg.Books)
	require.NoError(t, err)
	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	require.NoError(t, err)
	summaryService, err := summaries.NewService(summaries.NewRepository(gormDB))
	require.NoError(t, err)
	partyService, err := parties.NewService(parties.NewRepository(gormDB))
	require.NoError(t, err)

	invoiceRepo := invoices.NewRepository(gormDB)
	invoiceService, err := invoices.NewService(invoiceRepo, runner, sequences, cfg.Books)
	require.NoError(t, err)
	paymentService, err := payments.NewService(payments.NewRepository(gormDB), invoiceRepo, runner, ledgerService, sequences)
	require.NoError(t, err)
	transactionService, err := transactions.NewService(transactions.NewRepository(gormDB), runner, ledgerService, sequences, summaryService)
	require.NoError(t, err)
	reportService, err := reports.NewService(reports.NewRepository(gormDB), parties.NewRepository(gormDB))
	require.NoError(t, err)
	configService, err := finconfig.NewService(finconfig.NewRepository(gormDB))
	require.NoError(t, err)

	_, err = configService.Set(context.Background(), finconfig.KeyDefaultTaxRate, "18", "number", "")
	require.NoError(t, err)

	automationService, err := automation.NewService(runner, partyService, invoiceService, paymentService, transactionService, configService)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		registry,
		httpMetrics,
		invoiceService,
		paymentService,
		transactionService,
		partyService,
		ledgerService,
		summaryService,
		reportService,
		configService,
		automationService,
	)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	live := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, live)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-ArtVpp-Env"))

	ready := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, ready)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCreateCustomerOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	body := `{"name":"Meera Books","email":"meera@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/books/v1/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), "meera@example.com")
}

func TestCreateInvoiceOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	// A customer must exist before a sales invoice can reference it.
	customerBody := `{"name":"Ravi Kumar","email":"ravi@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/books/v1/customers", strings.NewReader(customerBody))
	req.Header.Set("Content-Type", "application/json")
	created := httptest.NewRecorder()
	router.ServeHTTP(created, req)
	require.Equal(t, http.StatusCreated, created.Code)

	var envelope struct {
		Data struct {
			ID uuid.UUID `json:"ID"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &envelope))

	invoiceBody := fmt.Sprintf(`{
		"invoice_type": "sales",
		"invoice_date": "2026-08-12",
		"customer_id": %q,
		"tax_rate": "18",
		"items": [
			{"name": "Field Guide to Rivers", "quantity": "2", "unit_price": "100"}
		]
	}`, envelope.Data.ID)
	req = httptest.NewRequest(http.MethodPost, "/api/books/v1/invoices", strings.NewReader(invoiceBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, "body: %s", resp.Body.String())
	assert.Contains(t, resp.Body.String(), "INV2026")
}

func TestInvoiceValidationOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/books/v1/invoices", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	unknownInvoice := httptest.NewRequest(http.MethodGet, "/api/books/v1/invoices/"+uuid.NewString(), nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, unknownInvoice)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLedgerBalanceOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/books/v1/ledger/accounts/Bank%20Account/balance", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Bank Account")

	bad := httptest.NewRequest(http.MethodGet, "/api/books/v1/ledger/accounts/Slush%20Fund/balance", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, bad)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSummariesRequireDateParams(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/books/v1/summaries/daily", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// A well-formed date passes validation; an empty book has no summary yet.
	req = httptest.NewRequest(http.MethodGet, "/api/books/v1/summaries/daily?date=2026-08-12", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPlaceOrderOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"order_reference": "ORD-9001",
		"customer_name": "Asha",
		"customer_email": "asha@example.com",
		"items": [
			{"name": "City Atlas", "quantity": "1", "unit_price": "50"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/books/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, "body: %s", resp.Body.String())
	assert.Contains(t, resp.Body.String(), "ORD-9001")
}
