package summaries

import (
	"context"
	"fmt"
	"testing"
	"time"

	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSummariesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:summaries_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
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
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newSummariesService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedSummaryTransaction(t *testing.T, db *gorm.DB, txType, status string, amount float64, date time.Time) {
	t.Helper()
	err := db.Exec(`
		INSERT INTO transactions (id, transaction_number, transaction_date, transaction_type, category, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'General', ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		uuid.NewString(), "TXN"+uuid.NewString()[:13], date, txType, amount, status,
	).Error
	require.NoError(t, err)
}

func TestRecomputeDailyAggregatesCompletedOnly(t *testing.T) {
	db := setupSummariesTestDB(t)
	svc := newSummariesService(t, db)
	ctx := context.Background()

	day := time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC)
	seedSummaryTransaction(t, db, "income", "completed", 1000, day.Add(9*time.Hour))
	seedSummaryTransaction(t, db, "expense", "completed", 400, day.Add(15*time.Hour))
	seedSummaryTransaction(t, db, "income", "pending", 999, day.Add(11*time.Hour))
	seedSummaryTransaction(t, db, "income", "completed", 500, day.AddDate(0, 0, 1))

	summary, err := svc.RecomputeDaily(ctx, nil, day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(1000)))
	assert.True(t, summary.TotalExpenses.Equal(decimal.NewFromInt(400)))
	assert.True(t, summary.NetProfit.Equal(decimal.NewFromInt(600)))

	loaded, err := svc.Daily(ctx, day)
	require.NoError(t, err)
	assert.True(t, loaded.TotalIncome.Equal(decimal.NewFromInt(1000)))
}

func TestRecomputeDailyIsIdempotent(t *testing.T) {
	db := setupSummariesTestDB(t)
	svc := newSummariesService(t, db)
	ctx := context.Background()

	day := time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC)
	seedSummaryTransaction(t, db, "income", "completed", 250, day)

	_, err := svc.RecomputeDaily(ctx, nil, day)
	require.NoError(t, err)
	_, err = svc.RecomputeDaily(ctx, nil, day)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM daily_summaries`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)

	loaded, err := svc.Daily(ctx, day)
	require.NoError(t, err)
	assert.True(t, loaded.NetProfit.Equal(decimal.NewFromInt(250)))
}

func TestRecomputeMonthlySpansTheWholeMonth(t *testing.T) {
	db := setupSummariesTestDB(t)
	svc := newSummariesService(t, db)
	ctx := context.Background()

	seedSummaryTransaction(t, db, "income", "completed", 300, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC))
	seedSummaryTransaction(t, db, "expense", "completed", 120, time.Date(2026, time.August, 31, 23, 0, 0, 0, time.UTC))
	seedSummaryTransaction(t, db, "income", "completed", 777, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC))

	summary, err := svc.RecomputeMonthly(ctx, nil, 2026, time.August)
	require.NoError(t, err)
	assert.Equal(t, 2026, summary.Year)
	assert.Equal(t, 8, summary.Month)
	assert.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(300)))
	assert.True(t, summary.TotalExpenses.Equal(decimal.NewFromInt(120)))
	assert.True(t, summary.NetProfit.Equal(decimal.NewFromInt(180)))

	loaded, err := svc.Monthly(ctx, 2026, time.August)
	require.NoError(t, err)
	assert.True(t, loaded.TotalIncome.Equal(decimal.NewFromInt(300)))
}

func TestRecomputePeriodValidation(t *testing.T) {
	db := setupSummariesTestDB(t)
	svc := newSummariesService(t, db)
	ctx := context.Background()

	_, err := svc.RecomputeDaily(ctx, nil, time.Time{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.RecomputeMonthly(ctx, nil, 2026, time.Month(13))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestMissingSummariesReportNotFound(t *testing.T) {
	db := setupSummariesTestDB(t)
	svc := newSummariesService(t, db)
	ctx := context.Background()

	_, err := svc.Daily(ctx, time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Monthly(ctx, 2026, time.July)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
