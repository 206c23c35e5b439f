package finconfig

import (
	"context"
	"fmt"
	"testing"

	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFinconfigTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:finconfig_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS financial_configs (
  id TEXT PRIMARY KEY,
  config_key TEXT NOT NULL UNIQUE,
  config_value TEXT NOT NULL,
  data_type TEXT NOT NULL DEFAULT 'string',
  description TEXT NOT NULL DEFAULT '',
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newFinconfigService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestSetThenGetRoundTrip(t *testing.T) {
	db := setupFinconfigTestDB(t)
	svc := newFinconfigService(t, db)
	ctx := context.Background()

	created, err := svc.Set(ctx, "fiscal_year_start", "04-01", "string", "First day of the fiscal year")
	require.NoError(t, err)
	assert.Equal(t, "string", created.DataType)

	loaded, err := svc.Get(ctx, "fiscal_year_start")
	require.NoError(t, err)
	assert.Equal(t, "04-01", loaded.ConfigValue)
	assert.Equal(t, "First day of the fiscal year", loaded.Description)
}

func TestSetUpsertsExistingKey(t *testing.T) {
	db := setupFinconfigTestDB(t)
	svc := newFinconfigService(t, db)
	ctx := context.Background()

	_, err := svc.Set(ctx, KeyCurrency, "INR", "string", "Reporting currency")
	require.NoError(t, err)
	_, err = svc.Set(ctx, KeyCurrency, "USD", "string", "")
	require.NoError(t, err)

	currency, err := svc.Currency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM financial_configs WHERE config_key = ?", KeyCurrency).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSetRejectsNonNumericNumberValue(t *testing.T) {
	db := setupFinconfigTestDB(t)
	svc := newFinconfigService(t, db)
	ctx := context.Background()

	_, err := svc.Set(ctx, KeyDefaultTaxRate, "eighteen", "number", "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Set(ctx, KeyDefaultTaxRate, "18", "number", "GST rate applied when an invoice has none")
	require.NoError(t, err)

	rate, err := svc.DefaultTaxRate(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(18)))
}

func TestGetUnknownKey(t *testing.T) {
	db := setupFinconfigTestDB(t)
	svc := newFinconfigService(t, db)

	_, err := svc.Get(context.Background(), "no_such_key")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Get(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListOrdersByKey(t *testing.T) {
	db := setupFinconfigTestDB(t)
	svc := newFinconfigService(t, db)
	ctx := context.Background()

	_, err := svc.Set(ctx, "zeta", "1", "", "")
	require.NoError(t, err)
	_, err = svc.Set(ctx, "alpha", "2", "", "")
	require.NoError(t, err)

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha", rows[0].ConfigKey)
	assert.Equal(t, "zeta", rows[1].ConfigKey)

	// Empty data type defaults to string.
	assert.Equal(t, "string", rows[0].DataType)
}
