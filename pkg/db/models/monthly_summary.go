package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlySummary is the per-(year, month) counterpart of DailySummary.
type MonthlySummary struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Year          int             `gorm:"column:year;not null;uniqueIndex:idx_monthly_summary_period"`
	Month         int             `gorm:"column:month;not null;uniqueIndex:idx_monthly_summary_period"`
	TotalIncome   decimal.Decimal `gorm:"column:total_income;type:numeric(14,2);not null;default:0"`
	TotalExpenses decimal.Decimal `gorm:"column:total_expenses;type:numeric(14,2);not null;default:0"`
	NetProfit     decimal.Decimal `gorm:"column:net_profit;type:numeric(14,2);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
