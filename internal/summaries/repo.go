package summaries

import (
	"context"
	"time"

	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals holds the aggregate of completed transactions over a period.
type Totals struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// Repository aggregates completed transactions and upserts summary rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AggregateRange(ctx context.Context, from, to time.Time) (Totals, error)
	UpsertDaily(ctx context.Context, summary *models.DailySummary) error
	UpsertMonthly(ctx context.Context, summary *models.MonthlySummary) error
	GetDaily(ctx context.Context, date time.Time) (*models.DailySummary, error)
	GetMonthly(ctx context.Context, year, month int) (*models.MonthlySummary, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a summaries repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AggregateRange sums completed transactions with from <= date < to.
func (r *repository) AggregateRange(ctx context.Context, from, to time.Time) (Totals, error) {
	var row struct {
		Income   decimal.Decimal
		Expenses decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN transaction_type = ? THEN amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN transaction_type = ? THEN amount ELSE 0 END), 0) AS expenses
		FROM transactions
		WHERE status = ? AND transaction_date >= ? AND transaction_date < ?`,
		enums.TransactionTypeIncome, enums.TransactionTypeExpense,
		enums.TransactionStatusCompleted, from, to,
	).Scan(&row).Error
	if err != nil {
		return Totals{}, err
	}
	return Totals{Income: row.Income, Expenses: row.Expenses}, nil
}

func (r *repository) UpsertDaily(ctx context.Context, summary *models.DailySummary) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO daily_summaries (id, summary_date, total_income, total_expenses, net_profit, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (summary_date)
		DO UPDATE SET total_income = ?, total_expenses = ?, net_profit = ?, updated_at = CURRENT_TIMESTAMP`,
		summary.ID, summary.SummaryDate, summary.TotalIncome, summary.TotalExpenses, summary.NetProfit,
		summary.TotalIncome, summary.TotalExpenses, summary.NetProfit,
	).Error
}

func (r *repository) UpsertMonthly(ctx context.Context, summary *models.MonthlySummary) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO monthly_summaries (id, year, month, total_income, total_expenses, net_profit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (year, month)
		DO UPDATE SET total_income = ?, total_expenses = ?, net_profit = ?, updated_at = CURRENT_TIMESTAMP`,
		summary.ID, summary.Year, summary.Month, summary.TotalIncome, summary.TotalExpenses, summary.NetProfit,
		summary.TotalIncome, summary.TotalExpenses, summary.NetProfit,
	).Error
}

func (r *repository) GetDaily(ctx context.Context, date time.Time) (*models.DailySummary, error) {
	var summary models.DailySummary
	err := r.db.WithContext(ctx).Where("summary_date = ?", date).First(&summary).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

func (r *repository) GetMonthly(ctx context.Context, year, month int) (*models.MonthlySummary, error) {
	var summary models.MonthlySummary
	err := r.db.WithContext(ctx).Where("year = ? AND month = ?", year, month).First(&summary).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}
