package summaries

import (
	"context"
	"fmt"
	"time"

	"github.com/artvpp/books-backend/pkg/db/models"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service maintains the daily and monthly rollups of completed
// transactions. Recomputes are full aggregates, so re-running one for an
// unchanged period writes an identical row.
type Service interface {
	RecomputeDaily(ctx context.Context, tx *gorm.DB, date time.Time) (*models.DailySummary, error)
	RecomputeMonthly(ctx context.Context, tx *gorm.DB, year int, month time.Month) (*models.MonthlySummary, error)
	Daily(ctx context.Context, date time.Time) (*models.DailySummary, error)
	Monthly(ctx context.Context, year int, month time.Month) (*models.MonthlySummary, error)
}

type service struct {
	repo Repository
}

// NewService wires a summaries service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("summaries repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecomputeDaily(ctx context.Context, tx *gorm.DB, date time.Time) (*models.DailySummary, error) {
	if date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "summary date is required")
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	day := truncateToDay(date)
	totals, err := repo.AggregateRange(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregating daily totals")
	}

	summary := &models.DailySummary{
		ID:            uuid.New(),
		SummaryDate:   day,
		TotalIncome:   totals.Income,
		TotalExpenses: totals.Expenses,
		NetProfit:     totals.Income.Sub(totals.Expenses),
	}
	if err := repo.UpsertDaily(ctx, summary); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting daily summary")
	}
	return summary, nil
}

func (s *service) RecomputeMonthly(ctx context.Context, tx *gorm.DB, year int, month time.Month) (*models.MonthlySummary, error) {
	if year <= 0 || month < time.January || month > time.December {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid summary period %d-%d", year, month))
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	totals, err := repo.AggregateRange(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregating monthly totals")
	}

	summary := &models.MonthlySummary{
		ID:            uuid.New(),
		Year:          year,
		Month:         int(month),
		TotalIncome:   totals.Income,
		TotalExpenses: totals.Expenses,
		NetProfit:     totals.Income.Sub(totals.Expenses),
	}
	if err := repo.UpsertMonthly(ctx, summary); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting monthly summary")
	}
	return summary, nil
}

func (s *service) Daily(ctx context.Context, date time.Time) (*models.DailySummary, error) {
	summary, err := s.repo.GetDaily(ctx, truncateToDay(date))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading daily summary")
	}
	if summary == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "daily summary not found")
	}
	return summary, nil
}

func (s *service) Monthly(ctx context.Context, year int, month time.Month) (*models.MonthlySummary, error) {
	summary, err := s.repo.GetMonthly(ctx, year, int(month))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading monthly summary")
	}
	if summary == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "monthly summary not found")
	}
	return summary, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
