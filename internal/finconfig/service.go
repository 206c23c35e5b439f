package finconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/artvpp/books-backend/pkg/db/models"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Well-known configuration keys seeded by migration.
const (
	KeyDefaultTaxRate = "default_tax_rate"
	KeyCurrency       = "currency"
)

// Service reads and writes the key-value financial settings.
type Service interface {
	Get(ctx context.Context, key string) (*models.FinancialConfig, error)
	List(ctx context.Context) ([]models.FinancialConfig, error)
	Set(ctx context.Context, key, value, dataType, description string) (*models.FinancialConfig, error)
	DefaultTaxRate(ctx context.Context) (decimal.Decimal, error)
	Currency(ctx context.Context) (string, error)
}

type service struct {
	repo Repository
}

// NewService wires a finconfig service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("finconfig repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, key string) (*models.FinancialConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config key is required")
	}
	row, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading financial config")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("config key %q not found", key))
	}
	return row, nil
}

func (s *service) List(ctx context.Context) ([]models.FinancialConfig, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing financial config")
	}
	return rows, nil
}

func (s *service) Set(ctx context.Context, key, value, dataType, description string) (*models.FinancialConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config key is required")
	}
	if dataType == "" {
		dataType = "string"
	}
	if dataType == "number" {
		if _, err := decimal.NewFromString(value); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("config value %q is not numeric", value))
		}
	}

	row := &models.FinancialConfig{
		ID:          uuid.New(),
		ConfigKey:   key,
		ConfigValue: value,
		DataType:    dataType,
		Description: description,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting financial config")
	}
	return row, nil
}

func (s *service) DefaultTaxRate(ctx context.Context) (decimal.Decimal, error) {
	row, err := s.Get(ctx, KeyDefaultTaxRate)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := decimal.NewFromString(row.ConfigValue)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parsing default tax rate")
	}
	return rate, nil
}

func (s *service) Currency(ctx context.Context) (string, error) {
	row, err := s.Get(ctx, KeyCurrency)
	if err != nil {
		return "", err
	}
	return row.ConfigValue, nil
}
