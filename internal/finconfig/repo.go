package finconfig

import (
	"context"

	"github.com/artvpp/books-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for financial configuration rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByKey(ctx context.Context, key string) (*models.FinancialConfig, error)
	ListAll(ctx context.Context) ([]models.FinancialConfig, error)
	Upsert(ctx context.Context, row *models.FinancialConfig) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a finconfig repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByKey(ctx context.Context, key string) (*models.FinancialConfig, error) {
	var row models.FinancialConfig
	err := r.db.WithContext(ctx).First(&row, "config_key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.FinancialConfig, error) {
	var rows []models.FinancialConfig
	if err := r.db.WithContext(ctx).Order("config_key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Upsert(ctx context.Context, row *models.FinancialConfig) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO financial_configs (id, config_key, config_value, data_type, description, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (config_key)
		DO UPDATE SET config_value = ?, data_type = ?, updated_at = CURRENT_TIMESTAMP`,
		row.ID, row.ConfigKey, row.ConfigValue, row.DataType, row.Description,
		row.ConfigValue, row.DataType,
	).Error
}
