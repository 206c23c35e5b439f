package models

import (
	"time"

	"github.com/google/uuid"
)

// FinancialConfig is a key-value row for financial settings such as the
// default tax rate and invoice number prefixes.
type FinancialConfig struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfigKey   string    `gorm:"column:config_key;not null;uniqueIndex"`
	ConfigValue string    `gorm:"column:config_value;not null"`
	DataType    string    `gorm:"column:data_type;not null;default:'string'"`
	Description string    `gorm:"column:description;not null;default:''"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
