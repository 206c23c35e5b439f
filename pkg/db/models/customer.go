package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is the buying party on sales invoices. Its outstanding
// balance is derived on demand, never stored.
type Customer struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Email       string          `gorm:"column:email;not null;default:'';index"`
	Phone       string          `gorm:"column:phone;not null;default:''"`
	Address     string          `gorm:"column:address;not null;default:''"`
	City        string          `gorm:"column:city;not null;default:''"`
	State       string          `gorm:"column:state;not null;default:''"`
	Pincode     string          `gorm:"column:pincode;not null;default:''"`
	GSTNumber   string          `gorm:"column:gst_number;not null;default:''"`
	PANNumber   string          `gorm:"column:pan_number;not null;default:''"`
	CreditLimit decimal.Decimal `gorm:"column:credit_limit;type:numeric(14,2);not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
