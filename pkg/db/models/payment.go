package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artvpp/books-backend/pkg/enums"
)

// Payment settles part or all of a single invoice.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentNumber   string              `gorm:"column:payment_number;not null;uniqueIndex"`
	InvoiceID       uuid.UUID           `gorm:"column:invoice_id;type:uuid;not null;index"`
	PaymentDate     time.Time           `gorm:"column:payment_date;type:date;not null"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'bank_transfer'"`
	ReferenceNumber string              `gorm:"column:reference_number;not null;default:''"`
	Notes           string              `gorm:"column:notes;not null;default:''"`
	CreatedBy       *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
