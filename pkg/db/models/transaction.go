package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artvpp/books-backend/pkg/enums"
)

// Transaction is a business cash event (income or expense). Every
// transaction produces a balanced pair of ledger entries.
type Transaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionNumber string                  `gorm:"column:transaction_number;not null;uniqueIndex"`
	TransactionDate   time.Time               `gorm:"column:transaction_date;type:date;not null"`
	TransactionType   enums.TransactionType   `gorm:"column:transaction_type;type:text;not null"`
	Category          string                  `gorm:"column:category;not null"`
	Subcategory       string                  `gorm:"column:subcategory;not null;default:''"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null;default:'bank_transfer'"`
	Description       string                  `gorm:"column:description;not null;default:''"`
	CustomerID        *uuid.UUID              `gorm:"column:customer_id;type:uuid"`
	VendorID          *uuid.UUID              `gorm:"column:vendor_id;type:uuid"`
	InvoiceID         *uuid.UUID              `gorm:"column:invoice_id;type:uuid"`
	ReferenceNumber   string                  `gorm:"column:reference_number;not null;default:''"`
	Status            enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedBy         *uuid.UUID              `gorm:"column:created_by;type:uuid"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
