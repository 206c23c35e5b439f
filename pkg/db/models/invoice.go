package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artvpp/books-backend/pkg/enums"
)

// Invoice is the billing document for a sale to a customer or a purchase
// from a vendor. paid_amount and payment_status are materialized from the
// payment set and recomputed on every payment mutation.
type Invoice struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber  string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	InvoiceDate    time.Time           `gorm:"column:invoice_date;type:date;not null"`
	DueDate        time.Time           `gorm:"column:due_date;type:date;not null"`
	InvoiceType    enums.InvoiceType   `gorm:"column:invoice_type;type:text;not null"`
	CustomerID     *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	VendorID       *uuid.UUID          `gorm:"column:vendor_id;type:uuid"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(14,2);not null"`
	TaxRate        decimal.Decimal     `gorm:"column:tax_rate;type:numeric(6,2);not null;default:0"`
	TaxAmount      decimal.Decimal     `gorm:"column:tax_amount;type:numeric(14,2);not null;default:0"`
	DiscountAmount decimal.Decimal     `gorm:"column:discount_amount;type:numeric(14,2);not null;default:0"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PaidAmount     decimal.Decimal     `gorm:"column:paid_amount;type:numeric(14,2);not null;default:0"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Notes          string              `gorm:"column:notes;not null;default:''"`
	CreatedBy      *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	Items          []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
