package invoices

import (
	"context"
	"time"

	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	"github.com/artvpp/books-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows invoice listings.
type ListFilter struct {
	Type          *enums.InvoiceType
	PaymentStatus *enums.PaymentStatus
	CustomerID    *uuid.UUID
	VendorID      *uuid.UUID
	From          *time.Time
	To            *time.Time
}

// Repository manages persistence for invoices and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*models.Invoice, error)
	List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	ApplyPaymentDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoices repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate loads the invoice under a row lock where the dialect
// supports one. sqlite serializes writers on its own.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var invoice models.Invoice
	if err := q.
		Preload("Items").
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&invoice, "invoice_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Invoice, error) {
	p = p.Normalize()

	q := r.db.WithContext(ctx).Model(&models.Invoice{})
	if filter.Type != nil {
		q = q.Where("invoice_type = ?", *filter.Type)
	}
	if filter.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.From != nil {
		q = q.Where("invoice_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("invoice_date <= ?", *filter.To)
	}

	var invoices []models.Invoice
	if err := q.
		Preload("Items").
		Order("invoice_date DESC").
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) Update(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit("Items").Save(invoice).Error
}

// ReplaceItems swaps the invoice's line items wholesale.
func (r *repository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error {
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", id).
		Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Invoice{}, "id = ?", id).Error
}

// ApplyPaymentDelta shifts paid_amount by delta in a single guarded
// statement. It reports false when the result would fall outside
// [0, total_amount], leaving the row untouched.
func (r *repository) ApplyPaymentDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE invoices
		SET paid_amount = paid_amount + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		  AND paid_amount + ? <= total_amount
		  AND paid_amount + ? >= 0`,
		delta, id, delta, delta,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Update("payment_status", status).Error
}
