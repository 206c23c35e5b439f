package reports

import (
	"context"
	"time"

	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads the raw rows reports are assembled from. Aggregation
// happens in the service so the queries stay portable across dialects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CompletedTransactions(ctx context.Context, from, to time.Time) ([]models.Transaction, error)
	InvoicesBetween(ctx context.Context, invoiceType enums.InvoiceType, from, to time.Time) ([]models.Invoice, error)
	InvoicesForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error)
	InvoicesForVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Invoice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CompletedTransactions returns completed rows with from <= date < to.
func (r *repository) CompletedTransactions(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.TransactionStatusCompleted).
		Where("transaction_date >= ? AND transaction_date < ?", from, to).
		Order("transaction_date ASC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repository) InvoicesBetween(ctx context.Context, invoiceType enums.InvoiceType, from, to time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("invoice_type = ?", invoiceType).
		Where("invoice_date >= ? AND invoice_date < ?", from, to).
		Order("invoice_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) InvoicesForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND invoice_type = ?", customerID, enums.InvoiceTypeSales).
		Order("invoice_date DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) InvoicesForVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND invoice_type = ?", vendorID, enums.InvoiceTypePurchase).
		Order("invoice_date DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
