package parties

import (
	"context"

	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	"github.com/artvpp/books-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListFilter narrows party listings.
type ListFilter struct {
	ActiveOnly bool
	Search     string
}

// Repository manages persistence for customers and vendors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	ListCustomers(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	CustomerOutstanding(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)

	CreateVendor(ctx context.Context, vendor *models.Vendor) error
	FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	ListVendors(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Vendor, error)
	UpdateVendor(ctx context.Context, vendor *models.Vendor) error
	VendorOutstanding(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a parties repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, "email = ?", email).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) ListCustomers(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Customer, error) {
	p = p.Normalize()

	q := r.db.WithContext(ctx).Model(&models.Customer{})
	q = applyFilter(q, filter)

	var customers []models.Customer
	if err := q.
		Order("name ASC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repository) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// CustomerOutstanding derives the open balance from the customer's sales
// invoices that are not fully paid.
func (r *repository) CustomerOutstanding(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return r.outstanding(ctx, "customer_id", id, enums.InvoiceTypeSales)
}

func (r *repository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *repository) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) ListVendors(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Vendor, error) {
	p = p.Normalize()

	q := r.db.WithContext(ctx).Model(&models.Vendor{})
	q = applyFilter(q, filter)

	var vendors []models.Vendor
	if err := q.
		Order("name ASC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repository) UpdateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

// VendorOutstanding derives the open balance from the vendor's purchase
// invoices that are not fully paid.
func (r *repository) VendorOutstanding(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return r.outstanding(ctx, "vendor_id", id, enums.InvoiceTypePurchase)
}

func (r *repository) outstanding(ctx context.Context, column string, id uuid.UUID, invoiceType enums.InvoiceType) (decimal.Decimal, error) {
	var row struct {
		Outstanding decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(total_amount - paid_amount), 0) AS outstanding
		FROM invoices
		WHERE `+column+` = ? AND invoice_type = ? AND payment_status <> ?`,
		id, invoiceType, enums.PaymentStatusPaid,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Outstanding, nil
}

func applyFilter(q *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	return q
}
