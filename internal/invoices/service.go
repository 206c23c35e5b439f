package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/artvpp/books-backend/internal/sequence"
	"github.com/artvpp/books-backend/pkg/config"
	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the invoice lifecycle. Monetary fields are always derived
// from the line items; callers never supply totals.
type Service interface {
	Create(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error)
	CreateTx(ctx context.Context, tx *gorm.DB, input CreateInvoiceInput) (*models.Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Invoice, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInvoiceInput) (*models.Invoice, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ItemInput is one requested invoice line. A nil TaxRate inherits the
// invoice-level rate.
type ItemInput struct {
	Name        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     *decimal.Decimal
}

// CreateInvoiceInput captures a new invoice.
type CreateInvoiceInput struct {
	Type           enums.InvoiceType
	Date           time.Time
	DueDate        *time.Time
	CustomerID     *uuid.UUID
	VendorID       *uuid.UUID
	TaxRate        decimal.Decimal
	DiscountAmount decimal.Decimal
	Notes          string
	CreatedBy      *uuid.UUID
	Items          []ItemInput
}

// UpdateInvoiceInput carries partial edits; nil fields are untouched. A
// non-nil Items slice replaces every line item.
type UpdateInvoiceInput struct {
	Date           *time.Time
	DueDate        *time.Time
	TaxRate        *decimal.Decimal
	DiscountAmount *decimal.Decimal
	Notes          *string
	Items          []ItemInput
}

type service struct {
	repo      Repository
	tx        txRunner
	sequences sequence.Service
	books     config.BooksConfig
}

// NewService builds an invoices service with the required dependencies.
func NewService(repo Repository, tx txRunner, sequences sequence.Service, books config.BooksConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sequences == nil {
		return nil, fmt.Errorf("sequence service required")
	}
	return &service{repo: repo, tx: tx, sequences: sequences, books: books}, nil
}

func (s *service) Create(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error) {
	var created *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		invoice, err := s.CreateTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateTx creates the invoice inside the caller's transaction. The
// order-placement automation uses this to keep the invoice, transaction
// and ledger writes atomic.
func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, input CreateInvoiceInput) (*models.Invoice, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	date = truncateToDay(date)

	dueDate := date.AddDate(0, 0, s.books.InvoiceDueDays)
	if input.DueDate != nil {
		dueDate = truncateToDay(*input.DueDate)
	}

	number, err := s.sequences.NextInvoiceNumber(ctx, tx, input.Type, date)
	if err != nil {
		return nil, err
	}

	invoiceID := uuid.New()
	items, subtotal, taxAmount := buildItems(invoiceID, input.Items, input.TaxRate)

	invoice := &models.Invoice{
		ID:             invoiceID,
		InvoiceNumber:  number,
		InvoiceDate:    date,
		DueDate:        dueDate,
		InvoiceType:    input.Type,
		CustomerID:     input.CustomerID,
		VendorID:       input.VendorID,
		Subtotal:       subtotal,
		TaxRate:        input.TaxRate,
		TaxAmount:      taxAmount,
		DiscountAmount: input.DiscountAmount.Round(2),
		TotalAmount:    subtotal.Add(taxAmount).Sub(input.DiscountAmount).Round(2),
		PaidAmount:     decimal.Zero,
		PaymentStatus:  enums.PaymentStatusUnpaid,
		Notes:          input.Notes,
		CreatedBy:      input.CreatedBy,
		Items:          items,
	}

	if err := s.repo.WithTx(tx).Create(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating invoice")
	}
	return invoice, nil
}

func (s *service) validateCreate(input CreateInvoiceInput) error {
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid invoice type %q", input.Type))
	}
	if input.Type == enums.InvoiceTypeSales && input.CustomerID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer is required on a sales invoice")
	}
	if input.Type == enums.InvoiceTypePurchase && input.VendorID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor is required on a purchase invoice")
	}
	if input.TaxRate.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
	}
	if input.DiscountAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	return validateItems(input.Items)
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice requires at least one item")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: name is required", i+1))
		}
		if !item.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit price cannot be negative", i+1))
		}
		if item.TaxRate != nil && item.TaxRate.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: tax rate cannot be negative", i+1))
		}
	}
	return nil
}

// buildItems derives each line's amount and tax. A line-level tax rate
// overrides the invoice-level one.
func buildItems(invoiceID uuid.UUID, inputs []ItemInput, invoiceTaxRate decimal.Decimal) ([]models.InvoiceItem, decimal.Decimal, decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	items := make([]models.InvoiceItem, 0, len(inputs))
	subtotal := decimal.Zero
	taxTotal := decimal.Zero

	for _, input := range inputs {
		amount := input.Quantity.Mul(input.UnitPrice).Round(2)
		rate := invoiceTaxRate
		if input.TaxRate != nil {
			rate = *input.TaxRate
		}
		tax := amount.Mul(rate).Div(hundred).Round(2)

		items = append(items, models.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			ItemName:    strings.TrimSpace(input.Name),
			Description: input.Description,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Amount:      amount,
			TaxRate:     rate,
			TaxAmount:   tax,
		})
		subtotal = subtotal.Add(amount)
		taxTotal = taxTotal.Add(tax)
	}
	return items, subtotal.Round(2), taxTotal.Round(2)
}

// retaxItems re-derives line tax after an invoice-level rate change. A
// line taxed at the previous invoice rate follows the new one; a line
// carrying its own rate keeps it.
func retaxItems(items []models.InvoiceItem, oldRate, newRate decimal.Decimal) ([]models.InvoiceItem, decimal.Decimal, decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	out := make([]models.InvoiceItem, len(items))
	subtotal := decimal.Zero
	taxTotal := decimal.Zero

	for i, item := range items {
		if item.TaxRate.Equal(oldRate) {
			item.TaxRate = newRate
		}
		item.TaxAmount = item.Amount.Mul(item.TaxRate).Div(hundred).Round(2)
		out[i] = item
		subtotal = subtotal.Add(item.Amount)
		taxTotal = taxTotal.Add(item.TaxAmount)
	}
	return out, subtotal.Round(2), taxTotal.Round(2)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
	}
	return invoice, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Invoice, error) {
	invoices, err := s.repo.List(ctx, filter, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing invoices")
	}
	return invoices, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInvoiceInput) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	if input.TaxRate != nil && input.TaxRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
	}
	if input.DiscountAmount != nil && input.DiscountAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	if input.Items != nil {
		if err := validateItems(input.Items); err != nil {
			return nil, err
		}
	}

	var updated *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
		}
		if invoice.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot edit a fully paid invoice")
		}

		if input.Date != nil {
			invoice.InvoiceDate = truncateToDay(*input.Date)
		}
		if input.DueDate != nil {
			invoice.DueDate = truncateToDay(*input.DueDate)
		}
		priorTaxRate := invoice.TaxRate
		if input.TaxRate != nil {
			invoice.TaxRate = *input.TaxRate
		}
		if input.DiscountAmount != nil {
			invoice.DiscountAmount = input.DiscountAmount.Round(2)
		}
		if input.Notes != nil {
			invoice.Notes = *input.Notes
		}

		if input.Items != nil {
			items, subtotal, taxAmount := buildItems(invoice.ID, input.Items, invoice.TaxRate)
			invoice.Subtotal = subtotal
			invoice.TaxAmount = taxAmount
			if err := repo.ReplaceItems(ctx, invoice.ID, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replacing invoice items")
			}
			invoice.Items = items
		} else if !invoice.TaxRate.Equal(priorTaxRate) {
			// A rate-only edit still re-derives line tax so the stored
			// items and the invoice totals agree.
			items, subtotal, taxAmount := retaxItems(invoice.Items, priorTaxRate, invoice.TaxRate)
			invoice.Subtotal = subtotal
			invoice.TaxAmount = taxAmount
			if err := repo.ReplaceItems(ctx, invoice.ID, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replacing invoice items")
			}
			invoice.Items = items
		}

		invoice.TotalAmount = invoice.Subtotal.Add(invoice.TaxAmount).Sub(invoice.DiscountAmount).Round(2)
		if invoice.TotalAmount.LessThan(invoice.PaidAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invoice total cannot fall below the amount already paid")
		}
		invoice.PaymentStatus = enums.PaymentStatusFor(invoice.PaidAmount, invoice.TotalAmount)

		if err := repo.Update(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating invoice")
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
		}
		if invoice.PaymentStatus != enums.PaymentStatusUnpaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only unpaid invoices can be deleted")
		}
		if err := repo.Delete(ctx, invoice.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting invoice")
		}
		return nil
	})
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
