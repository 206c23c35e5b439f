package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/artvpp/books-backend/internal/finconfig"
	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/parties"
	"github.com/artvpp/books-backend/internal/payments"
	"github.com/artvpp/books-backend/internal/transactions"
	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

const salesCategory = "Sales"

// OrderInput is what the storefront hands over when an order is placed.
type OrderInput struct {
	OrderReference string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Address        string
	PlacedAt       time.Time
	Items          []invoices.ItemInput
}

// OrderBooksResult bundles the records created for one placed order.
type OrderBooksResult struct {
	Customer    *models.Customer
	Invoice     *models.Invoice
	Transaction *models.Transaction
}

// Service is the order-placement bridge into the books. The storefront
// calls it in-process; nothing here is exposed over HTTP.
type Service interface {
	CreateSalesInvoiceForOrder(ctx context.Context, input OrderInput) (*OrderBooksResult, error)
	ReconcileOrderPayment(ctx context.Context, input payments.RecordPaymentInput) (*models.Payment, error)
}

type service struct {
	tx           txRunner
	parties      parties.Service
	invoices     invoices.Service
	payments     payments.Service
	transactions transactions.Service
	settings     finconfig.Service
}

// NewService builds the automation service with the required dependencies.
func NewService(tx txRunner, partiesSvc parties.Service, invoicesSvc invoices.Service, paymentsSvc payments.Service, transactionsSvc transactions.Service, settings finconfig.Service) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if partiesSvc == nil {
		return nil, fmt.Errorf("parties service required")
	}
	if invoicesSvc == nil {
		return nil, fmt.Errorf("invoices service required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if transactionsSvc == nil {
		return nil, fmt.Errorf("transactions service required")
	}
	if settings == nil {
		return nil, fmt.Errorf("finconfig service required")
	}
	return &service{
		tx:           tx,
		parties:      partiesSvc,
		invoices:     invoicesSvc,
		payments:     paymentsSvc,
		transactions: transactionsSvc,
		settings:     settings,
	}, nil
}

// CreateSalesInvoiceForOrder books a placed order: the customer record is
// found or created by email, a sales invoice is cut at the configured tax
// rate, and a completed income transaction posts the revenue. One database
// transaction covers all of it.
func (s *service) CreateSalesInvoiceForOrder(ctx context.Context, input OrderInput) (*OrderBooksResult, error) {
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	taxRate, err := s.settings.DefaultTaxRate(ctx)
	if err != nil {
		return nil, err
	}

	placedAt := input.PlacedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}

	result := &OrderBooksResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.parties.EnsureCustomerByEmail(ctx, tx, parties.PartyInput{
			Name:    input.CustomerName,
			Email:   input.CustomerEmail,
			Phone:   input.CustomerPhone,
			Address: input.Address,
		})
		if err != nil {
			return err
		}

		invoice, err := s.invoices.CreateTx(ctx, tx, invoices.CreateInvoiceInput{
			Type:       enums.InvoiceTypeSales,
			Date:       placedAt,
			CustomerID: &customer.ID,
			TaxRate:    taxRate,
			Notes:      orderNotes(input.OrderReference),
			Items:      input.Items,
		})
		if err != nil {
			return err
		}

		transaction, err := s.transactions.CreateIncomeTx(ctx, tx, transactions.CreateTransactionInput{
			Date:            placedAt,
			Category:        salesCategory,
			Amount:          invoice.TotalAmount,
			PaymentMethod:   enums.PaymentMethodOrderPayment,
			Description:     orderNotes(input.OrderReference),
			CustomerID:      &customer.ID,
			InvoiceID:       &invoice.ID,
			ReferenceNumber: input.OrderReference,
			Status:          enums.TransactionStatusCompleted,
		})
		if err != nil {
			return err
		}

		result.Customer = customer
		result.Invoice = invoice
		result.Transaction = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReconcileOrderPayment settles the order's invoice through the regular
// payment path, so the paid ceiling and status rules hold here too.
func (s *service) ReconcileOrderPayment(ctx context.Context, input payments.RecordPaymentInput) (*models.Payment, error) {
	if input.Method == "" {
		input.Method = enums.PaymentMethodOrderPayment
	}
	return s.payments.Record(ctx, input)
}

func orderNotes(reference string) string {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "Auto-created from order placement"
	}
	return fmt.Sprintf("Auto-created from order %s", reference)
}
