package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/artvpp/books-backend/pkg/config"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const (
	scopeSalesInvoice    = "invoice_sales"
	scopePurchaseInvoice = "invoice_purchase"
	scopePayment         = "payment"
	scopeTransaction     = "transaction"
)

// Service hands out document numbers. Every number embeds a period key
// (month or day) and a zero-padded ordinal reserved atomically, so numbers
// are unique and gapless within their period.
type Service interface {
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB, invoiceType enums.InvoiceType, at time.Time) (string, error)
	NextPaymentNumber(ctx context.Context, tx *gorm.DB, at time.Time) (string, error)
	NextTransactionNumber(ctx context.Context, tx *gorm.DB, at time.Time) (string, error)
}

type service struct {
	repo       Repository
	books      config.BooksConfig
	maxRetries uint64
}

// NewService wires a sequence service with the provided repository.
func NewService(repo Repository, books config.BooksConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sequence repository required")
	}
	maxRetries := uint64(books.SequenceMaxRetries)
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &service{repo: repo, books: books, maxRetries: maxRetries}, nil
}

func (s *service) NextInvoiceNumber(ctx context.Context, tx *gorm.DB, invoiceType enums.InvoiceType, at time.Time) (string, error) {
	if !invoiceType.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid invoice type %q", invoiceType))
	}

	prefix := s.books.SalesPrefix
	scope := scopeSalesInvoice
	if invoiceType == enums.InvoiceTypePurchase {
		prefix = s.books.PurchasePrefix
		scope = scopePurchaseInvoice
	}

	period := at.Format("200601")
	ordinal, err := s.reserve(ctx, tx, scope, period)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%04d", prefix, period, ordinal), nil
}

func (s *service) NextPaymentNumber(ctx context.Context, tx *gorm.DB, at time.Time) (string, error) {
	period := at.Format("200601")
	ordinal, err := s.reserve(ctx, tx, scopePayment, period)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%05d", s.books.PaymentPrefix, period, ordinal), nil
}

func (s *service) NextTransactionNumber(ctx context.Context, tx *gorm.DB, at time.Time) (string, error) {
	period := at.Format("20060102")
	ordinal, err := s.reserve(ctx, tx, scopeTransaction, period)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%05d", s.books.TransactionPrefix, period, ordinal), nil
}

// reserve claims the next ordinal, retrying transient storage failures. A
// caller-supplied tx binds the reservation to that transaction; counter
// rows roll back with the document that would have used the number.
func (s *service) reserve(ctx context.Context, tx *gorm.DB, scope, period string) (int64, error) {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	var ordinal int64
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewFibonacci(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		value, err := repo.Reserve(ctx, scope, period)
		if err != nil {
			return retry.RetryableError(err)
		}
		ordinal = value
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("reserving %s sequence", scope))
	}
	return ordinal, nil
}
