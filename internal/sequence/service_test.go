package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artvpp/books-backend/pkg/config"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"gorm.io/gorm"
)

type stubSequenceRepo struct {
	counters map[string]int64
	failures int
}

func (s *stubSequenceRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubSequenceRepo) Reserve(ctx context.Context, scope, periodKey string) (int64, error) {
	if s.failures > 0 {
		s.failures--
		return 0, errors.New("transient storage error")
	}
	if s.counters == nil {
		s.counters = make(map[string]int64)
	}
	key := scope + "/" + periodKey
	s.counters[key]++
	return s.counters[key], nil
}

func testBooks() config.BooksConfig {
	return config.BooksConfig{
		SalesPrefix:        "INV",
		PurchasePrefix:     "PUR",
		PaymentPrefix:      "PAY",
		TransactionPrefix:  "TXN",
		SequenceMaxRetries: 3,
	}
}

func TestNextInvoiceNumberFormats(t *testing.T) {
	svc, err := NewService(&stubSequenceRepo{}, testBooks())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	sales, err := svc.NextInvoiceNumber(ctx, nil, enums.InvoiceTypeSales, at)
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if sales != "INV2026080001" {
		t.Fatalf("sales number = %q, want INV2026080001", sales)
	}

	purchase, err := svc.NextInvoiceNumber(ctx, nil, enums.InvoiceTypePurchase, at)
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if purchase != "PUR2026080001" {
		t.Fatalf("purchase number = %q, want PUR2026080001", purchase)
	}

	// Scopes advance independently.
	second, err := svc.NextInvoiceNumber(ctx, nil, enums.InvoiceTypeSales, at)
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if second != "INV2026080002" {
		t.Fatalf("second sales number = %q, want INV2026080002", second)
	}
}

func TestNextPaymentAndTransactionNumbers(t *testing.T) {
	svc, err := NewService(&stubSequenceRepo{}, testBooks())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	payment, err := svc.NextPaymentNumber(ctx, nil, at)
	if err != nil {
		t.Fatalf("NextPaymentNumber: %v", err)
	}
	if payment != "PAY20260800001" {
		t.Fatalf("payment number = %q, want PAY20260800001", payment)
	}

	transaction, err := svc.NextTransactionNumber(ctx, nil, at)
	if err != nil {
		t.Fatalf("NextTransactionNumber: %v", err)
	}
	if transaction != "TXN2026082000001" {
		t.Fatalf("transaction number = %q, want TXN2026082000001", transaction)
	}
}

func TestPeriodKeyRollsOver(t *testing.T) {
	svc, err := NewService(&stubSequenceRepo{}, testBooks())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	august, err := svc.NextInvoiceNumber(ctx, nil, enums.InvoiceTypeSales, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	september, err := svc.NextInvoiceNumber(ctx, nil, enums.InvoiceTypeSales, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if august != "INV2026080001" || september != "INV2026090001" {
		t.Fatalf("rollover produced %q then %q", august, september)
	}
}

func TestReserveRetriesTransientErrors(t *testing.T) {
	repo := &stubSequenceRepo{failures: 2}
	svc, err := NewService(repo, testBooks())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	number, err := svc.NextPaymentNumber(context.Background(), nil, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NextPaymentNumber after retries: %v", err)
	}
	if number != "PAY20260800001" {
		t.Fatalf("number = %q", number)
	}
}

func TestReserveGivesUpAfterMaxRetries(t *testing.T) {
	repo := &stubSequenceRepo{failures: 10}
	svc, err := NewService(repo, testBooks())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.NextPaymentNumber(context.Background(), nil, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodeDependency)
	}
}

func TestInvalidInvoiceTypeRejected(t *testing.T) {
	svc, err := NewService(&stubSequenceRepo{}, testBooks())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.NextInvoiceNumber(context.Background(), nil, enums.InvoiceType("loan"), time.Now())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("code = %s", pkgerrors.As(err).Code())
	}
}
