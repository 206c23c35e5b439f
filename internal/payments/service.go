package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/internal/sequence"
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

// Service reconciles payments against invoices. Every mutation moves the
// invoice's paid_amount through a guarded single-statement update, so the
// 0 <= paid <= total invariant holds even under concurrent writers.
type Service interface {
	Record(ctx context.Context, input RecordPaymentInput) (*models.Payment, error)
	RecordTx(ctx context.Context, tx *gorm.DB, input RecordPaymentInput) (*models.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Payment, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePaymentInput) (*models.Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RecordPaymentInput captures a payment against one invoice.
type RecordPaymentInput struct {
	InvoiceID       uuid.UUID
	Date            time.Time
	Amount          decimal.Decimal
	Method          enums.PaymentMethod
	ReferenceNumber string
	Notes           string
	CreatedBy       *uuid.UUID
}

// UpdatePaymentInput carries partial edits; nil fields are untouched.
type UpdatePaymentInput struct {
	Date            *time.Time
	Amount          *decimal.Decimal
	Method          *enums.PaymentMethod
	ReferenceNumber *string
	Notes           *string
}

type service struct {
	repo      Repository
	invoices  invoices.Repository
	tx        txRunner
	ledger    ledger.Service
	sequences sequence.Service
}

// NewService builds a payments service with the required dependencies.
func NewService(repo Repository, invoiceRepo invoices.Repository, tx txRunner, ledgerSvc ledger.Service, sequences sequence.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if invoiceRepo == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if sequences == nil {
		return nil, fmt.Errorf("sequence service required")
	}
	return &service{
		repo:      repo,
		invoices:  invoiceRepo,
		tx:        tx,
		ledger:    ledgerSvc,
		sequences: sequences,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordPaymentInput) (*models.Payment, error) {
	var recorded *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.RecordTx(ctx, tx, input)
		if err != nil {
			return err
		}
		recorded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

// RecordTx records the payment inside the caller's transaction. The
// order-payment reconciliation path rides on this.
func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, input RecordPaymentInput) (*models.Payment, error) {
	if input.InvoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	method := input.Method
	if method == "" {
		method = enums.PaymentMethodBankTransfer
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	amount := input.Amount.Round(2)

	invoiceRepo := s.invoices.WithTx(tx)
	invoice, err := invoiceRepo.FindByIDForUpdate(ctx, input.InvoiceID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
	}

	if err := s.applyDelta(ctx, invoiceRepo, invoice, amount); err != nil {
		return nil, err
	}

	number, err := s.sequences.NextPaymentNumber(ctx, tx, date)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:              uuid.New(),
		PaymentNumber:   number,
		InvoiceID:       invoice.ID,
		PaymentDate:     date,
		Amount:          amount,
		PaymentMethod:   method,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		CreatedBy:       input.CreatedBy,
	}
	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment")
	}

	if err := s.postPair(ctx, tx, payment.ID, invoice.InvoiceType, amount, date, false); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
	}
	return payment, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Payment, error) {
	payments, err := s.repo.List(ctx, filter, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing payments")
	}
	return payments, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePaymentInput) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if input.Amount != nil && !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if input.Method != nil && !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", *input.Method))
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
		}

		invoiceRepo := s.invoices.WithTx(tx)
		invoice, err := invoiceRepo.FindByIDForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
		}

		// The date edit lands first so any ledger adjustment below is
		// posted in the period the payment now belongs to.
		if input.Date != nil {
			d := *input.Date
			payment.PaymentDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
		if input.Amount != nil {
			newAmount := input.Amount.Round(2)
			delta := newAmount.Sub(payment.Amount)
			if !delta.IsZero() {
				if err := s.applyDelta(ctx, invoiceRepo, invoice, delta); err != nil {
					return err
				}
				// Adjust the ledger with an offsetting pair rather than
				// rewriting history.
				reverse := delta.IsNegative()
				if err := s.postPair(ctx, tx, payment.ID, invoice.InvoiceType, delta.Abs(), payment.PaymentDate, reverse); err != nil {
					return err
				}
			}
			payment.Amount = newAmount
		}
		if input.Method != nil {
			payment.PaymentMethod = *input.Method
		}
		if input.ReferenceNumber != nil {
			payment.ReferenceNumber = *input.ReferenceNumber
		}
		if input.Notes != nil {
			payment.Notes = *input.Notes
		}

		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment")
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
		}

		invoiceRepo := s.invoices.WithTx(tx)
		invoice, err := invoiceRepo.FindByIDForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
		}

		if err := s.applyDelta(ctx, invoiceRepo, invoice, payment.Amount.Neg()); err != nil {
			return err
		}
		if err := s.postPair(ctx, tx, payment.ID, invoice.InvoiceType, payment.Amount, payment.PaymentDate, true); err != nil {
			return err
		}
		if err := repo.Delete(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting payment")
		}
		return nil
	})
}

// applyDelta moves the invoice's paid_amount and re-derives its payment
// status. The guarded update refuses any move outside [0, total].
func (s *service) applyDelta(ctx context.Context, invoiceRepo invoices.Repository, invoice *models.Invoice, delta decimal.Decimal) error {
	ok, err := invoiceRepo.ApplyPaymentDelta(ctx, invoice.ID, delta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "applying payment delta")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount exceeds invoice total")
	}

	invoice.PaidAmount = invoice.PaidAmount.Add(delta)
	status := enums.PaymentStatusFor(invoice.PaidAmount, invoice.TotalAmount)
	if err := invoiceRepo.SetPaymentStatus(ctx, invoice.ID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "setting payment status")
	}
	invoice.PaymentStatus = status
	return nil
}

// postPair posts the double entry for a payment movement. Value flows into
// the bank on sales collections and out of it on purchase settlements;
// reverse swaps the sides for corrections.
func (s *service) postPair(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, invoiceType enums.InvoiceType, amount decimal.Decimal, date time.Time, reverse bool) error {
	debit, credit := paymentLedgerAccounts(invoiceType)
	if reverse {
		debit, credit = credit, debit
	}
	_, err := s.ledger.PostPair(ctx, tx, ledger.PostPairInput{
		TransactionID: paymentID,
		DebitAccount:  debit,
		CreditAccount: credit,
		Amount:        amount,
		EntryDate:     date,
	})
	return err
}

func paymentLedgerAccounts(invoiceType enums.InvoiceType) (debit, credit enums.LedgerAccount) {
	if invoiceType == enums.InvoiceTypePurchase {
		return enums.LedgerAccountAccountsPayable, enums.LedgerAccountBank
	}
	return enums.LedgerAccountBank, enums.LedgerAccountAccountsReceivable
}
