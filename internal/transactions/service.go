package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/internal/sequence"
	"github.com/artvpp/books-backend/internal/summaries"
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

// Service records income and expense transactions. Completing a
// transaction posts its ledger pair and refreshes the period summaries in
// the same database transaction.
type Service interface {
	CreateIncome(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error)
	CreateIncomeTx(ctx context.Context, tx *gorm.DB, input CreateTransactionInput) (*models.Transaction, error)
	CreateExpense(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTransactionInput) (*models.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateTransactionInput captures a new income or expense event.
type CreateTransactionInput struct {
	Date            time.Time
	Category        string
	Subcategory     string
	Amount          decimal.Decimal
	PaymentMethod   enums.PaymentMethod
	Description     string
	CustomerID      *uuid.UUID
	VendorID        *uuid.UUID
	InvoiceID       *uuid.UUID
	ReferenceNumber string
	Status          enums.TransactionStatus
	CreatedBy       *uuid.UUID
}

// UpdateTransactionInput carries partial edits; nil fields are untouched.
type UpdateTransactionInput struct {
	Date            *time.Time
	Category        *string
	Subcategory     *string
	Amount          *decimal.Decimal
	PaymentMethod   *enums.PaymentMethod
	Description     *string
	ReferenceNumber *string
	Status          *enums.TransactionStatus
}

type service struct {
	repo      Repository
	tx        txRunner
	ledger    ledger.Service
	sequences sequence.Service
	summaries summaries.Service
}

// NewService builds a transactions service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledgerSvc ledger.Service, sequences sequence.Service, summariesSvc summaries.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
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
	if summariesSvc == nil {
		return nil, fmt.Errorf("summaries service required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		ledger:    ledgerSvc,
		sequences: sequences,
		summaries: summariesSvc,
	}, nil
}

func (s *service) CreateIncome(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error) {
	return s.create(ctx, enums.TransactionTypeIncome, input)
}

// CreateIncomeTx records the income inside the caller's transaction. The
// order-placement automation uses this to keep invoice and transaction
// writes atomic.
func (s *service) CreateIncomeTx(ctx context.Context, tx *gorm.DB, input CreateTransactionInput) (*models.Transaction, error) {
	return s.createInTx(ctx, tx, enums.TransactionTypeIncome, input)
}

func (s *service) CreateExpense(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error) {
	return s.create(ctx, enums.TransactionTypeExpense, input)
}

func (s *service) create(ctx context.Context, txType enums.TransactionType, input CreateTransactionInput) (*models.Transaction, error) {
	var created *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transaction, err := s.createInTx(ctx, tx, txType, input)
		if err != nil {
			return err
		}
		created = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) createInTx(ctx context.Context, tx *gorm.DB, txType enums.TransactionType, input CreateTransactionInput) (*models.Transaction, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be positive")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}

	status := input.Status
	if status == "" {
		status = enums.TransactionStatusCompleted
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", status))
	}
	method := input.PaymentMethod
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

	transaction := &models.Transaction{
		ID:              uuid.New(),
		TransactionDate: date,
		TransactionType: txType,
		Category:        strings.TrimSpace(input.Category),
		Subcategory:     strings.TrimSpace(input.Subcategory),
		Amount:          input.Amount.Round(2),
		PaymentMethod:   method,
		Description:     input.Description,
		CustomerID:      input.CustomerID,
		VendorID:        input.VendorID,
		InvoiceID:       input.InvoiceID,
		ReferenceNumber: input.ReferenceNumber,
		Status:          status,
		CreatedBy:       input.CreatedBy,
	}

	number, err := s.sequences.NextTransactionNumber(ctx, tx, date)
	if err != nil {
		return nil, err
	}
	transaction.TransactionNumber = number

	if err := s.repo.WithTx(tx).Create(ctx, transaction); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating transaction")
	}

	if transaction.Status == enums.TransactionStatusCompleted {
		if err := s.complete(ctx, tx, transaction); err != nil {
			return nil, err
		}
	}
	return transaction, nil
}

// complete posts the ledger pair and refreshes the affected summaries.
// Must run inside the transaction that made the row completed.
func (s *service) complete(ctx context.Context, tx *gorm.DB, transaction *models.Transaction) error {
	debit, credit := ledgerPairFor(transaction)
	if _, err := s.ledger.PostPair(ctx, tx, ledger.PostPairInput{
		TransactionID: transaction.ID,
		DebitAccount:  debit,
		CreditAccount: credit,
		Amount:        transaction.Amount,
		EntryDate:     transaction.TransactionDate,
	}); err != nil {
		return err
	}

	if _, err := s.summaries.RecomputeDaily(ctx, tx, transaction.TransactionDate); err != nil {
		return err
	}
	if _, err := s.summaries.RecomputeMonthly(ctx, tx, transaction.TransactionDate.Year(), transaction.TransactionDate.Month()); err != nil {
		return err
	}
	return nil
}

// ledgerPairFor maps a transaction to its posting convention: the debit
// account is where value flows to.
func ledgerPairFor(transaction *models.Transaction) (debit, credit enums.LedgerAccount) {
	if transaction.TransactionType == enums.TransactionTypeIncome {
		return enums.LedgerAccountBank, enums.RevenueAccount(transaction.Category)
	}
	return enums.ExpenseAccount(transaction.Category), enums.LedgerAccountBank
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	transaction, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading transaction")
	}
	return transaction, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Transaction, error) {
	transactions, err := s.repo.List(ctx, filter, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing transactions")
	}
	return transactions, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTransactionInput) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if input.Amount != nil && !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be positive")
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", *input.Status))
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", *input.PaymentMethod))
	}

	var updated *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transaction, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading transaction")
		}
		if !transaction.Status.Mutable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot modify completed transactions, create a reversal entry instead")
		}

		if input.Date != nil {
			d := *input.Date
			transaction.TransactionDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
		if input.Category != nil {
			transaction.Category = strings.TrimSpace(*input.Category)
		}
		if input.Subcategory != nil {
			transaction.Subcategory = strings.TrimSpace(*input.Subcategory)
		}
		if input.Amount != nil {
			transaction.Amount = input.Amount.Round(2)
		}
		if input.PaymentMethod != nil {
			transaction.PaymentMethod = *input.PaymentMethod
		}
		if input.Description != nil {
			transaction.Description = *input.Description
		}
		if input.ReferenceNumber != nil {
			transaction.ReferenceNumber = *input.ReferenceNumber
		}
		completing := input.Status != nil && *input.Status == enums.TransactionStatusCompleted
		if input.Status != nil {
			transaction.Status = *input.Status
		}

		if err := repo.Update(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating transaction")
		}

		if completing {
			if err := s.complete(ctx, tx, transaction); err != nil {
				return err
			}
		}
		updated = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transaction, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading transaction")
		}
		if !transaction.Status.Mutable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete completed transactions, create a reversal entry instead")
		}
		if err := repo.Delete(ctx, transaction.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting transaction")
		}
		return nil
	})
}
