package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service posts double-entry pairs and reads account history. Entries are
// append-only; a posted pair is only ever undone by deleting the owning
// transaction's entries before it completes.
type Service interface {
	PostPair(ctx context.Context, tx *gorm.DB, input PostPairInput) ([]models.LedgerEntry, error)
	AccountBalance(ctx context.Context, account enums.LedgerAccount) (decimal.Decimal, error)
	AccountStatement(ctx context.Context, account enums.LedgerAccount, from, to *time.Time, p pagination.Params) ([]models.LedgerEntry, error)
	EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error)
}

// PostPairInput describes one balanced debit/credit posting. The debit
// account is where value flows to, the credit account where it flows from.
type PostPairInput struct {
	TransactionID uuid.UUID
	DebitAccount  enums.LedgerAccount
	CreditAccount enums.LedgerAccount
	Amount        decimal.Decimal
	EntryDate     time.Time
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) PostPair(ctx context.Context, tx *gorm.DB, input PostPairInput) ([]models.LedgerEntry, error) {
	if input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if !input.DebitAccount.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid debit account %q", input.DebitAccount))
	}
	if !input.CreditAccount.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit account %q", input.CreditAccount))
	}
	if input.DebitAccount == input.CreditAccount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit and credit accounts must differ")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "posting amount must be positive")
	}
	if input.EntryDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry date is required")
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	amount := input.Amount.Round(2)

	debitEntry, err := s.post(ctx, repo, input.TransactionID, input.DebitAccount, amount, decimal.Zero, input.EntryDate)
	if err != nil {
		return nil, err
	}
	creditEntry, err := s.post(ctx, repo, input.TransactionID, input.CreditAccount, decimal.Zero, amount, input.EntryDate)
	if err != nil {
		return nil, err
	}

	return []models.LedgerEntry{*debitEntry, *creditEntry}, nil
}

// post appends one entry, chaining its running balance off the account's
// latest row: balance = previous + debit - credit.
func (s *service) post(ctx context.Context, repo Repository, transactionID uuid.UUID, account enums.LedgerAccount, debit, credit decimal.Decimal, entryDate time.Time) (*models.LedgerEntry, error) {
	previous := decimal.Zero
	latest, err := repo.LatestByAccount(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading latest ledger entry")
	}
	if latest != nil {
		previous = latest.Balance
	}

	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		AccountName:   account,
		Debit:         debit,
		Credit:        credit,
		EntryDate:     entryDate,
		Balance:       previous.Add(debit).Sub(credit),
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating ledger entry")
	}
	return entry, nil
}

func (s *service) AccountBalance(ctx context.Context, account enums.LedgerAccount) (decimal.Decimal, error) {
	if !account.IsValid() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger account %q", account))
	}
	latest, err := s.repo.LatestByAccount(ctx, account)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading latest ledger entry")
	}
	if latest == nil {
		return decimal.Zero, nil
	}
	return latest.Balance, nil
}

func (s *service) AccountStatement(ctx context.Context, account enums.LedgerAccount, from, to *time.Time, p pagination.Params) ([]models.LedgerEntry, error) {
	if !account.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger account %q", account))
	}
	entries, err := s.repo.ListByAccount(ctx, account, from, to, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing ledger entries")
	}
	return entries, nil
}

func (s *service) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	entries, err := s.repo.ListByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing ledger entries")
	}
	return entries, nil
}
