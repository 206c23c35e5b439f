package ledger

import (
	"context"
	"time"

	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	"github.com/artvpp/books-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	LatestByAccount(ctx context.Context, account enums.LedgerAccount) (*models.LedgerEntry, error)
	ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error)
	ListByAccount(ctx context.Context, account enums.LedgerAccount, from, to *time.Time, p pagination.Params) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// LatestByAccount returns the most recent entry for the account, or nil
// when the account has no history yet. Running balances chain off this
// row, so concurrent postings to one account must serialize on it; the
// lock is skipped on sqlite, which serializes writers on its own.
func (r *repository) LatestByAccount(ctx context.Context, account enums.LedgerAccount) (*models.LedgerEntry, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var entry models.LedgerEntry
	err := q.
		Where("account_name = ?", account).
		Order("entry_date DESC").
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByAccount(ctx context.Context, account enums.LedgerAccount, from, to *time.Time, p pagination.Params) ([]models.LedgerEntry, error) {
	p = p.Normalize()

	q := r.db.WithContext(ctx).Where("account_name = ?", account)
	if from != nil {
		q = q.Where("entry_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("entry_date <= ?", *to)
	}

	var entries []models.LedgerEntry
	if err := q.
		Order("entry_date DESC").
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
