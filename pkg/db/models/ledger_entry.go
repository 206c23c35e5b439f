package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artvpp/books-backend/pkg/enums"
)

// LedgerEntry is one side of a double-entry posting. TransactionID points
// at the source event (a transaction or a payment). Entries are
// append-only; corrections are made with new offsetting entries.
type LedgerEntry struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID           `gorm:"column:transaction_id;type:uuid;not null;index"`
	AccountName   enums.LedgerAccount `gorm:"column:account_name;type:text;not null;index"`
	Debit         decimal.Decimal     `gorm:"column:debit;type:numeric(14,2);not null;default:0"`
	Credit        decimal.Decimal     `gorm:"column:credit;type:numeric(14,2);not null;default:0"`
	EntryDate     time.Time           `gorm:"column:entry_date;type:date;not null"`
	Balance       decimal.Decimal     `gorm:"column:balance;type:numeric(14,2);not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
