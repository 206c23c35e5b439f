package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/artvpp/books-backend/internal/parties"
	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Grouping selects the label resolution of a dashboard series.
type Grouping string

const (
	GroupByDay   Grouping = "day"
	GroupByMonth Grouping = "month"
	GroupByYear  Grouping = "year"
)

// PeriodAmount is one point on a time series.
type PeriodAmount struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryAmount is one category's share of a total.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Summary is an income/expense rollup.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
}

// Dashboard aggregates the last 30 days of completed activity.
type Dashboard struct {
	Summary           Summary          `json:"summary"`
	IncomeSeries      []PeriodAmount   `json:"income_series"`
	ExpenseSeries     []PeriodAmount   `json:"expense_series"`
	IncomeByCategory  []CategoryAmount `json:"income_by_category"`
	ExpenseByCategory []CategoryAmount `json:"expense_by_category"`
}

// ProfitLoss is the P&L statement for an arbitrary period.
type ProfitLoss struct {
	From              time.Time        `json:"from"`
	To                time.Time        `json:"to"`
	RevenueByCategory []CategoryAmount `json:"revenue_by_category"`
	ExpenseByCategory []CategoryAmount `json:"expense_by_category"`
	TotalRevenue      decimal.Decimal  `json:"total_revenue"`
	TotalExpenses     decimal.Decimal  `json:"total_expenses"`
	NetProfit         decimal.Decimal  `json:"net_profit"`
	MarginPercent     decimal.Decimal  `json:"margin_percent"`
}

// LedgerInvoice is one invoice line in a party ledger.
type LedgerInvoice struct {
	InvoiceNumber string              `json:"invoice_number"`
	InvoiceDate   time.Time           `json:"invoice_date"`
	DueDate       time.Time           `json:"due_date"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// PartyLedger is a customer's or vendor's invoice history with totals.
type PartyLedger struct {
	PartyID     uuid.UUID       `json:"party_id"`
	PartyName   string          `json:"party_name"`
	Balance     decimal.Decimal `json:"balance"`
	TotalBilled decimal.Decimal `json:"total_billed"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Invoices    []LedgerInvoice `json:"invoices"`
}

// SalesReport lists sales invoices over a period with totals.
type SalesReport struct {
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	Invoices         []models.Invoice `json:"invoices"`
	Count            int              `json:"count"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	TotalPaid        decimal.Decimal  `json:"total_paid"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
}

// ExpenseReport lists completed expense transactions over a period.
type ExpenseReport struct {
	From         time.Time            `json:"from"`
	To           time.Time            `json:"to"`
	Transactions []models.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	ByCategory   []CategoryAmount     `json:"by_category"`
}

// Service assembles read-only financial reports.
type Service interface {
	Dashboard(ctx context.Context, group Grouping) (*Dashboard, error)
	ProfitLoss(ctx context.Context, from, to time.Time) (*ProfitLoss, error)
	CustomerLedger(ctx context.Context, customerID uuid.UUID) (*PartyLedger, error)
	VendorLedger(ctx context.Context, vendorID uuid.UUID) (*PartyLedger, error)
	SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error)
	ExpenseReport(ctx context.Context, from, to time.Time) (*ExpenseReport, error)
}

type service struct {
	repo    Repository
	parties parties.Repository
}

// NewService builds a reports service with the required dependencies.
func NewService(repo Repository, partiesRepo parties.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if partiesRepo == nil {
		return nil, fmt.Errorf("parties repository required")
	}
	return &service{repo: repo, parties: partiesRepo}, nil
}

const dashboardWindowDays = 30

func (s *service) Dashboard(ctx context.Context, group Grouping) (*Dashboard, error) {
	if group == "" {
		group = GroupByDay
	}
	switch group {
	case GroupByDay, GroupByMonth, GroupByYear:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid grouping %q", group))
	}

	to := truncateToDay(time.Now().UTC()).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -dashboardWindowDays)

	transactions, err := s.repo.CompletedTransactions(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading transactions")
	}

	dashboard := &Dashboard{
		IncomeSeries:      seriesFor(transactions, enums.TransactionTypeIncome, group),
		ExpenseSeries:     seriesFor(transactions, enums.TransactionTypeExpense, group),
		IncomeByCategory:  categoriesFor(transactions, enums.TransactionTypeIncome),
		ExpenseByCategory: categoriesFor(transactions, enums.TransactionTypeExpense),
	}
	dashboard.Summary = summarize(transactions)
	return dashboard, nil
}

func (s *service) ProfitLoss(ctx context.Context, from, to time.Time) (*ProfitLoss, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.CompletedTransactions(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading transactions")
	}

	summary := summarize(transactions)
	margin := decimal.Zero
	if summary.TotalIncome.IsPositive() {
		margin = summary.NetProfit.Div(summary.TotalIncome).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &ProfitLoss{
		From:              from,
		To:                to,
		RevenueByCategory: categoriesFor(transactions, enums.TransactionTypeIncome),
		ExpenseByCategory: categoriesFor(transactions, enums.TransactionTypeExpense),
		TotalRevenue:      summary.TotalIncome,
		TotalExpenses:     summary.TotalExpenses,
		NetProfit:         summary.NetProfit,
		MarginPercent:     margin,
	}, nil
}

func (s *service) CustomerLedger(ctx context.Context, customerID uuid.UUID) (*PartyLedger, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.parties.FindCustomerByID(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
	}
	invoices, err := s.repo.InvoicesForCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer invoices")
	}
	balance, err := s.parties.CustomerOutstanding(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deriving customer balance")
	}
	return buildPartyLedger(customer.ID, customer.Name, balance, invoices), nil
}

func (s *service) VendorLedger(ctx context.Context, vendorID uuid.UUID) (*PartyLedger, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendor, err := s.parties.FindVendorByID(ctx, vendorID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor")
	}
	invoices, err := s.repo.InvoicesForVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor invoices")
	}
	balance, err := s.parties.VendorOutstanding(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deriving vendor balance")
	}
	return buildPartyLedger(vendor.ID, vendor.Name, balance, invoices), nil
}

func (s *service) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	invoices, err := s.repo.InvoicesBetween(ctx, enums.InvoiceTypeSales, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading sales invoices")
	}

	report := &SalesReport{
		From:             from,
		To:               to,
		Invoices:         invoices,
		Count:            len(invoices),
		TotalAmount:      decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}
	for _, invoice := range invoices {
		report.TotalAmount = report.TotalAmount.Add(invoice.TotalAmount)
		report.TotalPaid = report.TotalPaid.Add(invoice.PaidAmount)
	}
	report.TotalOutstanding = report.TotalAmount.Sub(report.TotalPaid)
	return report, nil
}

func (s *service) ExpenseReport(ctx context.Context, from, to time.Time) (*ExpenseReport, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.CompletedTransactions(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading transactions")
	}

	expenses := make([]models.Transaction, 0, len(transactions))
	total := decimal.Zero
	for _, transaction := range transactions {
		if transaction.TransactionType != enums.TransactionTypeExpense {
			continue
		}
		expenses = append(expenses, transaction)
		total = total.Add(transaction.Amount)
	}

	return &ExpenseReport{
		From:         from,
		To:           to,
		Transactions: expenses,
		Count:        len(expenses),
		TotalAmount:  total,
		ByCategory:   categoriesFor(expenses, enums.TransactionTypeExpense),
	}, nil
}

func buildPartyLedger(id uuid.UUID, name string, balance decimal.Decimal, invoices []models.Invoice) *PartyLedger {
	ledger := &PartyLedger{
		PartyID:     id,
		PartyName:   name,
		Balance:     balance,
		TotalBilled: decimal.Zero,
		TotalPaid:   decimal.Zero,
		Invoices:    make([]LedgerInvoice, 0, len(invoices)),
	}
	for _, invoice := range invoices {
		ledger.TotalBilled = ledger.TotalBilled.Add(invoice.TotalAmount)
		ledger.TotalPaid = ledger.TotalPaid.Add(invoice.PaidAmount)
		ledger.Invoices = append(ledger.Invoices, LedgerInvoice{
			InvoiceNumber: invoice.InvoiceNumber,
			InvoiceDate:   invoice.InvoiceDate,
			DueDate:       invoice.DueDate,
			TotalAmount:   invoice.TotalAmount,
			PaidAmount:    invoice.PaidAmount,
			PaymentStatus: invoice.PaymentStatus,
		})
	}
	return ledger
}

func summarize(transactions []models.Transaction) Summary {
	income := decimal.Zero
	expenses := decimal.Zero
	for _, transaction := range transactions {
		if transaction.TransactionType == enums.TransactionTypeIncome {
			income = income.Add(transaction.Amount)
			continue
		}
		expenses = expenses.Add(transaction.Amount)
	}
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetProfit:     income.Sub(expenses),
	}
}

func seriesFor(transactions []models.Transaction, txType enums.TransactionType, group Grouping) []PeriodAmount {
	totals := map[string]decimal.Decimal{}
	for _, transaction := range transactions {
		if transaction.TransactionType != txType {
			continue
		}
		label := periodLabel(transaction.TransactionDate, group)
		totals[label] = totals[label].Add(transaction.Amount)
	}
	series := make([]PeriodAmount, 0, len(totals))
	for label, amount := range totals {
		series = append(series, PeriodAmount{Label: label, Amount: amount})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Label < series[j].Label })
	return series
}

func categoriesFor(transactions []models.Transaction, txType enums.TransactionType) []CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, transaction := range transactions {
		if transaction.TransactionType != txType {
			continue
		}
		totals[transaction.Category] = totals[transaction.Category].Add(transaction.Amount)
	}
	categories := make([]CategoryAmount, 0, len(totals))
	for category, amount := range totals {
		categories = append(categories, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Amount.GreaterThan(categories[j].Amount)
	})
	return categories
}

func periodLabel(t time.Time, group Grouping) string {
	switch group {
	case GroupByMonth:
		return t.Format("2006-01")
	case GroupByYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to dates are required")
	}
	from = truncateToDay(from)
	// The range is half-open; bump "to" so its day is included.
	to = truncateToDay(to).AddDate(0, 0, 1)
	if !to.After(from) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "to date must not precede from date")
	}
	return from, to, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
