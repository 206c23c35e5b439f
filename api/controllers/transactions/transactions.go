package transactions

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artvpp/books-backend/api/middleware"
	"github.com/artvpp/books-backend/api/responses"
	"github.com/artvpp/books-backend/api/validators"
	internaltransactions "github.com/artvpp/books-backend/internal/transactions"
	"github.com/artvpp/books-backend/pkg/db/models"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/logger"
	"github.com/artvpp/books-backend/pkg/pagination"
)

type createRequest struct {
	TransactionDate string          `json:"transaction_date"`
	Category        string          `json:"category" validate:"required"`
	Subcategory     string          `json:"subcategory"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	Description     string          `json:"description"`
	CustomerID      *uuid.UUID      `json:"customer_id"`
	VendorID        *uuid.UUID      `json:"vendor_id"`
	InvoiceID       *uuid.UUID      `json:"invoice_id"`
	ReferenceNumber string          `json:"reference_number"`
	Status          string          `json:"status" validate:"omitempty,oneof=pending completed"`
}

type updateRequest struct {
	TransactionDate *string          `json:"transaction_date"`
	Category        *string          `json:"category"`
	Subcategory     *string          `json:"subcategory"`
	Amount          *decimal.Decimal `json:"amount"`
	PaymentMethod   *string          `json:"payment_method"`
	Description     *string          `json:"description"`
	ReferenceNumber *string          `json:"reference_number"`
	Status          *string          `json:"status" validate:"omitempty,oneof=pending completed"`
}

// CreateIncome records an income transaction.
func CreateIncome(svc internaltransactions.Service, logg *logger.Logger) http.HandlerFunc {
	return create(svc.CreateIncome, logg)
}

// CreateExpense records an expense transaction.
func CreateExpense(svc internaltransactions.Service, logg *logger.Logger) http.HandlerFunc {
	return create(svc.CreateExpense, logg)
}

func create(fn func(ctx context.Context, input internaltransactions.CreateTransactionInput) (*models.Transaction, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internaltransactions.CreateTransactionInput{
			Category:        req.Category,
			Subcategory:     req.Subcategory,
			Amount:          req.Amount,
			Description:     req.Description,
			CustomerID:      req.CustomerID,
			VendorID:        req.VendorID,
			InvoiceID:       req.InvoiceID,
			ReferenceNumber: req.ReferenceNumber,
		}
		if req.TransactionDate != "" {
			date, err := parseDate(req.TransactionDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Date = *date
		}
		if req.PaymentMethod != "" {
			method, err := enums.ParsePaymentMethod(req.PaymentMethod)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
				return
			}
			input.PaymentMethod = method
		}
		if req.Status != "" {
			input.Status = enums.TransactionStatus(req.Status)
		}
		if actorID, ok := middleware.ActorIDFromContext(r.Context()); ok {
			input.CreatedBy = &actorID
		}

		transaction, err := fn(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transaction)
	}
}

// List returns a filtered transaction page.
func List(svc internaltransactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := internaltransactions.ListFilter{}
		if raw := strings.TrimSpace(r.URL.Query().Get("transaction_type")); raw != "" {
			txType, err := enums.ParseTransactionType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type"))
				return
			}
			filter.Type = &txType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			filter.Category = &raw
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseTransactionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction status"))
				return
			}
			filter.Status = &status
		}
		if filter.From, err = validators.ParseQueryDate(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryDate(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactions, err := svc.List(r.Context(), filter, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactions)
	}
}

// Detail returns one transaction.
func Detail(svc internaltransactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTransactionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transaction, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transaction)
	}
}

// Update edits a pending transaction; completed ones are immutable.
func Update(svc internaltransactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTransactionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internaltransactions.UpdateTransactionInput{
			Category:        req.Category,
			Subcategory:     req.Subcategory,
			Amount:          req.Amount,
			Description:     req.Description,
			ReferenceNumber: req.ReferenceNumber,
		}
		if req.TransactionDate != nil {
			date, err := parseDate(*req.TransactionDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Date = date
		}
		if req.PaymentMethod != nil {
			method, err := enums.ParsePaymentMethod(*req.PaymentMethod)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
				return
			}
			input.PaymentMethod = &method
		}
		if req.Status != nil {
			status := enums.TransactionStatus(*req.Status)
			input.Status = &status
		}

		transaction, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transaction)
	}
}

// Delete removes a pending transaction.
func Delete(svc internaltransactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTransactionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parseTransactionID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "transactionId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id")
	}
	return id, nil
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "dates must be YYYY-MM-DD")
	}
	return &value, nil
}
