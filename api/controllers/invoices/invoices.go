package invoices

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artvpp/books-backend/api/middleware"
	"github.com/artvpp/books-backend/api/responses"
	"github.com/artvpp/books-backend/api/validators"
	internalinvoices "github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/logger"
	"github.com/artvpp/books-backend/pkg/pagination"
)

type itemRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
}

type createRequest struct {
	InvoiceType    string          `json:"invoice_type" validate:"required,oneof=sales purchase"`
	InvoiceDate    string          `json:"invoice_date"`
	DueDate        string          `json:"due_date"`
	CustomerID     *uuid.UUID      `json:"customer_id"`
	VendorID       *uuid.UUID      `json:"vendor_id"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Notes          string          `json:"notes"`
	Items          []itemRequest   `json:"items" validate:"required,min=1,dive"`
}

type updateRequest struct {
	InvoiceDate    *string          `json:"invoice_date"`
	DueDate        *string          `json:"due_date"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
	Notes          *string          `json:"notes"`
	Items          []itemRequest    `json:"items" validate:"omitempty,min=1,dive"`
}

// Create books a new invoice from the posted items.
func Create(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceType, err := enums.ParseInvoiceType(req.InvoiceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice type"))
			return
		}
		date, err := parseDate(req.InvoiceDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dueDate, err := parseDate(req.DueDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalinvoices.CreateInvoiceInput{
			Type:           invoiceType,
			DueDate:        dueDate,
			CustomerID:     req.CustomerID,
			VendorID:       req.VendorID,
			TaxRate:        req.TaxRate,
			DiscountAmount: req.DiscountAmount,
			Notes:          req.Notes,
			Items:          toItemInputs(req.Items),
		}
		if date != nil {
			input.Date = *date
		}
		if actorID, ok := middleware.ActorIDFromContext(r.Context()); ok {
			input.CreatedBy = &actorID
		}

		invoice, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// List returns a filtered invoice page.
func List(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := internalinvoices.ListFilter{}
		if raw := strings.TrimSpace(r.URL.Query().Get("invoice_type")); raw != "" {
			invoiceType, err := enums.ParseInvoiceType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice type"))
				return
			}
			filter.Type = &invoiceType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
				return
			}
			filter.PaymentStatus = &status
		}
		if filter.CustomerID, err = validators.ParseQueryUUID(r, "customer_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.VendorID, err = validators.ParseQueryUUID(r, "vendor_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.From, err = validators.ParseQueryDate(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryDate(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoices, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoices)
	}
}

// Detail returns one invoice with its items.
func Detail(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseInvoiceID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// Update edits an invoice; a non-null items array replaces every line.
func Update(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseInvoiceID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalinvoices.UpdateInvoiceInput{
			TaxRate:        req.TaxRate,
			DiscountAmount: req.DiscountAmount,
			Notes:          req.Notes,
		}
		if req.InvoiceDate != nil {
			date, err := parseDate(*req.InvoiceDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Date = date
		}
		if req.DueDate != nil {
			dueDate, err := parseDate(*req.DueDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.DueDate = dueDate
		}
		if req.Items != nil {
			input.Items = toItemInputs(req.Items)
		}

		invoice, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// Delete removes an unpaid invoice.
func Delete(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseInvoiceID(r)
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

func toItemInputs(items []itemRequest) []internalinvoices.ItemInput {
	inputs := make([]internalinvoices.ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, internalinvoices.ItemInput{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
		})
	}
	return inputs
}

func parseInvoiceID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "invoiceId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice id")
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

func parsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Offset: offset}, nil
}
