package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artvpp/books-backend/api/middleware"
	"github.com/artvpp/books-backend/api/responses"
	"github.com/artvpp/books-backend/api/validators"
	"github.com/artvpp/books-backend/internal/automation"
	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/payments"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/logger"
)

type orderItemRequest struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type placeOrderRequest struct {
	OrderReference string             `json:"order_reference" validate:"required"`
	CustomerName   string             `json:"customer_name" validate:"required"`
	CustomerEmail  string             `json:"customer_email" validate:"required,email"`
	CustomerPhone  string             `json:"customer_phone"`
	Address        string             `json:"address"`
	PlacedAt       *time.Time         `json:"placed_at"`
	Items          []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type reconcileRequest struct {
	InvoiceID       uuid.UUID       `json:"invoice_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     *time.Time      `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

// Place runs the order-placement bookkeeping: customer upsert, sales
// invoice and completed income transaction in one database transaction.
func Place(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := automation.OrderInput{
			OrderReference: req.OrderReference,
			CustomerName:   req.CustomerName,
			CustomerEmail:  req.CustomerEmail,
			CustomerPhone:  req.CustomerPhone,
			Address:        req.Address,
		}
		if req.PlacedAt != nil {
			input.PlacedAt = *req.PlacedAt
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, invoices.ItemInput{
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}

		result, err := svc.CreateSalesInvoiceForOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ReconcilePayment records a gateway settlement against an order invoice.
func ReconcilePayment(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reconcileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !req.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive"))
			return
		}

		input := payments.RecordPaymentInput{
			InvoiceID:       req.InvoiceID,
			Amount:          req.Amount,
			Method:          enums.PaymentMethodOrderPayment,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
		}
		if req.PaymentDate != nil {
			input.Date = *req.PaymentDate
		}
		if actorID, ok := middleware.ActorIDFromContext(r.Context()); ok {
			input.CreatedBy = &actorID
		}

		payment, err := svc.ReconcileOrderPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}
