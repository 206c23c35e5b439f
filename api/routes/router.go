package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artvpp/books-backend/api/controllers"
	finconfigcontrollers "github.com/artvpp/books-backend/api/controllers/finconfig"
	invoicecontrollers "github.com/artvpp/books-backend/api/controllers/invoices"
	ledgercontrollers "github.com/artvpp/books-backend/api/controllers/ledger"
	ordercontrollers "github.com/artvpp/books-backend/api/controllers/orders"
	partycontrollers "github.com/artvpp/books-backend/api/controllers/parties"
	paymentcontrollers "github.com/artvpp/books-backend/api/controllers/payments"
	reportcontrollers "github.com/artvpp/books-backend/api/controllers/reports"
	summarycontrollers "github.com/artvpp/books-backend/api/controllers/summaries"
	transactioncontrollers "github.com/artvpp/books-backend/api/controllers/transactions"
	"github.com/artvpp/books-backend/api/middleware"
	"github.com/artvpp/books-backend/internal/automation"
	"github.com/artvpp/books-backend/internal/finconfig"
	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/internal/parties"
	"github.com/artvpp/books-backend/internal/payments"
	"github.com/artvpp/books-backend/internal/reports"
	"github.com/artvpp/books-backend/internal/summaries"
	"github.com/artvpp/books-backend/internal/transactions"
	"github.com/artvpp/books-backend/pkg/config"
	"github.com/artvpp/books-backend/pkg/db"
	"github.com/artvpp/books-backend/pkg/logger"
	"github.com/artvpp/books-backend/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	invoiceService invoices.Service,
	paymentService payments.Service,
	transactionService transactions.Service,
	partyService parties.Service,
	ledgerService ledger.Service,
	summaryService summaries.Service,
	reportService reports.Service,
	configService finconfig.Service,
	automationService automation.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Actor(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/books/v1", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Post("/", partycontrollers.CreateCustomer(partyService, logg))
			r.Get("/", partycontrollers.ListCustomers(partyService, logg))
			r.Get("/{customerId}", partycontrollers.GetCustomer(partyService, logg))
			r.Put("/{customerId}", partycontrollers.UpdateCustomer(partyService, logg))
			r.Patch("/{customerId}/active", partycontrollers.SetCustomerActive(partyService, logg))
			r.Get("/{customerId}/ledger", reportcontrollers.CustomerLedger(reportService, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Post("/", partycontrollers.CreateVendor(partyService, logg))
			r.Get("/", partycontrollers.ListVendors(partyService, logg))
			r.Get("/{vendorId}", partycontrollers.GetVendor(partyService, logg))
			r.Put("/{vendorId}", partycontrollers.UpdateVendor(partyService, logg))
			r.Patch("/{vendorId}/active", partycontrollers.SetVendorActive(partyService, logg))
			r.Get("/{vendorId}/ledger", reportcontrollers.VendorLedger(reportService, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", invoicecontrollers.Create(invoiceService, logg))
			r.Get("/", invoicecontrollers.List(invoiceService, logg))
			r.Get("/{invoiceId}", invoicecontrollers.Detail(invoiceService, logg))
			r.Put("/{invoiceId}", invoicecontrollers.Update(invoiceService, logg))
			r.Delete("/{invoiceId}", invoicecontrollers.Delete(invoiceService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentcontrollers.Record(paymentService, logg))
			r.Get("/", paymentcontrollers.List(paymentService, logg))
			r.Get("/{paymentId}", paymentcontrollers.Detail(paymentService, logg))
			r.Put("/{paymentId}", paymentcontrollers.Update(paymentService, logg))
			r.Delete("/{paymentId}", paymentcontrollers.Delete(paymentService, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/income", transactioncontrollers.CreateIncome(transactionService, logg))
			r.Post("/expense", transactioncontrollers.CreateExpense(transactionService, logg))
			r.Get("/", transactioncontrollers.List(transactionService, logg))
			r.Get("/{transactionId}", transactioncontrollers.Detail(transactionService, logg))
			r.Put("/{transactionId}", transactioncontrollers.Update(transactionService, logg))
			r.Delete("/{transactionId}", transactioncontrollers.Delete(transactionService, logg))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/accounts/{accountName}/balance", ledgercontrollers.Balance(ledgerService, logg))
			r.Get("/accounts/{accountName}/statement", ledgercontrollers.Statement(ledgerService, logg))
			r.Get("/sources/{sourceId}", ledgercontrollers.EntriesForSource(ledgerService, logg))
		})

		r.Route("/summaries", func(r chi.Router) {
			r.Get("/daily", summarycontrollers.Daily(summaryService, logg))
			r.Get("/monthly", summarycontrollers.Monthly(summaryService, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", reportcontrollers.Dashboard(reportService, logg))
			r.Get("/profit-loss", reportcontrollers.ProfitLoss(reportService, logg))
			r.Get("/sales", reportcontrollers.Sales(reportService, logg))
			r.Get("/expenses", reportcontrollers.Expenses(reportService, logg))
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/", finconfigcontrollers.List(configService, logg))
			r.Get("/{configKey}", finconfigcontrollers.Get(configService, logg))
			r.Put("/{configKey}", finconfigcontrollers.Set(configService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Place(automationService, logg))
			r.Post("/payments", ordercontrollers.ReconcilePayment(automationService, logg))
		})
	})

	return r
}
