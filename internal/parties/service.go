package parties

import (
	"context"
	"fmt"
	"strings"

	"github.com/artvpp/books-backend/pkg/db/models"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartyInput carries the shared customer/vendor contact fields.
type PartyInput struct {
	Name        string
	Email       string
	Phone       string
	Address     string
	City        string
	State       string
	Pincode     string
	GSTNumber   string
	PANNumber   string
	CreditLimit decimal.Decimal
}

// CustomerWithBalance pairs a customer with its derived open balance.
type CustomerWithBalance struct {
	models.Customer
	Balance decimal.Decimal `json:"balance"`
}

// VendorWithBalance pairs a vendor with its derived open balance.
type VendorWithBalance struct {
	models.Vendor
	Balance decimal.Decimal `json:"balance"`
}

// Service manages customer and vendor records. Balances are derived from
// open invoices at read time; nothing is stored.
type Service interface {
	CreateCustomer(ctx context.Context, input PartyInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerWithBalance, error)
	ListCustomers(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input PartyInput) (*models.Customer, error)
	SetCustomerActive(ctx context.Context, id uuid.UUID, active bool) error
	EnsureCustomerByEmail(ctx context.Context, tx *gorm.DB, input PartyInput) (*models.Customer, error)

	CreateVendor(ctx context.Context, input PartyInput) (*models.Vendor, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*VendorWithBalance, error)
	ListVendors(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Vendor, error)
	UpdateVendor(ctx context.Context, id uuid.UUID, input PartyInput) (*models.Vendor, error)
	SetVendorActive(ctx context.Context, id uuid.UUID, active bool) error
}

type service struct {
	repo Repository
}

// NewService wires a parties service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parties repository required")
	}
	return &service{repo: repo}, nil
}

func validatePartyInput(input PartyInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CreditLimit.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit limit cannot be negative")
	}
	return nil
}

func (s *service) CreateCustomer(ctx context.Context, input PartyInput) (*models.Customer, error) {
	if err := validatePartyInput(input); err != nil {
		return nil, err
	}
	customer := &models.Customer{ID: uuid.New(), IsActive: true}
	setCustomerFields(customer, input)
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
	}
	return customer, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerWithBalance, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindCustomerByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
	}
	balance, err := s.repo.CustomerOutstanding(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deriving customer balance")
	}
	return &CustomerWithBalance{Customer: *customer, Balance: balance}, nil
}

func (s *service) ListCustomers(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Customer, error) {
	customers, err := s.repo.ListCustomers(ctx, filter, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing customers")
	}
	return customers, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input PartyInput) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := validatePartyInput(input); err != nil {
		return nil, err
	}
	customer, err := s.repo.FindCustomerByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
	}
	setCustomerFields(customer, input)
	if err := s.repo.UpdateCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating customer")
	}
	return customer, nil
}

func (s *service) SetCustomerActive(ctx context.Context, id uuid.UUID, active bool) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindCustomerByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
	}
	customer.IsActive = active
	if err := s.repo.UpdateCustomer(ctx, customer); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating customer")
	}
	return nil
}

// EnsureCustomerByEmail returns the customer with the given email,
// creating one inside the caller's transaction when absent. The
// order-placement automation relies on this.
func (s *service) EnsureCustomerByEmail(ctx context.Context, tx *gorm.DB, input PartyInput) (*models.Customer, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := validatePartyInput(input); err != nil {
		return nil, err
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	existing, err := repo.FindCustomerByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up customer by email")
	}
	if existing != nil {
		return existing, nil
	}

	customer := &models.Customer{ID: uuid.New(), IsActive: true}
	setCustomerFields(customer, input)
	customer.Email = email
	if err := repo.CreateCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
	}
	return customer, nil
}

func (s *service) CreateVendor(ctx context.Context, input PartyInput) (*models.Vendor, error) {
	if err := validatePartyInput(input); err != nil {
		return nil, err
	}
	vendor := &models.Vendor{ID: uuid.New(), IsActive: true}
	setVendorFields(vendor, input)
	if err := s.repo.CreateVendor(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating vendor")
	}
	return vendor, nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*VendorWithBalance, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendor, err := s.repo.FindVendorByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor")
	}
	balance, err := s.repo.VendorOutstanding(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deriving vendor balance")
	}
	return &VendorWithBalance{Vendor: *vendor, Balance: balance}, nil
}

func (s *service) ListVendors(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.Vendor, error) {
	vendors, err := s.repo.ListVendors(ctx, filter, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing vendors")
	}
	return vendors, nil
}

func (s *service) UpdateVendor(ctx context.Context, id uuid.UUID, input PartyInput) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if err := validatePartyInput(input); err != nil {
		return nil, err
	}
	vendor, err := s.repo.FindVendorByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor")
	}
	setVendorFields(vendor, input)
	if err := s.repo.UpdateVendor(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating vendor")
	}
	return vendor, nil
}

func (s *service) SetVendorActive(ctx context.Context, id uuid.UUID, active bool) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendor, err := s.repo.FindVendorByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor")
	}
	vendor.IsActive = active
	if err := s.repo.UpdateVendor(ctx, vendor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating vendor")
	}
	return nil
}

func setCustomerFields(customer *models.Customer, input PartyInput) {
	customer.Name = strings.TrimSpace(input.Name)
	customer.Email = strings.TrimSpace(input.Email)
	customer.Phone = strings.TrimSpace(input.Phone)
	customer.Address = strings.TrimSpace(input.Address)
	customer.City = strings.TrimSpace(input.City)
	customer.State = strings.TrimSpace(input.State)
	customer.Pincode = strings.TrimSpace(input.Pincode)
	customer.GSTNumber = strings.TrimSpace(input.GSTNumber)
	customer.PANNumber = strings.TrimSpace(input.PANNumber)
	customer.CreditLimit = input.CreditLimit
}

func setVendorFields(vendor *models.Vendor, input PartyInput) {
	vendor.Name = strings.TrimSpace(input.Name)
	vendor.Email = strings.TrimSpace(input.Email)
	vendor.Phone = strings.TrimSpace(input.Phone)
	vendor.Address = strings.TrimSpace(input.Address)
	vendor.City = strings.TrimSpace(input.City)
	vendor.State = strings.TrimSpace(input.State)
	vendor.Pincode = strings.TrimSpace(input.Pincode)
	vendor.GSTNumber = strings.TrimSpace(input.GSTNumber)
	vendor.PANNumber = strings.TrimSpace(input.PANNumber)
	vendor.CreditLimit = input.CreditLimit
}
