package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mystore/internal/models"
	"mystore/internal/policy"
	"mystore/internal/repository"
	"mystore/pkg/logger"

	"gorm.io/gorm"
)

// CustomerUpdate holds the writable customer fields; nil means unchanged.
type CustomerUpdate struct {
	Name        *string
	PhoneNumber *string
	Email       *string
}

type CustomerService interface {
	EnsureCustomer(ctx context.Context, user *models.User) (*models.Customer, error)
	ListCustomers(ctx context.Context, p policy.Principal) ([]models.Customer, error)
	GetCustomer(ctx context.Context, p policy.Principal, id uint) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, p policy.Principal, id uint, in CustomerUpdate) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, p policy.Principal, id uint) error
}

type customerService struct {
	db           *gorm.DB
	customerRepo repository.CustomerRepository
	logger       *logger.Logger
}

func NewCustomerService(db *gorm.DB, customerRepo repository.CustomerRepository, log *logger.Logger) CustomerService {
	return &customerService{
		db:           db,
		customerRepo: customerRepo,
		logger:       log.WithComponent("customer_service"),
	}
}

// EnsureCustomer returns the customer bound to user, creating it on first sight.
func (s *customerService) EnsureCustomer(ctx context.Context, user *models.User) (*models.Customer, error) {
	customers := s.customerRepo.WithDB(s.db.WithContext(ctx))

	customer, err := customers.GetByUserID(user.ID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	customer = customerFor(user)
	if err := customers.Create(customer); err != nil {
		// lost a race with a concurrent first request
		if existing, getErr := customers.GetByUserID(user.ID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	s.logger.Info("Customer provisioned", "customer_id", customer.ID, "user_id", user.ID)
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, p policy.Principal) ([]models.Customer, error) {
	return s.customerRepo.WithDB(s.db.WithContext(ctx)).GetAll(policy.CustomerScope(p))
}

func (s *customerService) GetCustomer(ctx context.Context, p policy.Principal, id uint) (*models.Customer, error) {
	customer, err := s.customerRepo.WithDB(s.db.WithContext(ctx)).GetByID(id, policy.CustomerScope(p))
	if err != nil {
		return nil, notFound(err, "customer", id)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, p policy.Principal, id uint, in CustomerUpdate) (*models.Customer, error) {
	if in.Email != nil && !policy.WritableFields(p.Role(), policy.ResourceCustomer).Has(policy.FieldEmail) {
		return nil, fmt.Errorf("%w: email is read-only", ErrPermissionDenied)
	}

	customer, err := s.GetCustomer(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !policy.IsAdminOrOwner(p, customer.UserID) {
		return nil, fmt.Errorf("%w: customer %d", ErrPermissionDenied, id)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationf("name may not be blank")
		}
		if len(name) > 100 {
			return nil, validationf("name is longer than 100 characters")
		}
		customer.Name = name
	}
	if in.PhoneNumber != nil {
		phone := optionalString(*in.PhoneNumber)
		if phone != nil && len(*phone) > 20 {
			return nil, validationf("phone_number is longer than 20 characters")
		}
		customer.PhoneNumber = phone
	}
	if in.Email != nil {
		customer.Email = optionalString(*in.Email)
	}

	if err := s.customerRepo.WithDB(s.db.WithContext(ctx)).Update(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes the customer and, by cascade, its orders. Staff only.
func (s *customerService) DeleteCustomer(ctx context.Context, p policy.Principal, id uint) error {
	if !policy.IsStaff(p) {
		return fmt.Errorf("%w: only staff may delete customers", ErrPermissionDenied)
	}
	customers := s.customerRepo.WithDB(s.db.WithContext(ctx))
	if _, err := customers.GetByID(id); err != nil {
		return notFound(err, "customer", id)
	}
	if err := customers.Delete(id); err != nil {
		return err
	}
	s.logger.Info("Customer deleted", "customer_id", id)
	return nil
}
