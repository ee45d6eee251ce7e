package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mystore/internal/models"
	"mystore/internal/repository"
	"mystore/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type UserService interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

type userService struct {
	db           *gorm.DB
	userRepo     repository.UserRepository
	customerRepo repository.CustomerRepository
	logger       *logger.Logger
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository, customerRepo repository.CustomerRepository, log *logger.Logger) UserService {
	return &userService{
		db:           db,
		userRepo:     userRepo,
		customerRepo: customerRepo,
		logger:       log.WithComponent("user_service"),
	}
}

// CreateUser hashes password and stores the user together with its customer profile.
func (s *userService) CreateUser(ctx context.Context, user *models.User, password string) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return validationf("username is required")
	}
	if len(password) < minPasswordLength {
		return validationf("password must be at least %d characters", minPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedPassword)
	user.IsActive = true

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithDB(tx)
		if _, err := users.GetByUsername(user.Username); err == nil {
			return fmt.Errorf("%w: username %q is taken", ErrConflict, user.Username)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := users.Create(user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: username %q is taken", ErrConflict, user.Username)
			}
			return err
		}
		return s.customerRepo.WithDB(tx).Create(customerFor(user))
	})
	if err != nil {
		return err
	}

	s.logger.Info("User created", "user_id", user.ID, "username", user.Username, "is_staff", user.IsStaff)
	return nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.WithDB(s.db.WithContext(ctx)).GetByID(id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.WithDB(s.db.WithContext(ctx)).GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks the credentials of an active user. Every failure looks the same
// to the caller.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Failed login attempt", "username", username)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	return user, nil
}

// UpdateUser saves the user and copies its display name and email onto the customer.
func (s *userService) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithDB(tx).Update(user); err != nil {
			return err
		}

		customers := s.customerRepo.WithDB(tx)
		customer, err := customers.GetByUserID(user.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return customers.Create(customerFor(user))
		}
		if err != nil {
			return err
		}
		customer.Name = user.DisplayName()
		customer.Email = optionalString(user.Email)
		return customers.Update(customer)
	})
}

func customerFor(user *models.User) *models.Customer {
	return &models.Customer{
		UserID: user.ID,
		Name:   user.DisplayName(),
		Email:  optionalString(user.Email),
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
