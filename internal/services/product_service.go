package services

import (
	"context"
	"fmt"
	"strings"

	"mystore/internal/models"
	"mystore/internal/repository"
	"mystore/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductInput holds the writable product fields. On partial updates nil means unchanged;
// an empty Code clears it.
type ProductInput struct {
	Name        *string
	Code        *string
	Description *string
	Price       *decimal.Decimal
}

type ProductService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
}

type productService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	logger      *logger.Logger
}

func NewProductService(db *gorm.DB, productRepo repository.ProductRepository, log *logger.Logger) ProductService {
	return &productService{
		db:          db,
		productRepo: productRepo,
		logger:      log.WithComponent("product_service"),
	}
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil {
		return nil, validationf("name is required")
	}
	if in.Price == nil {
		return nil, validationf("price is required")
	}

	product := &models.Product{}
	if err := applyProductInput(product, in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithDB(tx)
		if err := checkCodeFree(products, product); err != nil {
			return err
		}
		return products.Create(product)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created", "product_id", product.ID, "price", product.Price.StringFixed(moneyPlaces))
	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.productRepo.WithDB(s.db.WithContext(ctx)).GetByID(id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.productRepo.WithDB(s.db.WithContext(ctx)).GetAll()
}

// UpdateProduct changes the catalog price only. Lines already on orders keep their
// snapshot until they are written again.
func (s *productService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	var product *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithDB(tx)
		var err error
		product, err = products.GetByID(id)
		if err != nil {
			return notFound(err, "product", id)
		}
		if err := applyProductInput(product, in); err != nil {
			return err
		}
		if err := checkCodeFree(products, product); err != nil {
			return err
		}
		return products.Update(product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct refuses to delete a product that order items still reference.
func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithDB(tx)
		if _, err := products.GetByID(id); err != nil {
			return notFound(err, "product", id)
		}
		inUse, err := products.InUse(id)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: product %d is referenced by order items", ErrConflict, id)
		}
		return products.Delete(id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Product deleted", "product_id", id)
	return nil
}

func applyProductInput(product *models.Product, in ProductInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return validationf("name may not be blank")
		}
		if len(name) > 100 {
			return validationf("name is longer than 100 characters")
		}
		product.Name = name
	}
	if in.Code != nil {
		code := optionalString(*in.Code)
		if code != nil && len(*code) > 50 {
			return validationf("code is longer than 50 characters")
		}
		product.Code = code
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		if err := checkMoney("price", *in.Price, priceDigits); err != nil {
			return err
		}
		product.Price = *in.Price
	}
	return nil
}

func checkCodeFree(products repository.ProductRepository, product *models.Product) error {
	if product.Code == nil {
		return nil
	}
	taken, err := products.CodeTaken(*product.Code, product.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: product code %q already exists", ErrConflict, *product.Code)
	}
	return nil
}
