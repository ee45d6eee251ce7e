package repository

import (
	"mystore/internal/models"

	"gorm.io/gorm"
)

type ProductRepository interface {
	WithDB(db *gorm.DB) ProductRepository
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetAll() ([]models.Product, error)
	Update(product *models.Product) error
	Delete(id uint) error
	CodeTaken(code string, excludeID uint) (bool, error)
	InUse(id uint) (bool, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithDB(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	err := r.db.Order("id").Find(&products).Error
	return products, err
}

func (r *productRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

func (r *productRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

// CodeTaken reports whether another product already uses code.
func (r *productRepository) CodeTaken(code string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Product{}).Where("code = ? AND id <> ?", code, excludeID).Count(&count).Error
	return count > 0, err
}

// InUse reports whether any order item references the product.
func (r *productRepository) InUse(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&count).Error
	return count > 0, err
}
