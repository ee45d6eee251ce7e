package repository

import (
	"mystore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderItemRepository interface {
	WithDB(db *gorm.DB) OrderItemRepository
	Create(orderItem *models.OrderItem) error
	GetByID(id uint, scopes ...Scope) (*models.OrderItem, error)
	GetByOrderID(orderID uint) ([]models.OrderItem, error)
	Update(orderItem *models.OrderItem) error
	Delete(id uint) error
}

type orderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

func (r *orderItemRepository) WithDB(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

func (r *orderItemRepository) Create(orderItem *models.OrderItem) error {
	return r.db.Omit(clause.Associations).Create(orderItem).Error
}

func (r *orderItemRepository) GetByID(id uint, scopes ...Scope) (*models.OrderItem, error) {
	var orderItem models.OrderItem
	err := r.db.Scopes(scopes...).Preload("Product").First(&orderItem, id).Error
	if err != nil {
		return nil, err
	}
	if orderItem.Product != nil {
		orderItem.ProductName = orderItem.Product.Name
	}
	return &orderItem, nil
}

// GetByOrderID returns the order's items in insertion order, products preloaded.
func (r *orderItemRepository) GetByOrderID(orderID uint) ([]models.OrderItem, error) {
	var orderItems []models.OrderItem
	err := r.db.Preload("Product").Where("order_id = ?", orderID).Order("id").Find(&orderItems).Error
	if err != nil {
		return nil, err
	}
	fillProductNames(orderItems)
	return orderItems, nil
}

func (r *orderItemRepository) Update(orderItem *models.OrderItem) error {
	return r.db.Model(&models.OrderItem{}).Where("id = ?", orderItem.ID).Updates(map[string]interface{}{
		"product_id": orderItem.ProductID,
		"quantity":   orderItem.Quantity,
		"unit_price": orderItem.UnitPrice,
		"subtotal":   orderItem.Subtotal,
	}).Error
}

func (r *orderItemRepository) Delete(id uint) error {
	return r.db.Delete(&models.OrderItem{}, id).Error
}
