package repository

import (
	"mystore/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	WithDB(db *gorm.DB) OrderRepository
	Create(order *models.Order) error
	GetByID(id uint, scopes ...Scope) (*models.Order, error)
	GetForUpdate(id uint, scopes ...Scope) (*models.Order, error)
	GetAll(scopes ...Scope) ([]models.Order, error)
	UpdateHeader(order *models.Order) error
	UpdateTotal(id uint, total decimal.Decimal) error
	Delete(id uint) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithDB(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Omit(clause.Associations).Create(order).Error
}

// GetByID loads the order with its items and their products.
func (r *orderRepository) GetByID(id uint, scopes ...Scope) (*models.Order, error) {
	var order models.Order
	err := r.db.Scopes(scopes...).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	fillProductNames(order.Items)
	return &order, nil
}

// GetForUpdate locks the order row for the rest of the transaction. Items are not loaded.
func (r *orderRepository) GetForUpdate(id uint, scopes ...Scope) (*models.Order, error) {
	var order models.Order
	err := r.db.Scopes(scopes...).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetAll(scopes ...Scope) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Scopes(scopes...).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		Order("orders.id").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	for i := range orders {
		fillProductNames(orders[i].Items)
	}
	return orders, nil
}

// UpdateHeader writes the customer and status columns only.
func (r *orderRepository) UpdateHeader(order *models.Order) error {
	return r.db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"customer_id": order.CustomerID,
		"status":      order.Status,
	}).Error
}

func (r *orderRepository) UpdateTotal(id uint, total decimal.Decimal) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Update("total_amount", total).Error
}

func (r *orderRepository) Delete(id uint) error {
	return r.db.Delete(&models.Order{}, id).Error
}

func fillProductNames(items []models.OrderItem) {
	for i := range items {
		if items[i].Product != nil {
			items[i].ProductName = items[i].Product.Name
		}
	}
}
