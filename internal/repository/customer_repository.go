package repository

import (
	"mystore/internal/models"

	"gorm.io/gorm"
)

type CustomerRepository interface {
	WithDB(db *gorm.DB) CustomerRepository
	Create(customer *models.Customer) error
	GetByID(id uint, scopes ...Scope) (*models.Customer, error)
	GetByUserID(userID uint) (*models.Customer, error)
	Exists(id uint) (bool, error)
	GetAll(scopes ...Scope) ([]models.Customer, error)
	Update(customer *models.Customer) error
	Delete(id uint) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) WithDB(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(customer *models.Customer) error {
	return r.db.Omit("User").Create(customer).Error
}

func (r *customerRepository) GetByID(id uint, scopes ...Scope) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Scopes(scopes...).First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) GetByUserID(userID uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Where("user_id = ?", userID).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Customer{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *customerRepository) GetAll(scopes ...Scope) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.Scopes(scopes...).Order("id").Find(&customers).Error
	return customers, err
}

func (r *customerRepository) Update(customer *models.Customer) error {
	return r.db.Omit("User").Save(customer).Error
}

func (r *customerRepository) Delete(id uint) error {
	return r.db.Delete(&models.Customer{}, id).Error
}
