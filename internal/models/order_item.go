package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order" gorm:"not null;index"`
	ProductID   uint            `json:"product" gorm:"not null;index"`
	Product     *Product        `json:"-" gorm:"constraint:OnDelete:RESTRICT"`
	ProductName string          `json:"product_name" gorm:"-"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (i OrderItem) String() string {
	name := i.ProductName
	if i.Product != nil {
		name = i.Product.Name
	}
	return fmt.Sprintf("%s x %d", name, i.Quantity)
}

// Price snapshots unitPrice onto the line and recomputes the subtotal.
func (i *OrderItem) Price(unitPrice decimal.Decimal) {
	i.UnitPrice = unitPrice
	i.Subtotal = unitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
