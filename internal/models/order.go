package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	CustomerID  uint            `json:"customer" gorm:"not null;index"`
	Customer    *Customer       `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Status      OrderStatus     `json:"status" gorm:"size:20;not null;default:'pending'"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Items       []OrderItem     `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (o Order) String() string {
	name := ""
	if o.Customer != nil {
		name = o.Customer.Name
	}
	return fmt.Sprintf("Order #%d - %s", o.ID, name)
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}
