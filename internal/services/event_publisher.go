package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mystore/internal/kafka"
	"mystore/internal/models"

	"github.com/shopspring/decimal"
)

type OrderCreatedEvent struct {
	OrderID     uint             `json:"order_id"`
	CustomerID  uint             `json:"customer_id"`
	Status      string           `json:"status"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Items       []OrderEventItem `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
}

type OrderEventItem struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type kafkaOrderPublisher struct {
	producer kafka.IProducer
}

func NewKafkaOrderPublisher(producer kafka.IProducer) OrderEventPublisher {
	return &kafkaOrderPublisher{producer: producer}
}

// PublishOrderCreated pushes one OrderCreatedEvent. The producer's network timeouts bound
// the push; ctx only short-circuits an already cancelled call.
func (p *kafkaOrderPublisher) PublishOrderCreated(ctx context.Context, order *models.Order, customer *models.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := NewOrderCreatedEvent(order, customer)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.producer.Push([][]byte{payload})
}

func NewOrderCreatedEvent(order *models.Order, customer *models.Customer) OrderCreatedEvent {
	event := OrderCreatedEvent{
		OrderID:     order.ID,
		CustomerID:  customer.ID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		Items:       make([]OrderEventItem, 0, len(order.Items)),
		CreatedAt:   order.CreatedAt,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderEventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return event
}
