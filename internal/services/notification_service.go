package services

import (
	"context"
	"fmt"
	"time"

	"mystore/internal/models"
	"mystore/pkg/logger"
)

// SMSSender delivers one text message. *sms.Client implements it.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// OrderEventPublisher forwards order events to the event stream.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order, customer *models.Customer) error
}

type NotificationService interface {
	OrderNotifier
}

type notificationService struct {
	sender    SMSSender
	publisher OrderEventPublisher
	currency  string
	timeout   time.Duration
	logger    *logger.Logger
}

// NewNotificationService builds the dispatcher. publisher may be nil.
func NewNotificationService(sender SMSSender, publisher OrderEventPublisher, currency string, timeout time.Duration, log *logger.Logger) NotificationService {
	return &notificationService{
		sender:    sender,
		publisher: publisher,
		currency:  currency,
		timeout:   timeout,
		logger:    log.WithComponent("notification_service"),
	}
}

// NotifyOrderCreated sends the order confirmation SMS and publishes the order event.
// It never fails the caller: every error, including a panic in a channel, is logged
// and dropped.
func (s *notificationService) NotifyOrderCreated(ctx context.Context, order *models.Order, customer *models.Customer) {
	if err := s.sendSMS(ctx, order, customer); err != nil {
		s.logger.Warn("Order notification not sent", "order_id", order.ID, "customer_id", customer.ID, "error", err)
	} else {
		s.logger.Info("Order notification sent", "order_id", order.ID, "customer_id", customer.ID)
	}

	if s.publisher != nil {
		if err := s.publish(ctx, order, customer); err != nil {
			s.logger.Warn("Order event not published", "order_id", order.ID, "error", err)
		}
	}
}

func (s *notificationService) sendSMS(ctx context.Context, order *models.Order, customer *models.Customer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrNotification, r)
		}
	}()

	phone := customer.Phone()
	if phone == "" {
		return fmt.Errorf("%w: customer %d has no phone number", ErrNotification, customer.ID)
	}
	if s.sender == nil {
		return fmt.Errorf("%w: no sms sender configured", ErrNotification)
	}

	sendCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.sender.Send(sendCtx, phone, ComposeOrderMessage(order, customer, s.currency)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	return nil
}

func (s *notificationService) publish(ctx context.Context, order *models.Order, customer *models.Customer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrNotification, r)
		}
	}()

	pubCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.publisher.PublishOrderCreated(pubCtx, order, customer)
}

func (s *notificationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ComposeOrderMessage renders the confirmation text for an order.
func ComposeOrderMessage(order *models.Order, customer *models.Customer, currency string) string {
	return fmt.Sprintf("Hi %s, your order #%d was received.\nTotal: %s %s\nItems: %d. Thanks!",
		customer.Name, order.ID, currency, order.TotalAmount.StringFixed(moneyPlaces), len(order.Items))
}
