package services

import (
	"context"
	"errors"
	"fmt"
	"mystore/internal/models"
	"mystore/internal/policy"
	"mystore/internal/repository"
	"mystore/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItemInput is one requested line: a product and how many of it.
type OrderItemInput struct {
	ProductID uint
	Quantity  int
}

// OrderInput carries the writable order fields. CustomerID and Status are honored for
// staff only. On update, nil Items leaves the item set alone while an empty slice
// removes every item.
type OrderInput struct {
	CustomerID *uint
	Status     *models.OrderStatus
	Items      []OrderItemInput
}

// OrderItemUpdate patches one line. Nil fields stay unchanged.
type OrderItemUpdate struct {
	ProductID *uint
	Quantity  *int
}

// OrderNotifier is told about every committed order creation. Implementations must not
// fail the caller.
type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order, customer *models.Customer)
}

// OrderService owns every write to orders and order items. total_amount and subtotal are
// recomputed inside the same transaction as the item change that affects them.
type OrderService interface {
	CreateOrder(ctx context.Context, p policy.Principal, in OrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, p policy.Principal, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, p policy.Principal) ([]models.Order, error)
	UpdateOrder(ctx context.Context, p policy.Principal, id uint, in OrderInput) (*models.Order, error)
	DeleteOrder(ctx context.Context, p policy.Principal, id uint) error

	// Order Items methods
	ListOrderItems(ctx context.Context, p policy.Principal, orderID uint) ([]models.OrderItem, error)
	GetOrderItem(ctx context.Context, p policy.Principal, orderID, itemID uint) (*models.OrderItem, error)
	AddOrderItem(ctx context.Context, p policy.Principal, orderID uint, in OrderItemInput) (*models.OrderItem, error)
	UpdateOrderItem(ctx context.Context, p policy.Principal, orderID, itemID uint, in OrderItemUpdate) (*models.OrderItem, error)
	DeleteOrderItem(ctx context.Context, p policy.Principal, orderID, itemID uint) error

	RecomputeTotal(ctx context.Context, orderID uint) (decimal.Decimal, error)
}

type orderService struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	orderItemRepo repository.OrderItemRepository
	productRepo   repository.ProductRepository
	customerRepo  repository.CustomerRepository
	notifier      OrderNotifier
	logger        *logger.Logger
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	orderItemRepo repository.OrderItemRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	notifier OrderNotifier,
	log *logger.Logger,
) OrderService {
	return &orderService{
		db:            db,
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		productRepo:   productRepo,
		customerRepo:  customerRepo,
		notifier:      notifier,
		logger:        log.WithComponent("order_service"),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, p policy.Principal, in OrderInput) (*models.Order, error) {
	if err := checkRestrictedFields(p, in); err != nil {
		return nil, err
	}

	customerID := p.CustomerID
	if in.CustomerID != nil {
		customerID = *in.CustomerID
	}
	status := models.OrderPending
	if in.Status != nil {
		status = *in.Status
	}
	if !status.Valid() {
		return nil, validationf("invalid status %q", status)
	}
	if err := validateItemInputs(in.Items); err != nil {
		return nil, err
	}

	var order *models.Order
	var customer *models.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		customer, err = s.customerRepo.WithDB(tx).GetByID(customerID)
		if err != nil {
			return notFound(err, "customer", customerID)
		}

		created := &models.Order{
			CustomerID:  customer.ID,
			Status:      status,
			TotalAmount: decimal.Zero,
		}
		if err := s.orderRepo.WithDB(tx).Create(created); err != nil {
			return err
		}

		for _, item := range in.Items {
			if _, err := s.createItem(tx, created.ID, item); err != nil {
				return err
			}
		}

		if _, err := s.recompute(tx, created.ID); err != nil {
			return err
		}

		order, err = s.orderRepo.WithDB(tx).GetByID(created.ID)
		return err
	})
	if err != nil {
		s.logger.Warn("Create order failed", "customer_id", customerID, "error", err)
		return nil, err
	}

	s.logger.Info("Order created", "order_id", order.ID, "customer_id", customer.ID, "total_amount", order.TotalAmount.StringFixed(moneyPlaces))

	// committed; the order stands whatever the notifier does
	if s.notifier != nil {
		s.notifier.NotifyOrderCreated(ctx, order, customer)
	}
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, p policy.Principal, id uint) (*models.Order, error) {
	order, err := s.orderRepo.WithDB(s.db.WithContext(ctx)).GetByID(id, policy.OrderScope(p))
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, p policy.Principal) ([]models.Order, error) {
	return s.orderRepo.WithDB(s.db.WithContext(ctx)).GetAll(policy.OrderScope(p))
}

func (s *orderService) UpdateOrder(ctx context.Context, p policy.Principal, id uint, in OrderInput) (*models.Order, error) {
	if err := checkRestrictedFields(p, in); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, validationf("invalid status %q", *in.Status)
	}
	if err := validateItemInputs(in.Items); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockOrder(tx, p, id)
		if err != nil {
			return err
		}

		if in.CustomerID != nil || in.Status != nil {
			if in.CustomerID != nil && *in.CustomerID != locked.CustomerID {
				exists, err := s.customerRepo.WithDB(tx).Exists(*in.CustomerID)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("%w: customer %d", ErrNotFound, *in.CustomerID)
				}
				locked.CustomerID = *in.CustomerID
			}
			if in.Status != nil {
				locked.Status = *in.Status
			}
			if err := s.orderRepo.WithDB(tx).UpdateHeader(locked); err != nil {
				return err
			}
		}

		if in.Items != nil {
			if err := s.reconcileItems(tx, locked.ID, in.Items); err != nil {
				return err
			}
			if _, err := s.recompute(tx, locked.ID); err != nil {
				return err
			}
		}

		order, err = s.orderRepo.WithDB(tx).GetByID(locked.ID)
		return err
	})
	if err != nil {
		s.logger.Warn("Update order failed", "order_id", id, "error", err)
		return nil, err
	}

	s.logger.Info("Order updated", "order_id", order.ID, "total_amount", order.TotalAmount.StringFixed(moneyPlaces))
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, p policy.Principal, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockOrder(tx, p, id); err != nil {
			return err
		}
		return s.orderRepo.WithDB(tx).Delete(id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Order deleted", "order_id", id)
	return nil
}

// Order Items methods implementation

func (s *orderService) ListOrderItems(ctx context.Context, p policy.Principal, orderID uint) ([]models.OrderItem, error) {
	order, err := s.GetOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	return order.Items, nil
}

func (s *orderService) GetOrderItem(ctx context.Context, p policy.Principal, orderID, itemID uint) (*models.OrderItem, error) {
	item, err := s.orderItemRepo.WithDB(s.db.WithContext(ctx)).GetByID(itemID, policy.OrderItemScope(p), inOrder(orderID))
	if err != nil {
		return nil, notFound(err, "order item", itemID)
	}
	return item, nil
}

func (s *orderService) AddOrderItem(ctx context.Context, p policy.Principal, orderID uint, in OrderItemInput) (*models.OrderItem, error) {
	if err := validateItemInputs([]OrderItemInput{in}); err != nil {
		return nil, err
	}

	var item *models.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockOrder(tx, p, orderID); err != nil {
			return err
		}
		created, err := s.createItem(tx, orderID, in)
		if err != nil {
			return err
		}
		if _, err := s.recompute(tx, orderID); err != nil {
			return err
		}
		item, err = s.orderItemRepo.WithDB(tx).GetByID(created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *orderService) UpdateOrderItem(ctx context.Context, p policy.Principal, orderID, itemID uint, in OrderItemUpdate) (*models.OrderItem, error) {
	if in.Quantity != nil && *in.Quantity <= 0 {
		return nil, validationf("quantity must be greater than zero")
	}
	if in.ProductID != nil && *in.ProductID == 0 {
		return nil, validationf("product is required")
	}

	var item *models.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockOrder(tx, p, orderID); err != nil {
			return err
		}
		items := s.orderItemRepo.WithDB(tx)
		current, err := items.GetByID(itemID, inOrder(orderID))
		if err != nil {
			return notFound(err, "order item", itemID)
		}

		if in.ProductID != nil {
			current.ProductID = *in.ProductID
		}
		if in.Quantity != nil {
			current.Quantity = *in.Quantity
		}
		product, err := s.productRepo.WithDB(tx).GetByID(current.ProductID)
		if err != nil {
			return notFound(err, "product", current.ProductID)
		}
		if err := priceItem(current, product.Price); err != nil {
			return err
		}
		if err := items.Update(current); err != nil {
			return err
		}
		if _, err := s.recompute(tx, orderID); err != nil {
			return err
		}
		item, err = items.GetByID(itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *orderService) DeleteOrderItem(ctx context.Context, p policy.Principal, orderID, itemID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockOrder(tx, p, orderID); err != nil {
			return err
		}
		items := s.orderItemRepo.WithDB(tx)
		if _, err := items.GetByID(itemID, inOrder(orderID)); err != nil {
			return notFound(err, "order item", itemID)
		}
		if err := items.Delete(itemID); err != nil {
			return err
		}
		_, err := s.recompute(tx, orderID)
		return err
	})
}

func (s *orderService) RecomputeTotal(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.orderRepo.WithDB(tx).GetForUpdate(orderID); err != nil {
			return notFound(err, "order", orderID)
		}
		var err error
		total, err = s.recompute(tx, orderID)
		return err
	})
	return total, err
}

// lockOrder loads the order visible to p, locks its row, and checks ownership.
func (s *orderService) lockOrder(tx *gorm.DB, p policy.Principal, id uint) (*models.Order, error) {
	order, err := s.orderRepo.WithDB(tx).GetForUpdate(id, policy.OrderScope(p))
	if err != nil {
		return nil, notFound(err, "order", id)
	}

	customer, err := s.customerRepo.WithDB(tx).GetByID(order.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d references missing customer %d", ErrConflict, id, order.CustomerID)
		}
		return nil, err
	}
	if !policy.IsAdminOrOwner(p, customer.UserID) {
		return nil, fmt.Errorf("%w: order %d", ErrPermissionDenied, id)
	}
	return order, nil
}

// reconcileItems applies the requested lines keyed by product id: lines for products
// already on the order are updated and re-priced, new products get new lines, and lines
// for products no longer requested are deleted. Several existing lines for one product
// collapse into the oldest one; repeated products in the request keep the last quantity.
func (s *orderService) reconcileItems(tx *gorm.DB, orderID uint, incoming []OrderItemInput) error {
	items := s.orderItemRepo.WithDB(tx)

	current, err := items.GetByOrderID(orderID)
	if err != nil {
		return err
	}

	existing := make(map[uint]*models.OrderItem, len(current))
	var stale []uint
	for i := range current {
		line := &current[i]
		if _, dup := existing[line.ProductID]; dup {
			stale = append(stale, line.ID)
			continue
		}
		existing[line.ProductID] = line
	}

	wanted := make(map[uint]int, len(incoming))
	var productIDs []uint
	for _, in := range incoming {
		if _, seen := wanted[in.ProductID]; !seen {
			productIDs = append(productIDs, in.ProductID)
		}
		wanted[in.ProductID] = in.Quantity
	}

	for _, productID := range productIDs {
		quantity := wanted[productID]
		line, ok := existing[productID]
		if !ok {
			if _, err := s.createItem(tx, orderID, OrderItemInput{ProductID: productID, Quantity: quantity}); err != nil {
				return err
			}
			continue
		}

		product, err := s.productRepo.WithDB(tx).GetByID(productID)
		if err != nil {
			return notFound(err, "product", productID)
		}
		line.Quantity = quantity
		if err := priceItem(line, product.Price); err != nil {
			return err
		}
		if err := items.Update(line); err != nil {
			return err
		}
	}

	for productID, line := range existing {
		if _, keep := wanted[productID]; !keep {
			stale = append(stale, line.ID)
		}
	}
	for _, id := range stale {
		if err := items.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

// createItem snapshots the product's current price onto a new line.
func (s *orderService) createItem(tx *gorm.DB, orderID uint, in OrderItemInput) (*models.OrderItem, error) {
	product, err := s.productRepo.WithDB(tx).GetByID(in.ProductID)
	if err != nil {
		return nil, notFound(err, "product", in.ProductID)
	}

	item := &models.OrderItem{
		OrderID:   orderID,
		ProductID: product.ID,
		Quantity:  in.Quantity,
	}
	if err := priceItem(item, product.Price); err != nil {
		return nil, err
	}
	if err := s.orderItemRepo.WithDB(tx).Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

// recompute writes Σ subtotal onto the order and returns it.
func (s *orderService) recompute(tx *gorm.DB, orderID uint) (decimal.Decimal, error) {
	items, err := s.orderItemRepo.WithDB(tx).GetByOrderID(orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := ComputeTotal(items)
	if err := checkMoney("total amount", total, amountDigits); err != nil {
		return decimal.Zero, err
	}
	if err := s.orderRepo.WithDB(tx).UpdateTotal(orderID, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func checkRestrictedFields(p policy.Principal, in OrderInput) error {
	if p.IsStaff {
		return nil
	}
	if in.CustomerID != nil || in.Status != nil {
		return fmt.Errorf("%w: only staff may set customer or status", ErrPermissionDenied)
	}
	return nil
}

func validateItemInputs(items []OrderItemInput) error {
	for i, item := range items {
		if item.ProductID == 0 {
			return validationf("items[%d]: product is required", i)
		}
		if item.Quantity <= 0 {
			return validationf("items[%d]: quantity must be greater than zero", i)
		}
	}
	return nil
}

func inOrder(orderID uint) repository.Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("order_items.order_id = ?", orderID)
	}
}
