package handlers

import (
	"errors"
	"net/http"

	"mystore/internal/models"
	"mystore/internal/policy"
	"mystore/internal/services"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

type orderItemRequest struct {
	Product  uint `json:"product"`
	Quantity int  `json:"quantity"`
}

type orderRequest struct {
	Customer *uint               `json:"customer"`
	Status   *models.OrderStatus `json:"status"`
	Items    []orderItemRequest  `json:"items"`
}

func (r orderRequest) input() services.OrderInput {
	in := services.OrderInput{
		CustomerID: r.Customer,
		Status:     r.Status,
	}
	if r.Items != nil {
		in.Items = make([]services.OrderItemInput, 0, len(r.Items))
		for _, item := range r.Items {
			in.Items = append(in.Items, services.OrderItemInput{ProductID: item.Product, Quantity: item.Quantity})
		}
	}
	return in
}

type orderItemPatchRequest struct {
	Product  *uint `json:"product"`
	Quantity *int  `json:"quantity"`
}

func orderDetail(p policy.Principal, order *models.Order) gin.H {
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	return gin.H{
		"order":           order,
		"writable_fields": policy.WritableFields(p.Role(), policy.ResourceOrder).Sorted(),
	}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), currentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	p := currentPrincipal(c)
	order, err := h.orderService.GetOrder(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderDetail(p, order))
}

// CreateOrder ignores customer and status from self-service callers; the order goes to
// their own customer as pending.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	p := currentPrincipal(c)
	var req orderRequest
	if err := bindFiltered(c, policy.WritableFields(p.Role(), policy.ResourceOrder), &req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), p, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderDetail(p, order))
}

// UpdateOrder serves PUT and PATCH. PUT must carry the full item list; PATCH without
// items leaves them alone.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	p := currentPrincipal(c)
	var req orderRequest
	if err := bindFiltered(c, policy.WritableFields(p.Role(), policy.ResourceOrder), &req); err != nil {
		badRequest(c, err)
		return
	}
	if c.Request.Method == http.MethodPut && req.Items == nil {
		badRequest(c, errors.New("items is required"))
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), p, id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderDetail(p, order))
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.orderService.DeleteOrder(c.Request.Context(), currentPrincipal(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Order Items handlers

func (h *OrderHandler) ListOrderItems(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	items, err := h.orderService.ListOrderItems(c.Request.Context(), currentPrincipal(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []models.OrderItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *OrderHandler) GetOrderItem(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "item_id")
	if !ok {
		return
	}
	item, err := h.orderService.GetOrderItem(c.Request.Context(), currentPrincipal(c), orderID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *OrderHandler) AddOrderItem(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	p := currentPrincipal(c)
	var req orderItemRequest
	if err := bindFiltered(c, policy.WritableFields(p.Role(), policy.ResourceOrderItem), &req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.orderService.AddOrderItem(c.Request.Context(), p, orderID, services.OrderItemInput{
		ProductID: req.Product,
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *OrderHandler) UpdateOrderItem(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "item_id")
	if !ok {
		return
	}

	p := currentPrincipal(c)
	var req orderItemPatchRequest
	if err := bindFiltered(c, policy.WritableFields(p.Role(), policy.ResourceOrderItem), &req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.orderService.UpdateOrderItem(c.Request.Context(), p, orderID, itemID, services.OrderItemUpdate{
		ProductID: req.Product,
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *OrderHandler) DeleteOrderItem(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "item_id")
	if !ok {
		return
	}
	if err := h.orderService.DeleteOrderItem(c.Request.Context(), currentPrincipal(c), orderID, itemID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
