package handlers

import (
	"errors"
	"net/http"

	"mystore/internal/models"
	"mystore/internal/policy"
	"mystore/internal/services"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService services.CustomerService
}

func NewCustomerHandler(customerService services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

type customerRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=20"`
	Email       *string `json:"email" binding:"omitempty,max=254"`
}

func customerDetail(p policy.Principal, customer *models.Customer) gin.H {
	return gin.H{
		"customer":        customer,
		"writable_fields": policy.WritableFields(p.Role(), policy.ResourceCustomer).Sorted(),
	}
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	customers, err := h.customerService.ListCustomers(c.Request.Context(), currentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	p := currentPrincipal(c)
	customer, err := h.customerService.GetCustomer(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customerDetail(p, customer))
}

// UpdateCustomer serves PUT and PATCH. PUT requires a name.
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	p := currentPrincipal(c)
	var req customerRequest
	if err := bindFiltered(c, policy.WritableFields(p.Role(), policy.ResourceCustomer), &req); err != nil {
		badRequest(c, err)
		return
	}
	if c.Request.Method == http.MethodPut && req.Name == nil {
		badRequest(c, errors.New("name is required"))
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), p, id, services.CustomerUpdate{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customerDetail(p, customer))
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.customerService.DeleteCustomer(c.Request.Context(), currentPrincipal(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
