package handlers

import (
	"errors"
	"net/http"

	"mystore/internal/policy"
	"mystore/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	productService services.ProductService
}

func NewProductHandler(productService services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

type productRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=100"`
	Code        *string          `json:"code" binding:"omitempty,max=50"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:        r.Name,
		Code:        r.Code,
		Description: r.Description,
		Price:       r.Price,
	}
}

// ReadOnlyUnlessStaff lets anyone read and only staff write.
func ReadOnlyUnlessStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := optionalPrincipal(c)
		if policy.IsAdminOrReadOnly(p, c.Request.Method) {
			c.Next()
			return
		}
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided"})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
	}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := bindFiltered(c, policy.WritableFields(policy.RoleStaff, policy.ResourceProduct), &req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct serves PUT and PATCH. PUT requires name and price.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req productRequest
	if err := bindFiltered(c, policy.WritableFields(policy.RoleStaff, policy.ResourceProduct), &req); err != nil {
		badRequest(c, err)
		return
	}
	if c.Request.Method == http.MethodPut && (req.Name == nil || req.Price == nil) {
		badRequest(c, errors.New("name and price are required"))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
