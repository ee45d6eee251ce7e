package handlers

import (
	"net/http"

	"mystore/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth      *AuthHandler
	Customers *CustomerHandler
	Products  *ProductHandler
	Orders    *OrderHandler
}

func NewRouter(log *logger.Logger, resolver PrincipalResolver, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", RequireAuth(resolver), h.Auth.Logout)
		auth.GET("/me", RequireAuth(resolver), h.Auth.Me)
		auth.PATCH("/me", RequireAuth(resolver), h.Auth.UpdateMe)
	}

	customers := api.Group("/customers", RequireAuth(resolver))
	{
		customers.GET("", h.Customers.ListCustomers)
		customers.GET("/:id", h.Customers.GetCustomer)
		customers.PUT("/:id", h.Customers.UpdateCustomer)
		customers.PATCH("/:id", h.Customers.UpdateCustomer)
		customers.DELETE("/:id", h.Customers.DeleteCustomer)
	}

	products := api.Group("/products", OptionalAuth(resolver), ReadOnlyUnlessStaff())
	{
		products.GET("", h.Products.ListProducts)
		products.GET("/:id", h.Products.GetProduct)
		products.POST("", h.Products.CreateProduct)
		products.PUT("/:id", h.Products.UpdateProduct)
		products.PATCH("/:id", h.Products.UpdateProduct)
		products.DELETE("/:id", h.Products.DeleteProduct)
	}

	orders := api.Group("/orders", RequireAuth(resolver))
	{
		orders.GET("", h.Orders.ListOrders)
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PUT("/:id", h.Orders.UpdateOrder)
		orders.PATCH("/:id", h.Orders.UpdateOrder)
		orders.DELETE("/:id", h.Orders.DeleteOrder)

		orders.GET("/:id/items", h.Orders.ListOrderItems)
		orders.POST("/:id/items", h.Orders.AddOrderItem)
		orders.GET("/:id/items/:item_id", h.Orders.GetOrderItem)
		orders.PATCH("/:id/items/:item_id", h.Orders.UpdateOrderItem)
		orders.DELETE("/:id/items/:item_id", h.Orders.DeleteOrderItem)
	}

	return router
}
