package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mystore/internal/models"
	"mystore/internal/policy"
	"mystore/internal/repository"
	"mystore/internal/services"
	"mystore/internal/testutil"
	"mystore/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubResolver maps fixed tokens to identities.
type stubResolver map[string]*services.Identity

func (r stubResolver) Resolve(ctx context.Context, token string) (*services.Identity, error) {
	if identity, ok := r[token]; ok {
		return identity, nil
	}
	return nil, services.ErrUnauthenticated
}

type apiFixture struct {
	db            *gorm.DB
	router        *gin.Engine
	aliceCustomer *models.Customer
	bobCustomer   *models.Customer
	product       *models.Product
}

func identityFor(user *models.User, customer *models.Customer) *services.Identity {
	return &services.Identity{
		User:      user,
		Customer:  customer,
		Principal: policy.Principal{UserID: user.ID, IsStaff: user.IsStaff, CustomerID: customer.ID},
	}
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	staffUser, staffCustomer := testutil.CreateUser(t, db, "staff", true)
	aliceUser, aliceCustomer := testutil.CreateUser(t, db, "alice", false)
	bobUser, bobCustomer := testutil.CreateUser(t, db, "bob", false)
	product := testutil.CreateProduct(t, db, "Widget", "10.00")

	log := logger.Discard()
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)

	userService := services.NewUserService(db, userRepo, customerRepo, log)
	customerService := services.NewCustomerService(db, customerRepo, log)
	productService := services.NewProductService(db, productRepo, log)
	orderService := services.NewOrderService(db, repository.NewOrderRepository(db), repository.NewOrderItemRepository(db),
		productRepo, customerRepo, nil, log)

	resolver := stubResolver{
		"staff": identityFor(staffUser, staffCustomer),
		"alice": identityFor(aliceUser, aliceCustomer),
		"bob":   identityFor(bobUser, bobCustomer),
	}

	router := NewRouter(log, resolver, Handlers{
		Auth:      NewAuthHandler(userService, nil, customerService),
		Customers: NewCustomerHandler(customerService),
		Products:  NewProductHandler(productService),
		Orders:    NewOrderHandler(orderService),
	})

	return &apiFixture{
		db:            db,
		router:        router,
		aliceCustomer: aliceCustomer,
		bobCustomer:   bobCustomer,
		product:       product,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type orderDetailResponse struct {
	Order struct {
		ID          uint            `json:"id"`
		Customer    uint            `json:"customer"`
		Status      string          `json:"status"`
		TotalAmount decimal.Decimal `json:"total_amount"`
		Items       []struct {
			ID          uint            `json:"id"`
			Product     uint            `json:"product"`
			ProductName string          `json:"product_name"`
			Quantity    int             `json:"quantity"`
			UnitPrice   decimal.Decimal `json:"unit_price"`
			Subtotal    decimal.Decimal `json:"subtotal"`
		} `json:"items"`
	} `json:"order"`
	WritableFields []string `json:"writable_fields"`
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) orderDetailResponse {
	t.Helper()
	var resp orderDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestCreateOrder_SelfServiceCustomerAndStatusIgnored(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", "alice", map[string]interface{}{
		"customer":     f.bobCustomer.ID,
		"status":       "completed",
		"total_amount": "999.00",
		"items":        []map[string]interface{}{{"product": f.product.ID, "quantity": 2, "unit_price": "0.01"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeOrder(t, w)
	assert.Equal(t, f.aliceCustomer.ID, resp.Order.Customer)
	assert.Equal(t, "pending", resp.Order.Status)
	assert.True(t, decimal.RequireFromString("20.00").Equal(resp.Order.TotalAmount))
	require.Len(t, resp.Order.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(resp.Order.Items[0].UnitPrice))
	assert.Equal(t, "Widget", resp.Order.Items[0].ProductName)
	assert.Equal(t, []string{"items"}, resp.WritableFields)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, resp.Order.ID).Error)
	assert.Equal(t, f.aliceCustomer.ID, stored.CustomerID)
}

func TestCreateOrder_StaffCustomerAndStatusHonored(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", "staff", map[string]interface{}{
		"customer": f.bobCustomer.ID,
		"status":   "completed",
		"items":    []map[string]interface{}{{"product": f.product.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeOrder(t, w)
	assert.Equal(t, f.bobCustomer.ID, resp.Order.Customer)
	assert.Equal(t, "completed", resp.Order.Status)
	assert.Equal(t, []string{"customer", "items", "status"}, resp.WritableFields)
}

func TestCreateOrder_BadInput(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", "alice", map[string]interface{}{
		"items": []map[string]interface{}{{"product": f.product.ID, "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/orders", "alice", map[string]interface{}{
		"items": []map[string]interface{}{{"product": 9999, "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/orders", "alice", "[1,2]")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/orders", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/orders", "forged", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type customerDetailResponse struct {
	Customer struct {
		ID    uint    `json:"id"`
		Name  string  `json:"name"`
		Email *string `json:"email"`
	} `json:"customer"`
	WritableFields []string `json:"writable_fields"`
}

func TestGetCustomer_EmailWritableOnlyForStaff(t *testing.T) {
	f := newAPIFixture(t)
	path := fmt.Sprintf("/api/customers/%d", f.aliceCustomer.ID)

	w := f.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var own customerDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &own))
	assert.Equal(t, f.aliceCustomer.ID, own.Customer.ID)
	assert.NotContains(t, own.WritableFields, "email")
	assert.Contains(t, own.WritableFields, "name")

	w = f.do(t, http.MethodGet, path, "staff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var staffView customerDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &staffView))
	assert.Contains(t, staffView.WritableFields, "email")

	w = f.do(t, http.MethodGet, path, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCustomer_SelfServiceEmailIgnored(t *testing.T) {
	f := newAPIFixture(t)
	path := fmt.Sprintf("/api/customers/%d", f.aliceCustomer.ID)

	w := f.do(t, http.MethodPatch, path, "alice", map[string]interface{}{
		"name":  "Alice Liddell",
		"email": "hijack@example.com",
		"user":  999,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Customer
	require.NoError(t, f.db.First(&stored, f.aliceCustomer.ID).Error)
	assert.Equal(t, "Alice Liddell", stored.Name)
	assert.Nil(t, stored.Email)
	assert.Equal(t, f.aliceCustomer.UserID, stored.UserID)

	w = f.do(t, http.MethodPatch, path, "staff", map[string]interface{}{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, f.db.First(&stored, f.aliceCustomer.ID).Error)
	require.NotNil(t, stored.Email)
	assert.Equal(t, "alice@example.com", *stored.Email)

	w = f.do(t, http.MethodPut, path, "alice", map[string]interface{}{"phone_number": "0712345678"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteCustomer_StaffOnly(t *testing.T) {
	f := newAPIFixture(t)
	path := fmt.Sprintf("/api/customers/%d", f.aliceCustomer.ID)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, path, "alice", nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, "staff", nil).Code)
}

func TestProducts_ReadOnlyUnlessStaff(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Len(t, products, 1)

	body := map[string]interface{}{"name": "Gadget", "price": "4.50"}
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/products", "", body).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/products", "alice", body).Code)

	w = f.do(t, http.MethodPost, "/api/products", "staff", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/products", "staff", map[string]interface{}{"name": "Bad", "price": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := fmt.Sprintf("/api/products/%d", f.product.ID)
	w = f.do(t, http.MethodPatch, path, "staff", map[string]interface{}{"price": "12.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/products/abc", "", nil).Code)
}

func TestDeleteProduct_ConflictWhileOrdered(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", "alice", map[string]interface{}{
		"items": []map[string]interface{}{{"product": f.product.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", f.product.ID), "staff", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrderItems_Endpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", "alice", map[string]interface{}{
		"items": []map[string]interface{}{{"product": f.product.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeOrder(t, w)
	orderPath := fmt.Sprintf("/api/orders/%d", created.Order.ID)
	itemPath := fmt.Sprintf("%s/items/%d", orderPath, created.Order.Items[0].ID)

	w = f.do(t, http.MethodPatch, itemPath, "alice", map[string]interface{}{"quantity": 3, "subtotal": "1.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, orderPath, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.RequireFromString("30.00").Equal(decodeOrder(t, w).Order.TotalAmount))

	w = f.do(t, http.MethodPost, orderPath+"/items", "alice", map[string]interface{}{"product": f.product.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, orderPath+"/items", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.OrderItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, itemPath, "bob", nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, itemPath, "alice", nil).Code)

	w = f.do(t, http.MethodGet, orderPath, "alice", nil)
	assert.True(t, decimal.RequireFromString("10.00").Equal(decodeOrder(t, w).Order.TotalAmount))
}

func TestUpdateOrder_PatchAndPut(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", "alice", map[string]interface{}{
		"items": []map[string]interface{}{{"product": f.product.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	path := fmt.Sprintf("/api/orders/%d", decodeOrder(t, w).Order.ID)

	// status is not writable for the owner and is dropped; items stay untouched
	w = f.do(t, http.MethodPatch, path, "alice", map[string]interface{}{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeOrder(t, w)
	assert.Equal(t, "pending", resp.Order.Status)
	assert.Len(t, resp.Order.Items, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, path, "alice", map[string]interface{}{}).Code)

	w = f.do(t, http.MethodPut, path, "alice", map[string]interface{}{"items": []interface{}{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeOrder(t, w).Order.Items)

	w = f.do(t, http.MethodPatch, path, "staff", map[string]interface{}{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeOrder(t, w).Order.Status)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, "bob", nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, "alice", nil).Code)
}

func TestRegister(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"username": "newbie",
		"password": "longenough",
		"email":    "newbie@example.com",
		"is_staff": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "newbie").First(&user).Error)
	assert.False(t, user.IsStaff)
	assert.NotContains(t, w.Body.String(), "password")

	w = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{"username": "newbie", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{"username": "x", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/auth/me", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestUpdateMe_SyncsCustomerProfile(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPatch, "/api/auth/me", "alice", map[string]interface{}{
		"first_name": "Alice",
		"last_name":  "Smith",
		"email":      "alice.smith@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		User struct {
			FirstName string `json:"first_name"`
			Email     string `json:"email"`
		} `json:"user"`
		Customer struct {
			ID    uint    `json:"id"`
			Name  string  `json:"name"`
			Email *string `json:"email"`
		} `json:"customer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Alice", resp.User.FirstName)
	assert.Equal(t, f.aliceCustomer.ID, resp.Customer.ID)
	assert.Equal(t, "Alice Smith", resp.Customer.Name)

	var stored models.Customer
	require.NoError(t, f.db.First(&stored, f.aliceCustomer.ID).Error)
	assert.Equal(t, "Alice Smith", stored.Name)
	require.NotNil(t, stored.Email)
	assert.Equal(t, "alice.smith@example.com", *stored.Email)
}

func TestUpdateMe_RejectsBadEmail(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPatch, "/api/auth/me", "alice", map[string]interface{}{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/auth/me", "", map[string]interface{}{"first_name": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
