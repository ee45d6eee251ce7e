package services

import (
	"context"
	"testing"

	"mystore/internal/models"
	"mystore/internal/repository"
	"mystore/internal/testutil"
	"mystore/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProductService(db *gorm.DB) ProductService {
	return NewProductService(db, repository.NewProductRepository(db), logger.Discard())
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateProduct(t *testing.T) {
	svc := newProductService(testutil.NewDB(t))
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{Name: strPtr("Widget"), Code: strPtr("W-1"), Price: decPtr("10.00")})
	require.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.Equal(t, "Widget - W-1", product.String())

	_, err = svc.CreateProduct(ctx, ProductInput{Name: strPtr("Other"), Code: strPtr("W-1"), Price: decPtr("1.00")})
	assert.ErrorIs(t, err, ErrConflict)

	// products without a code do not collide
	_, err = svc.CreateProduct(ctx, ProductInput{Name: strPtr("A"), Code: strPtr(""), Price: decPtr("1.00")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{Name: strPtr("B"), Price: decPtr("1.00")})
	require.NoError(t, err)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := newProductService(testutil.NewDB(t))
	ctx := context.Background()

	cases := map[string]ProductInput{
		"missing name":   {Price: decPtr("1.00")},
		"missing price":  {Name: strPtr("Widget")},
		"blank name":     {Name: strPtr(" "), Price: decPtr("1.00")},
		"negative price": {Name: strPtr("Widget"), Price: decPtr("-1.00")},
		"three places":   {Name: strPtr("Widget"), Price: decPtr("1.001")},
		"too large":      {Name: strPtr("Widget"), Price: decPtr("100000000")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdateProduct_KeepsOrderSnapshots(t *testing.T) {
	f := newOrderFixture(t)
	svc := newProductService(f.db)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{Name: strPtr("Widget"), Price: decPtr("10.00")})
	require.NoError(t, err)
	order, err := f.svc.CreateOrder(ctx, f.alice, OrderInput{Items: []OrderItemInput{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, product.ID, ProductInput{Price: decPtr("12.50")})
	require.NoError(t, err)
	assertDecimal(t, "12.50", updated.Price)
	assert.Equal(t, "Widget", updated.Name)

	reloaded, err := f.svc.GetOrder(ctx, f.alice, order.ID)
	require.NoError(t, err)
	assertDecimal(t, "10.00", reloaded.Items[0].UnitPrice)
	assertDecimal(t, "10.00", reloaded.TotalAmount)

	_, err = svc.UpdateProduct(ctx, 9999, ProductInput{Price: decPtr("1.00")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct_RestrictedWhileOrdered(t *testing.T) {
	f := newOrderFixture(t)
	svc := newProductService(f.db)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{Name: strPtr("Widget"), Price: decPtr("10.00")})
	require.NoError(t, err)
	order, err := f.svc.CreateOrder(ctx, f.alice, OrderInput{Items: []OrderItemInput{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteProduct(ctx, product.ID), ErrConflict)

	require.NoError(t, f.svc.DeleteOrder(ctx, f.alice, order.ID))
	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, product.ID), ErrNotFound)
}
