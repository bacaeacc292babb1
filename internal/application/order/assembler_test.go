package order

import (
	"fmt"
	"testing"

	domain "github.com/marketsquare/order-service/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("ord-%d", s.n)
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func twoLineCart() *Cart {
	return &Cart{
		UserID: "user-1",
		Items: []CartItem{
			{ProductID: "p-1", ProductName: "Widget", Quantity: 2, Price: price("10.00")},
			{ProductID: "p-2", ProductName: "Gadget", Quantity: 1, Price: price("5.50")},
		},
	}
}

func catalogFor(cart *Cart, stock int) map[string]*Product {
	products := make(map[string]*Product, len(cart.Items))
	for _, line := range cart.Items {
		products[line.ProductID] = &Product{
			ID:    line.ProductID,
			Name:  line.ProductName,
			Price: line.Price,
			Stock: stock,
		}
	}
	return products
}

func TestAssembleBuildsConfirmedOrderWithExactTotal(t *testing.T) {
	cart := twoLineCart()
	assembler := NewAssembler(&seqIDs{})

	entity, err := assembler.Assemble("user-1", "key-1", cart, catalogFor(cart, 10))
	require.NoError(t, err)

	assert.Equal(t, "ord-1", entity.ID)
	assert.Equal(t, "user-1", entity.UserID)
	assert.Equal(t, domain.StatusConfirmed, entity.Status)
	assert.Equal(t, "key-1", entity.IdempotencyKey)
	assert.True(t, entity.TotalPrice.Equal(price("25.50")), "total = %s", entity.TotalPrice)

	require.Len(t, entity.Items, 2)
	assert.Equal(t, "Widget", entity.Items[0].ProductName)
	assert.Equal(t, 2, entity.Items[0].Quantity)
}

func TestAssembleRejectsEmptyCart(t *testing.T) {
	assembler := NewAssembler(&seqIDs{})

	for _, cart := range []*Cart{nil, {UserID: "user-1"}} {
		_, err := assembler.Assemble("user-1", "", cart, nil)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestAssembleRejectsUnknownProduct(t *testing.T) {
	cart := twoLineCart()
	products := catalogFor(cart, 10)
	delete(products, "p-2")

	_, err := NewAssembler(&seqIDs{}).Assemble("user-1", "", cart, products)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "product not found: p-2")
}

func TestAssembleRejectsInsufficientStock(t *testing.T) {
	cart := twoLineCart()
	products := catalogFor(cart, 10)
	products["p-1"].Stock = 1 // cart wants 2

	_, err := NewAssembler(&seqIDs{}).Assemble("user-1", "", cart, products)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "insufficient stock for product: Widget")
}

func TestAssembleSnapshotsCartNotCatalog(t *testing.T) {
	cart := twoLineCart()
	products := catalogFor(cart, 10)
	// Catalog price drifted; the order must carry the cart's snapshot.
	products["p-1"].Price = price("99.99")

	entity, err := NewAssembler(&seqIDs{}).Assemble("user-1", "", cart, products)
	require.NoError(t, err)
	assert.True(t, entity.Items[0].Price.Equal(price("10.00")))
}
