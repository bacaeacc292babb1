package order

import (
	domain "github.com/marketsquare/order-service/internal/domain/order"
)

// Assembler turns a validated cart plus catalog snapshots into the order
// aggregate. It performs no I/O and no persistence.
type Assembler struct {
	idGenerator IDGenerator
}

func NewAssembler(idGen IDGenerator) *Assembler {
	return &Assembler{idGenerator: idGen}
}

// Assemble verifies every cart line against its product snapshot and builds
// a confirmed order. The first line whose product is missing or short on
// stock aborts with a validation error naming the offending product; in that
// case nothing is built.
//
// Name, price, and quantity are snapshotted from the cart line, so later
// catalog changes do not alter the order. The total is the exact decimal sum
// of price times quantity per line.
func (a *Assembler) Assemble(userID, idempotencyKey string, cart *Cart, products map[string]*Product) (*domain.Order, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, newValidation("cart empty or not found")
	}

	items := make([]domain.Item, 0, len(cart.Items))
	for _, line := range cart.Items {
		product := products[line.ProductID]
		if product == nil {
			return nil, newValidation("product not found: %s", line.ProductID)
		}
		if product.Stock < line.Quantity {
			return nil, newValidation("insufficient stock for product: %s", product.Name)
		}
		items = append(items, domain.Item{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			Price:       line.Price,
		})
	}

	entity, err := domain.New(a.idGenerator.NewID(), userID, idempotencyKey, items)
	if err != nil {
		return nil, newValidation("%s", err.Error())
	}
	return entity, nil
}
