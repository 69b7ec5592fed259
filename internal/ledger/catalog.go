package ledger

import (
	"fmt"

	"marketplace-ledger/internal/models"
)

// ProductCatalog stores products in id order; product n lives at index n-1.
// Products are never removed.
type ProductCatalog struct {
	products []models.Product
}

func newProductCatalog() *ProductCatalog {
	return &ProductCatalog{}
}

func (c *ProductCatalog) Count() uint64 {
	return uint64(len(c.products))
}

func (c *ProductCatalog) nextID() uint64 {
	return c.Count() + 1
}

func checkListing(role models.Role, price, quantity uint64) error {
	if !role.CanSell() {
		return fmt.Errorf("%w: %s may not list products", ErrUnauthorized, role)
	}
	if price == 0 {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidArgument)
	}
	if quantity == 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidArgument)
	}
	return nil
}

func (c *ProductCatalog) add(p models.Product) error {
	if p.ID != c.nextID() {
		return fmt.Errorf("%w: product id %d, expected %d", ErrCorruptJournal, p.ID, c.nextID())
	}
	c.products = append(c.products, p)
	return nil
}

func (c *ProductCatalog) lookup(id uint64) (*models.Product, error) {
	if id == 0 || id > c.Count() {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return &c.products[id-1], nil
}

func (c *ProductCatalog) Get(id uint64) (models.Product, error) {
	p, err := c.lookup(id)
	if err != nil {
		return models.Product{}, err
	}
	return *p, nil
}

func (c *ProductCatalog) decrementQuantity(id, amount uint64) error {
	p, err := c.lookup(id)
	if err != nil {
		return err
	}
	if amount > p.RemainingQuantity {
		return fmt.Errorf("%w: product %d has %d left, %d requested",
			ErrInsufficientInventory, id, p.RemainingQuantity, amount)
	}
	p.RemainingQuantity -= amount
	return nil
}

func (c *ProductCatalog) All() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *ProductCatalog) ByOwner(owner models.Identity) []models.Product {
	var out []models.Product
	for _, p := range c.products {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	return out
}
