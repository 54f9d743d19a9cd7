// Package catalog holds the fetched product cache and the per-product
// transient selection state that seeds cart insertion.
package catalog

import (
	"fmt"
	"sync"

	"github.com/fairyhunter13/marketplace-client/internal/model"
)

// ValidationError reports a rejected selection, such as an unknown option.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

// selection is the transient (option, quantity) pick for one product. It is
// created on the first option pick and cleared when consumed.
type selection struct {
	optionID string
	quantity int
}

// Catalog caches products wholesale and tracks one selection per product.
type Catalog struct {
	mu         sync.Mutex
	products   []model.Product
	byID       map[string]model.Product
	selections map[string]selection
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		byID:       make(map[string]model.Product),
		selections: make(map[string]selection),
	}
}

// Replace swaps the whole product cache for a fresh fetch. Selections for
// products that no longer exist are dropped.
func (c *Catalog) Replace(products []model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = make([]model.Product, len(products))
	copy(c.products, products)
	c.byID = make(map[string]model.Product, len(products))
	for _, p := range products {
		c.byID[p.ID] = p
	}
	for pid := range c.selections {
		if _, ok := c.byID[pid]; !ok {
			delete(c.selections, pid)
		}
	}
}

// Products returns the cached products in fetch order.
func (c *Catalog) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Product returns the cached product with the given id.
func (c *Catalog) Product(productID string) (model.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byID[productID]
	return p, ok
}

// Select sets the chosen option for a product and resets its quantity to 1.
func (c *Catalog) Select(productID, optionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byID[productID]
	if !ok {
		return &ValidationError{Field: "product_id", Message: "unknown product"}
	}
	if _, ok := p.Option(optionID); !ok {
		return &ValidationError{Field: "option_id", Message: "unknown option"}
	}
	c.selections[productID] = selection{optionID: optionID, quantity: 1}
	return nil
}

// SetQuantity updates the selected quantity for a product. Requests outside
// [1, MaxQuantity] are dropped and the prior value is kept; no error is
// surfaced. Soft clamp on purpose.
func (c *Catalog) SetQuantity(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel, ok := c.selections[productID]
	if !ok {
		return
	}
	p, ok := c.byID[productID]
	if !ok {
		return
	}
	opt, ok := p.Option(sel.optionID)
	if !ok {
		return
	}
	if quantity < 1 || quantity > opt.MaxQuantity {
		return
	}
	sel.quantity = quantity
	c.selections[productID] = sel
}

// Selection returns the current pick for a product, for display.
func (c *Catalog) Selection(productID string) (optionID string, quantity int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel, found := c.selections[productID]
	if !found {
		return "", 0, false
	}
	return sel.optionID, sel.quantity, true
}

// Consume returns the cart line seeded from the current selection and clears
// the selection for that product, both under one lock so a selection cannot
// be consumed twice.
func (c *Catalog) Consume(productID string) (model.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel, ok := c.selections[productID]
	if !ok {
		return model.CartLine{}, &ValidationError{Field: "product_id", Message: "no selection"}
	}
	p, ok := c.byID[productID]
	if !ok {
		delete(c.selections, productID)
		return model.CartLine{}, &ValidationError{Field: "product_id", Message: "unknown product"}
	}
	opt, ok := p.Option(sel.optionID)
	if !ok {
		delete(c.selections, productID)
		return model.CartLine{}, &ValidationError{Field: "option_id", Message: "unknown option"}
	}
	delete(c.selections, productID)
	return model.CartLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		ProductCode: p.Code,
		OptionID:    opt.ID,
		OptionName:  opt.Name,
		UnitPrice:   opt.UnitPrice,
		Quantity:    sel.quantity,
		MaxQuantity: opt.MaxQuantity,
	}, nil
}
