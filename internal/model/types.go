// Package model defines domain types shared across the client.
package model

// Role is the marketplace role carried by the session token.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSupplier Role = "supplier"
)

// Option is one purchasable variant of a Product.
type Option struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	UnitPrice   int64  `json:"unit_price"`
	MaxQuantity int    `json:"max_quantity"`
}

// Product is a catalog entry. Immutable once fetched; the catalog replaces
// products wholesale on re-fetch.
type Product struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url"`
	Options  []Option `json:"options"`
}

// Option returns the option with the given id, if present.
func (p Product) Option(optionID string) (Option, bool) {
	for _, o := range p.Options {
		if o.ID == optionID {
			return o, true
		}
	}
	return Option{}, false
}

// CartLine is a denormalized snapshot of a product option taken at add-time.
// Later product edits do not retroactively update existing lines.
type CartLine struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductCode string `json:"product_code"`
	OptionID    string `json:"option_id"`
	OptionName  string `json:"option_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	MaxQuantity int    `json:"max_quantity"`
}

// Subtotal returns unit price times quantity for this line.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
