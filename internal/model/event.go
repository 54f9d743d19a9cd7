package model

// Push event names recognized on the wire. Anything else is skipped so newer
// server versions can add events without breaking older clients.
const (
	EventProductCreated = "product_created"
	EventOrderUpdated   = "order_updated"
)

// ProductCreatedPayload is the data of a product_created push event.
type ProductCreatedPayload struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Supplier    string `json:"supplier"`
}

// OrderUpdatedPayload is the data of an order_updated push event.
type OrderUpdatedPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PushEvent is a tagged union over the recognized push events. Exactly one of
// ProductCreated and OrderUpdated is non-nil, matching Name.
type PushEvent struct {
	Name           string
	Message        string
	ProductCreated *ProductCreatedPayload
	OrderUpdated   *OrderUpdatedPayload
}
