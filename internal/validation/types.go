package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

// Item represents a single order line.
type Item struct {
	Name      string          `json:"name" validate:"required,max=120"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"decimal_gte0"` // free items are allowed
}

// Customer is the contact block of an order.
type Customer struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone,omitempty" validate:"max=32"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	ID            string           `json:"id,omitempty" validate:"omitempty,max=64"`
	Customer      Customer         `json:"customer"`
	Items         []Item           `json:"items" validate:"required,min=1,dive"`
	PaymentStatus string           `json:"payment_status,omitempty" validate:"omitempty,oneof=Unpaid Paid"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"` // optional client claim, must match the items
}

// ToNewOrder converts the request into intake input for the order store.
func (r CreateOrderRequest) ToNewOrder() orders.NewOrder {
	items := make([]orders.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, orders.Item{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return orders.NewOrder{
		ID:            r.ID,
		Customer:      orders.Customer(r.Customer),
		Items:         items,
		PaymentStatus: orders.PaymentStatus(r.PaymentStatus),
	}
}

// Fingerprint identifies the request body for idempotent replays. Two
// requests that decode to the same value share a fingerprint.
func (r CreateOrderRequest) Fingerprint() string {
	b, _ := json.Marshal(r)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CourierRequest is the payload for POST /orders/:id/courier and the
// optional courier of an advance.
type CourierRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone,omitempty" validate:"max=32"`
}

// AdvanceRequest is the payload for POST /orders/:id/advance
type AdvanceRequest struct {
	Target  string          `json:"target" validate:"required"`
	Courier *CourierRequest `json:"courier,omitempty"`
}

// RatingRequest is the payload for POST /orders/:id/rating
type RatingRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback,omitempty" validate:"max=1000"`
}

// PaymentRequest is the payload for POST /orders/:id/payment
type PaymentRequest struct {
	Status string `json:"status" validate:"required"`
}

// BucketQuery holds the query string of GET /buckets/:bucket/orders.
type BucketQuery struct {
	Q            string     `form:"q" validate:"max=200"`
	MinAmount    string     `form:"min_amount" validate:"omitempty,decimal_gte0"`
	MaxAmount    string     `form:"max_amount" validate:"omitempty,decimal_gte0"`
	Status       string     `form:"status"`
	CustomerName string     `form:"customer_name" validate:"max=200"`
	From         *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To           *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page         *int       `form:"page"`
	PageSize     *int       `form:"page_size"`
}
