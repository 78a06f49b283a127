package persistence

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

// OrderRow represents the item stored in the orders DynamoDB table. Money is
// stored as decimal strings so values round-trip exactly.
type OrderRow struct {
	OrderID         string       `dynamodbav:"order_id"` // PK
	CustomerName    string       `dynamodbav:"customer_name"`
	CustomerPhone   string       `dynamodbav:"customer_phone,omitempty"`
	CustomerAddress string       `dynamodbav:"customer_address,omitempty"`
	Items           []ItemRow    `dynamodbav:"items"`
	TotalAmount     string       `dynamodbav:"total_amount"`
	Status          string       `dynamodbav:"status"`
	Bucket          string       `dynamodbav:"bucket"` // denormalized for console queries
	PaymentStatus   string       `dynamodbav:"payment_status"`
	CreatedAt       time.Time    `dynamodbav:"created_at"`
	CompletedAt     *time.Time   `dynamodbav:"completed_at,omitempty"`
	CourierName     string       `dynamodbav:"courier_name,omitempty"`
	CourierPhone    string       `dynamodbav:"courier_phone,omitempty"`
	Rating          *int         `dynamodbav:"rating,omitempty"`
	Feedback        string       `dynamodbav:"feedback,omitempty"`
	History         []HistoryRow `dynamodbav:"history,omitempty"`
	Version         uint64       `dynamodbav:"version"`
	UpdatedAt       time.Time    `dynamodbav:"updated_at"`
}

// ItemRow is one stored order line.
type ItemRow struct {
	Name      string `dynamodbav:"name"`
	Quantity  int    `dynamodbav:"quantity"`
	UnitPrice string `dynamodbav:"unit_price"`
}

// HistoryRow is one stored status change.
type HistoryRow struct {
	From string    `dynamodbav:"from"`
	To   string    `dynamodbav:"to"`
	At   time.Time `dynamodbav:"at"`
}

// FromModel converts an order into its stored form.
func FromModel(o orders.Order, updatedAt time.Time) OrderRow {
	row := OrderRow{
		OrderID:         o.ID,
		CustomerName:    o.Customer.Name,
		CustomerPhone:   o.Customer.Phone,
		CustomerAddress: o.Customer.Address,
		Items:           make([]ItemRow, 0, len(o.Items)),
		TotalAmount:     o.Total.String(),
		Status:          string(o.Status),
		Bucket:          string(o.Bucket()),
		PaymentStatus:   string(o.PaymentStatus),
		CreatedAt:       o.CreatedAt.UTC(),
		Rating:          o.Rating,
		Feedback:        o.Feedback,
		Version:         o.Version,
		UpdatedAt:       updatedAt.UTC(),
	}
	for _, it := range o.Items {
		row.Items = append(row.Items, ItemRow{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice.String()})
	}
	if o.CompletedAt != nil {
		t := o.CompletedAt.UTC()
		row.CompletedAt = &t
	}
	if o.Courier != nil {
		row.CourierName, row.CourierPhone = o.Courier.Name, o.Courier.Phone
	}
	for _, h := range o.History {
		row.History = append(row.History, HistoryRow{From: string(h.From), To: string(h.To), At: h.At.UTC()})
	}
	return row
}

// ToModel converts a stored row back into an order. It rejects rows whose
// amounts do not parse or whose total drifted from the sum of their lines.
func (r OrderRow) ToModel() (orders.Order, error) {
	o := orders.Order{
		ID:            r.OrderID,
		Customer:      orders.Customer{Name: r.CustomerName, Phone: r.CustomerPhone, Address: r.CustomerAddress},
		Items:         make([]orders.Item, 0, len(r.Items)),
		Status:        orders.Status(r.Status),
		PaymentStatus: orders.PaymentStatus(r.PaymentStatus),
		CreatedAt:     r.CreatedAt,
		CompletedAt:   r.CompletedAt,
		Rating:        r.Rating,
		Feedback:      r.Feedback,
		Version:       r.Version,
	}
	for i, it := range r.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return orders.Order{}, fmt.Errorf("order %s item %d: parse unit price: %w", r.OrderID, i, err)
		}
		o.Items = append(o.Items, orders.Item{Name: it.Name, Quantity: it.Quantity, UnitPrice: price})
	}

	total, err := decimal.NewFromString(r.TotalAmount)
	if err != nil {
		return orders.Order{}, fmt.Errorf("order %s: parse total: %w", r.OrderID, err)
	}
	if sum := orders.SumItems(o.Items); !sum.Equal(total) {
		return orders.Order{}, fmt.Errorf("order %s: stored total %s does not match items %s", r.OrderID, total, sum)
	}
	o.Total = total

	if r.CourierName != "" {
		o.Courier = &orders.Courier{Name: r.CourierName, Phone: r.CourierPhone}
	}
	for _, h := range r.History {
		o.History = append(o.History, orders.StatusChange{From: orders.Status(h.From), To: orders.Status(h.To), At: h.At})
	}
	return o, nil
}
