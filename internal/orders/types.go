package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses
const (
	StatusPending        Status = "Pending"
	StatusAccepted       Status = "Accepted" // never produced by a transition, see Accept
	StatusPreparing      Status = "Preparing"
	StatusReadyForPickup Status = "ReadyForPickup"
	StatusOutForDelivery Status = "OutForDelivery"
	StatusCompleted      Status = "Completed"
	StatusCancelled      Status = "Cancelled"
	StatusRejected       Status = "Rejected"
)

var allStatuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReadyForPickup,
	StatusOutForDelivery,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

// ParseStatus maps a wire value to a Status. Matching ignores case.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", invalidArgumentf("unknown status %q", s)
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Bucket returns the operator-facing bucket the status belongs to. A status
// outside the canonical set belongs to no bucket and yields "".
func (s Status) Bucket() Bucket {
	switch s {
	case StatusPending:
		return BucketNew
	case StatusAccepted, StatusPreparing, StatusReadyForPickup, StatusOutForDelivery:
		return BucketOngoing
	case StatusCompleted, StatusCancelled, StatusRejected:
		return BucketHistorical
	}
	return ""
}

func (s Status) String() string { return string(s) }

// PaymentStatus is tracked independently from Status.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "Unpaid"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

// ParsePaymentStatus maps a wire value to a PaymentStatus. Matching ignores case.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	for _, ps := range []PaymentStatus{PaymentUnpaid, PaymentPaid, PaymentRefunded} {
		if strings.EqualFold(string(ps), s) {
			return ps, nil
		}
	}
	return "", invalidArgumentf("unknown payment status %q", s)
}

// Bucket groups orders for the operator views.
type Bucket string

const (
	BucketNew        Bucket = "New"
	BucketOngoing    Bucket = "Ongoing"
	BucketHistorical Bucket = "Historical"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketNew, BucketOngoing, BucketHistorical}

// ParseBucket maps a wire value to a Bucket. Matching ignores case.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets {
		if strings.EqualFold(string(b), s) {
			return b, nil
		}
	}
	return "", invalidArgumentf("unknown bucket %q", s)
}

// Item is one order line.
type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal is Quantity × UnitPrice.
func (it Item) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Customer describes who placed the order. Immutable after creation.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Courier is the delivery person assigned once the order leaves the kitchen.
type Courier struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// StatusChange is one entry of an order's status log.
type StatusChange struct {
	From Status    `json:"from"`
	To   Status    `json:"to"`
	At   time.Time `json:"at"`
}

// Order is a single customer order. Values handed out by Store are copies;
// mutate only through Store methods.
type Order struct {
	ID            string          `json:"id"`
	Customer      Customer        `json:"customer"`
	Items         []Item          `json:"items"`
	Total         decimal.Decimal `json:"total_amount"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Courier       *Courier        `json:"assigned_courier,omitempty"`
	Rating        *int            `json:"rating,omitempty"`
	Feedback      string          `json:"feedback,omitempty"`
	History       []StatusChange  `json:"history,omitempty"`
	Version       uint64          `json:"version"` // bumped by every committed mutation
}

// Bucket returns the bucket the order currently belongs to.
func (o *Order) Bucket() Bucket { return o.Status.Bucket() }

// SumItems returns sum(quantity × unitPrice) over items.
func SumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// clone returns a deep copy so callers never share slices or pointers with the store.
func (o *Order) clone() Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.History = append([]StatusChange(nil), o.History...)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	if o.Courier != nil {
		cr := *o.Courier
		c.Courier = &cr
	}
	if o.Rating != nil {
		r := *o.Rating
		c.Rating = &r
	}
	return c
}

// NewOrder is the payload handed over by the intake collaborator.
type NewOrder struct {
	ID            string // optional; generated when empty
	Customer      Customer
	Items         []Item
	PaymentStatus PaymentStatus // defaults to Unpaid
}
