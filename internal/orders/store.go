package orders

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the authoritative in-memory set of orders. A single RWMutex makes
// it a single-writer store: mutations are serialized, reads run concurrently
// and always receive deep copies.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*entry
	seq     uint64
	nowFunc func() time.Time
	newID   func() string
}

type entry struct {
	order Order
	seq   uint64 // insertion order, breaks timestamp ties
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.nowFunc = now }
}

// WithIDGenerator replaces uuid.NewString for ids of intake orders that carry none.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		byID:    map[string]*entry{},
		nowFunc: time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new Pending order handed over by the intake collaborator.
func (s *Store) Create(n NewOrder) (Order, error) {
	if err := validateNewOrder(n); err != nil {
		return Order{}, err
	}
	payment := n.PaymentStatus
	if payment == "" {
		payment = PaymentUnpaid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := n.ID
	if id == "" {
		id = s.newID()
	}
	if _, exists := s.byID[id]; exists {
		return Order{}, invalidArgumentf("order %q already exists", id)
	}

	o := Order{
		ID:            id,
		Customer:      n.Customer,
		Items:         append([]Item(nil), n.Items...),
		Total:         SumItems(n.Items),
		Status:        StatusPending,
		PaymentStatus: payment,
		CreatedAt:     s.nowFunc(),
		Version:       1,
	}
	s.insert(o)
	return o.clone(), nil
}

func validateNewOrder(n NewOrder) error {
	if strings.TrimSpace(n.Customer.Name) == "" {
		return invalidArgumentf("customer name is required")
	}
	if err := validateItems(n.Items); err != nil {
		return err
	}
	switch n.PaymentStatus {
	case "", PaymentUnpaid, PaymentPaid:
	default:
		return invalidArgumentf("new orders cannot start with payment status %q", n.PaymentStatus)
	}
	return nil
}

func validateItems(items []Item) *Error {
	if len(items) == 0 {
		return invalidArgumentf("order must have at least one item")
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return invalidArgumentf("item %d: name is required", i)
		}
		if it.Quantity < 1 {
			return invalidArgumentf("item %d (%s): quantity must be at least 1", i, it.Name)
		}
		if it.UnitPrice.IsNegative() {
			return invalidArgumentf("item %d (%s): unit price cannot be negative", i, it.Name)
		}
	}
	return nil
}

func (s *Store) insert(o Order) {
	s.seq++
	s.byID[o.ID] = &entry{order: o, seq: s.seq}
}

// Get returns a copy of the order.
func (s *Store) Get(id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return Order{}, notFound(id)
	}
	return e.order.clone(), nil
}

// Len returns the number of orders held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Accept moves a Pending order straight to Preparing. There is no resting
// Accepted state.
func (s *Store) Accept(id string) (Order, error) {
	return s.mutate(id, func(o *Order, now time.Time) error {
		if o.Status != StatusPending {
			return invalidTransition(id, o.Status, StatusPreparing)
		}
		setStatus(o, StatusPreparing, now)
		return nil
	})
}

// Reject moves a Pending order to Rejected.
func (s *Store) Reject(id string) (Order, error) {
	return s.mutate(id, func(o *Order, now time.Time) error {
		if o.Status != StatusPending {
			return invalidTransition(id, o.Status, StatusRejected)
		}
		setStatus(o, StatusRejected, now)
		return nil
	})
}

// AdvanceOption tunes a single Advance call.
type AdvanceOption func(*advanceOptions)

type advanceOptions struct {
	courier *Courier
}

// WithCourier assigns the courier in the same step that moves the order to
// OutForDelivery.
func WithCourier(c Courier) AdvanceOption {
	return func(o *advanceOptions) { o.courier = &c }
}

// Advance follows exactly one fulfillment edge:
// Preparing -> ReadyForPickup -> OutForDelivery -> Completed.
func (s *Store) Advance(id string, target Status, opts ...AdvanceOption) (Order, error) {
	var ao advanceOptions
	for _, opt := range opts {
		opt(&ao)
	}
	if ao.courier != nil {
		if target != StatusOutForDelivery {
			return Order{}, invalidArgumentf("a courier can only be assigned when moving to %s", StatusOutForDelivery)
		}
		if err := validateCourier(*ao.courier); err != nil {
			return Order{}, err
		}
	}

	return s.mutate(id, func(o *Order, now time.Time) error {
		if !CanAdvance(o.Status, target) {
			return invalidTransition(id, o.Status, target)
		}
		setStatus(o, target, now)
		if ao.courier != nil {
			c := *ao.courier
			o.Courier = &c
		}
		return nil
	})
}

// Cancel moves any non-terminal order to Cancelled.
func (s *Store) Cancel(id string) (Order, error) {
	return s.mutate(id, func(o *Order, now time.Time) error {
		if o.Status.IsTerminal() {
			return invalidTransition(id, o.Status, StatusCancelled)
		}
		setStatus(o, StatusCancelled, now)
		return nil
	})
}

// AssignCourier sets or replaces the courier of an order that is out for delivery.
func (s *Store) AssignCourier(id string, c Courier) (Order, error) {
	if err := validateCourier(c); err != nil {
		return Order{}, err
	}
	return s.mutate(id, func(o *Order, _ time.Time) error {
		if o.Status != StatusOutForDelivery {
			return refusedf("order %q is %s; couriers are assigned only while %s", id, o.Status, StatusOutForDelivery)
		}
		o.Courier = &c
		return nil
	})
}

func validateCourier(c Courier) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalidArgumentf("courier name is required")
	}
	return nil
}

// Rate stores the customer's rating (1..5) and feedback on a completed order.
func (s *Store) Rate(id string, rating int, feedback string) (Order, error) {
	if rating < 1 || rating > 5 {
		return Order{}, invalidArgumentf("rating must be between 1 and 5, got %d", rating)
	}
	return s.mutate(id, func(o *Order, _ time.Time) error {
		if o.Status != StatusCompleted {
			return refusedf("order %q is %s; only completed orders can be rated", id, o.Status)
		}
		r := rating
		o.Rating = &r
		o.Feedback = feedback
		return nil
	})
}

// SetPayment moves the payment axis Unpaid -> Paid -> Refunded while the
// order is still open.
func (s *Store) SetPayment(id string, to PaymentStatus) (Order, error) {
	if _, err := ParsePaymentStatus(string(to)); err != nil {
		return Order{}, err
	}
	return s.mutate(id, func(o *Order, _ time.Time) error {
		if o.Status.IsTerminal() || !canSetPayment(o.PaymentStatus, to) {
			return refusedf("order %q (%s) cannot change payment from %s to %s", id, o.Status, o.PaymentStatus, to)
		}
		o.PaymentStatus = to
		return nil
	})
}

// mutate applies fn to a copy of the order under the write lock and commits
// the copy only when fn succeeds.
func (s *Store) mutate(id string, fn func(o *Order, now time.Time) error) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return Order{}, notFound(id)
	}
	next := e.order.clone()
	if err := fn(&next, s.nowFunc()); err != nil {
		return Order{}, err
	}
	next.Version++
	e.order = next
	return next.clone(), nil
}

func setStatus(o *Order, to Status, now time.Time) {
	o.History = append(o.History, StatusChange{From: o.Status, To: to, At: now})
	o.Status = to
	if to.IsTerminal() {
		t := now
		o.CompletedAt = &t
	}
}

// ListByBucket returns copies of the bucket's orders. New and Ongoing are
// newest-created first, Historical is newest-completed first.
func (s *Store) ListByBucket(b Bucket) ([]Order, error) {
	b, err := ParseBucket(string(b))
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := make([]*entry, 0, len(s.byID))
	for _, e := range s.byID {
		if e.order.Status.Bucket() == b {
			entries = append(entries, e)
		}
	}
	out := make([]Order, 0, len(entries))
	slices.SortFunc(entries, func(a, c *entry) int {
		ka, kc := a.order.CreatedAt, c.order.CreatedAt
		if b == BucketHistorical {
			ka, kc = completedOrZero(a.order), completedOrZero(c.order)
		}
		if n := kc.Compare(ka); n != 0 {
			return n
		}
		return cmp.Compare(c.seq, a.seq)
	})
	for _, e := range entries {
		out = append(out, e.order.clone())
	}
	s.mu.RUnlock()
	return out, nil
}

func completedOrZero(o Order) time.Time {
	if o.CompletedAt == nil {
		return time.Time{}
	}
	return *o.CompletedAt
}

// Counts returns the number of orders per bucket.
func (s *Store) Counts() map[Bucket]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Bucket]int, len(Buckets))
	for _, b := range Buckets {
		counts[b] = 0
	}
	for _, e := range s.byID {
		counts[e.order.Status.Bucket()]++
	}
	return counts
}

// Restore loads previously persisted orders. Every record is checked against
// the order invariants first; nothing is loaded unless all of them pass.
func (s *Store) Restore(records []Order) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return err
		}
		if _, dup := seen[records[i].ID]; dup {
			return invalidArgumentf("order %q appears twice", records[i].ID)
		}
		seen[records[i].ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, exists := s.byID[r.ID]; exists {
			return invalidArgumentf("order %q already exists", r.ID)
		}
	}
	for i := range records {
		s.insert(records[i].clone())
	}
	return nil
}

// canonicalStatus accepts only the exact spelling of a known status.
func canonicalStatus(id, field string, st Status) error {
	parsed, err := ParseStatus(string(st))
	if err != nil {
		return invalidArgumentf("order %q: %s: unknown status %q", id, field, st)
	}
	if parsed != st {
		return invalidArgumentf("order %q: %s %q is not spelled %q", id, field, st, parsed)
	}
	return nil
}

func validateRecord(o *Order) error {
	if o.ID == "" {
		return invalidArgumentf("order id is required")
	}
	if err := canonicalStatus(o.ID, "status", o.Status); err != nil {
		return err
	}
	if ps, err := ParsePaymentStatus(string(o.PaymentStatus)); err != nil {
		return err
	} else if ps != o.PaymentStatus {
		return invalidArgumentf("order %q: payment status %q is not spelled %q", o.ID, o.PaymentStatus, ps)
	}
	for i, h := range o.History {
		if err := canonicalStatus(o.ID, fmt.Sprintf("history[%d].from", i), h.From); err != nil {
			return err
		}
		if err := canonicalStatus(o.ID, fmt.Sprintf("history[%d].to", i), h.To); err != nil {
			return err
		}
	}
	if err := validateItems(o.Items); err != nil {
		return invalidArgumentf("order %q: %s", o.ID, err.Message)
	}
	if !o.Total.Equal(SumItems(o.Items)) {
		return invalidArgumentf("order %q: total %s does not match items sum %s", o.ID, o.Total, SumItems(o.Items))
	}
	if o.Status.IsTerminal() != (o.CompletedAt != nil) {
		return invalidArgumentf("order %q: completed_at must be set exactly when the status is terminal", o.ID)
	}
	if o.Courier != nil {
		switch o.Status {
		case StatusOutForDelivery, StatusCompleted, StatusCancelled:
		default:
			return invalidArgumentf("order %q: courier assigned while %s", o.ID, o.Status)
		}
	}
	if (o.Rating != nil || o.Feedback != "") && o.Status != StatusCompleted {
		return invalidArgumentf("order %q: rating present while %s", o.ID, o.Status)
	}
	return nil
}
