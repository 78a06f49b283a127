// Package lifecycle is the single entry point views use to read and change
// orders. It wraps the order store with a uniform result contract and
// composes bucket listing with the query engine.
package lifecycle

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
	"github.com/imrishuroy/go-orderdesk/internal/query"
)

// Result is the outcome of a mutation: either OK with the updated record, or
// not OK with a stable error kind and a human-readable message.
type Result struct {
	OK        bool             `json:"ok"`
	Record    *orders.Order    `json:"record,omitempty"`
	ErrorKind orders.ErrorKind `json:"error_kind,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Err turns a failed Result back into an error usable with errors.Is.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &orders.Error{Kind: r.ErrorKind, Message: r.Message}
}

// PageResult is the outcome of QueryBucket.
type PageResult struct {
	OK        bool             `json:"ok"`
	Page      *query.Result    `json:"page,omitempty"`
	ErrorKind orders.ErrorKind `json:"error_kind,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Err turns a failed PageResult back into an error.
func (r PageResult) Err() error {
	if r.OK {
		return nil
	}
	return &orders.Error{Kind: r.ErrorKind, Message: r.Message}
}

// Controller is safe for concurrent use; serialization happens in the store.
type Controller struct {
	store *orders.Store
	log   logrus.FieldLogger
}

// NewController wires a controller over store. A nil logger discards output.
func NewController(store *orders.Store, log logrus.FieldLogger) *Controller {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Controller{store: store, log: log}
}

// Intake registers a new Pending order from the order-intake collaborator.
func (c *Controller) Intake(n orders.NewOrder) Result {
	o, err := c.store.Create(n)
	return c.result("intake", n.ID, o, err)
}

// Accept moves a Pending order to Preparing.
func (c *Controller) Accept(id string) Result {
	o, err := c.store.Accept(id)
	return c.result("accept", id, o, err)
}

// Reject moves a Pending order to Rejected.
func (c *Controller) Reject(id string) Result {
	o, err := c.store.Reject(id)
	return c.result("reject", id, o, err)
}

// Advance follows one fulfillment edge. A courier may only accompany the
// move to OutForDelivery.
func (c *Controller) Advance(id string, target orders.Status, courier *orders.Courier) Result {
	var opts []orders.AdvanceOption
	if courier != nil {
		opts = append(opts, orders.WithCourier(*courier))
	}
	o, err := c.store.Advance(id, target, opts...)
	return c.result("advance", id, o, err)
}

// Cancel moves any open order to Cancelled.
func (c *Controller) Cancel(id string) Result {
	o, err := c.store.Cancel(id)
	return c.result("cancel", id, o, err)
}

// AssignCourier sets the courier of an order that is out for delivery.
func (c *Controller) AssignCourier(id string, courier orders.Courier) Result {
	o, err := c.store.AssignCourier(id, courier)
	return c.result("assign_courier", id, o, err)
}

// Rate records post-hoc rating and feedback on a completed order.
func (c *Controller) Rate(id string, rating int, feedback string) Result {
	o, err := c.store.Rate(id, rating, feedback)
	return c.result("rate", id, o, err)
}

// SetPayment moves the payment axis.
func (c *Controller) SetPayment(id string, status orders.PaymentStatus) Result {
	o, err := c.store.SetPayment(id, status)
	return c.result("set_payment", id, o, err)
}

// Get returns a single order.
func (c *Controller) Get(id string) Result {
	o, err := c.store.Get(id)
	if err != nil {
		return failure(err)
	}
	return Result{OK: true, Record: &o}
}

// QueryBucket lists a bucket and applies search, filters and pagination in
// one consistent pass.
func (c *Controller) QueryBucket(bucket orders.Bucket, searchText string, filters query.Filters, page, pageSize int) PageResult {
	req := query.Request{SearchText: searchText, Filters: filters, Page: page, PageSize: pageSize}
	if err := req.Validate(); err != nil {
		return pageFailure(err)
	}
	records, err := c.store.ListByBucket(bucket)
	if err != nil {
		return pageFailure(err)
	}
	res, err := query.Run(records, req)
	if err != nil {
		return pageFailure(err)
	}
	return PageResult{OK: true, Page: &res}
}

// Counts returns how many orders sit in each bucket.
func (c *Controller) Counts() map[orders.Bucket]int {
	return c.store.Counts()
}

func (c *Controller) result(action, id string, o orders.Order, err error) Result {
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"action":     action,
			"order_id":   id,
			"error_kind": orders.KindOf(err),
		}).Warn(err.Error())
		return failure(err)
	}
	c.log.WithFields(logrus.Fields{
		"action":   action,
		"order_id": o.ID,
		"status":   o.Status,
		"bucket":   o.Bucket(),
	}).Info("order updated")
	return Result{OK: true, Record: &o}
}

func failure(err error) Result {
	var e *orders.Error
	if errors.As(err, &e) {
		return Result{ErrorKind: e.Kind, Message: e.Message}
	}
	// The store only returns *orders.Error; anything else is a caller bug.
	return Result{ErrorKind: orders.KindInvalidArgument, Message: err.Error()}
}

func pageFailure(err error) PageResult {
	r := failure(err)
	return PageResult{ErrorKind: r.ErrorKind, Message: r.Message}
}
