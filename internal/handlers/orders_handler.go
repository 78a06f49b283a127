package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderdesk/internal/events"
	"github.com/imrishuroy/go-orderdesk/internal/idempotency"
	"github.com/imrishuroy/go-orderdesk/internal/lifecycle"
	"github.com/imrishuroy/go-orderdesk/internal/orders"
	"github.com/imrishuroy/go-orderdesk/internal/persistence"
	"github.com/imrishuroy/go-orderdesk/internal/validation"
)

// OrderRepository persists order snapshots after a mutation. Save reports
// persistence.ErrStaleSnapshot when a newer version is already stored.
type OrderRepository interface {
	Save(ctx context.Context, o orders.Order) error
}

// EventPublisher notifies downstream consumers of an applied mutation.
type EventPublisher interface {
	PublishLifecycleEvent(ctx context.Context, ev events.LifecycleEvent) error
}

// IdempotencyStore guards order intake against duplicate submissions.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint, orderID string) (*idempotency.Record, error)
	Complete(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// HandlerConfig groups dependencies for the orders handler. Repository and
// Publisher are optional; a nil one is skipped.
type HandlerConfig struct {
	Controller      *lifecycle.Controller
	Idempotency     IdempotencyStore
	Repository      OrderRepository
	Publisher       EventPublisher
	Logger          logrus.FieldLogger
	DefaultPageSize int
	MaxPageSize     int
	NowFunc         func() time.Time
}

func (cfg HandlerConfig) logger() logrus.FieldLogger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type ordersHandler struct {
	cfg HandlerConfig
	v   *validatorv10.Validate
	log logrus.FieldLogger
	now func() time.Time
}

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &ordersHandler{
		cfg: cfg,
		v:   validation.New(),
		log: cfg.logger(),
		now: cfg.NowFunc,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.cfg.DefaultPageSize <= 0 {
		h.cfg.DefaultPageSize = 20
	}

	r.POST("/orders", h.create)
	r.GET("/orders/:id", h.get)
	r.POST("/orders/:id/accept", h.accept)
	r.POST("/orders/:id/reject", h.reject)
	r.POST("/orders/:id/advance", h.advance)
	r.POST("/orders/:id/cancel", h.cancel)
	r.POST("/orders/:id/courier", h.assignCourier)
	r.POST("/orders/:id/rating", h.rate)
	r.POST("/orders/:id/payment", h.setPayment)

	r.GET("/buckets", h.counts)
	r.GET("/buckets/:bucket/orders", h.listBucket)
}

func (h *ordersHandler) create(c *gin.Context) {
	ctx := c.Request.Context()

	// Bind + validate request
	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	// Require idempotency key header
	idempKey := c.GetHeader("Idempotency-Key")
	if idempKey == "" {
		writeError(c, http.StatusBadRequest, orders.KindInvalidArgument, "missing Idempotency-Key header")
		return
	}

	n := req.ToNewOrder()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	rec, err := h.cfg.Idempotency.Reserve(ctx, idempKey, req.Fingerprint(), n.ID)
	switch {
	case errors.Is(err, idempotency.ErrKeyReused):
		writeError(c, http.StatusUnprocessableEntity, orders.KindInvalidArgument, err.Error())
		return
	case err != nil:
		h.log.WithError(err).WithField("idempotency_key", idempKey).Error("idempotency check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "idempotency check failed"})
		return
	case rec != nil:
		h.replay(c, rec)
		return
	}

	if err := ctx.Err(); err != nil {
		_ = h.cfg.Idempotency.MarkFailed(context.WithoutCancel(ctx), idempKey, "request cancelled")
		abandon(c)
		return
	}

	res := h.cfg.Controller.Intake(n)
	if !res.OK {
		if err := h.cfg.Idempotency.MarkFailed(ctx, idempKey, fmt.Sprintf("%s: %s", res.ErrorKind, res.Message)); err != nil {
			h.log.WithError(err).WithField("idempotency_key", idempKey).Warn("mark idempotency failed")
		}
		writeResult(c, http.StatusCreated, res)
		return
	}

	h.afterMutation(c, events.ActionIntake, res.Record)

	body, _ := json.Marshal(res)
	if err := h.cfg.Idempotency.Complete(context.WithoutCancel(ctx), idempKey, string(body), http.StatusCreated); err != nil {
		h.log.WithError(err).WithField("idempotency_key", idempKey).Warn("store idempotent response")
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", res.Record.ID))
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

func (h *ordersHandler) replay(c *gin.Context, rec *idempotency.Record) {
	switch rec.Status {
	case idempotency.StatusDone:
		c.Header("Idempotent-Replayed", "true")
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"ok": false, "message": "request already in progress", "order_id": rec.OrderID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "unknown idempotency status"})
	}
}

func (h *ordersHandler) get(c *gin.Context) {
	writeResult(c, http.StatusOK, h.cfg.Controller.Get(c.Param("id")))
}

func (h *ordersHandler) accept(c *gin.Context) {
	h.mutate(c, events.ActionAccept, func(id string) lifecycle.Result {
		return h.cfg.Controller.Accept(id)
	})
}

func (h *ordersHandler) reject(c *gin.Context) {
	h.mutate(c, events.ActionReject, func(id string) lifecycle.Result {
		return h.cfg.Controller.Reject(id)
	})
}

func (h *ordersHandler) cancel(c *gin.Context) {
	h.mutate(c, events.ActionCancel, func(id string) lifecycle.Result {
		return h.cfg.Controller.Cancel(id)
	})
}

func (h *ordersHandler) advance(c *gin.Context) {
	var req validation.AdvanceRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	target, err := orders.ParseStatus(req.Target)
	if err != nil {
		writeResult(c, http.StatusOK, lifecycle.Result{ErrorKind: orders.KindOf(err), Message: err.Error()})
		return
	}
	var courier *orders.Courier
	if req.Courier != nil {
		courier = &orders.Courier{Name: req.Courier.Name, Phone: req.Courier.Phone}
	}
	h.mutate(c, events.ActionAdvance, func(id string) lifecycle.Result {
		return h.cfg.Controller.Advance(id, target, courier)
	})
}

func (h *ordersHandler) assignCourier(c *gin.Context) {
	var req validation.CourierRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	h.mutate(c, events.ActionAssignCourier, func(id string) lifecycle.Result {
		return h.cfg.Controller.AssignCourier(id, orders.Courier{Name: req.Name, Phone: req.Phone})
	})
}

func (h *ordersHandler) rate(c *gin.Context) {
	var req validation.RatingRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	h.mutate(c, events.ActionRate, func(id string) lifecycle.Result {
		return h.cfg.Controller.Rate(id, req.Rating, req.Feedback)
	})
}

func (h *ordersHandler) setPayment(c *gin.Context) {
	var req validation.PaymentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	status, err := orders.ParsePaymentStatus(req.Status)
	if err != nil {
		writeResult(c, http.StatusOK, lifecycle.Result{ErrorKind: orders.KindOf(err), Message: err.Error()})
		return
	}
	h.mutate(c, events.ActionSetPayment, func(id string) lifecycle.Result {
		return h.cfg.Controller.SetPayment(id, status)
	})
}

// mutate runs op unless the client has already gone away, then persists and
// publishes the result.
func (h *ordersHandler) mutate(c *gin.Context, action events.Action, op func(id string) lifecycle.Result) {
	if c.Request.Context().Err() != nil {
		abandon(c)
		return
	}
	res := op(c.Param("id"))
	if res.OK {
		h.afterMutation(c, action, res.Record)
	}
	writeResult(c, http.StatusOK, res)
}

// afterMutation hands the new record to the persistence and notification
// collaborators. Their failures are logged; the mutation stands.
func (h *ordersHandler) afterMutation(c *gin.Context, action events.Action, o *orders.Order) {
	ctx := context.WithoutCancel(c.Request.Context())
	log := h.log.WithFields(logrus.Fields{"action": action, "order_id": o.ID, "request_id": requestID(c)})

	if h.cfg.Repository != nil {
		switch err := h.cfg.Repository.Save(ctx, *o); {
		case errors.Is(err, persistence.ErrStaleSnapshot):
			log.WithField("version", o.Version).Debug("newer snapshot already persisted")
		case err != nil:
			log.WithError(err).Error("persist order")
		}
	}
	if h.cfg.Publisher != nil {
		ev := events.FromOrder(action, previousStatus(action, o), *o, h.now())
		ev.CorrelationID = requestID(c)
		if err := h.cfg.Publisher.PublishLifecycleEvent(ctx, ev); err != nil {
			log.WithError(err).Error("publish lifecycle event")
		}
	}
}

// previousStatus is the status the action moved the order from. Intake and
// non-transition actions leave it equal to the current status.
func previousStatus(action events.Action, o *orders.Order) orders.Status {
	switch action {
	case events.ActionAccept, events.ActionReject, events.ActionAdvance, events.ActionCancel:
		if n := len(o.History); n > 0 {
			return o.History[n-1].From
		}
	}
	return o.Status
}

func (h *ordersHandler) counts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "counts": h.cfg.Controller.Counts()})
}

func (h *ordersHandler) listBucket(c *gin.Context) {
	bucket, err := orders.ParseBucket(c.Param("bucket"))
	if err != nil {
		writeError(c, http.StatusBadRequest, orders.KindInvalidArgument, err.Error())
		return
	}
	req, err := validation.BindBucketQuery(c, h.v, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	if err != nil {
		// BindBucketQuery already wrote a 400
		return
	}

	res := h.cfg.Controller.QueryBucket(bucket, req.SearchText, req.Filters, req.Page, req.PageSize)
	if !res.OK {
		writeError(c, statusFor(res.ErrorKind), res.ErrorKind, res.Message)
		return
	}
	c.JSON(http.StatusOK, res)
}
