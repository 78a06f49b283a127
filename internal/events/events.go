// Package events defines the message the API publishes after every applied
// order mutation and the worker consumes.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

// Action names the operation that produced an event.
type Action string

const (
	ActionIntake        Action = "intake"
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionAdvance       Action = "advance"
	ActionCancel        Action = "cancel"
	ActionAssignCourier Action = "assign_courier"
	ActionRate          Action = "rate"
	ActionSetPayment    Action = "set_payment"
)

// LifecycleEvent is the payload sent from API -> SQS -> Worker.
type LifecycleEvent struct {
	OrderID       string               `json:"order_id"`
	Action        Action               `json:"action"`
	From          orders.Status        `json:"from,omitempty"`
	To            orders.Status        `json:"to"`
	Bucket        orders.Bucket        `json:"bucket"`
	Total         decimal.Decimal      `json:"total_amount"`
	PaymentStatus orders.PaymentStatus `json:"payment_status,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
	CorrelationID string               `json:"correlation_id,omitempty"`
}

// FromOrder builds the event for an order after action was applied. from is
// the status before the change; it equals o.Status for non-transition actions.
func FromOrder(action Action, from orders.Status, o orders.Order, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		OrderID:       o.ID,
		Action:        action,
		From:          from,
		To:            o.Status,
		Bucket:        o.Bucket(),
		Total:         o.Total,
		PaymentStatus: o.PaymentStatus,
		OccurredAt:    at.UTC(),
	}
}

// StatusChanged reports whether the event moved the order between statuses.
func (e LifecycleEvent) StatusChanged() bool {
	return e.From != e.To
}

// Decode parses and checks a message body.
func Decode(body string) (LifecycleEvent, error) {
	var ev LifecycleEvent
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return LifecycleEvent{}, fmt.Errorf("decode lifecycle event: %w", err)
	}
	if ev.OrderID == "" {
		return LifecycleEvent{}, errors.New("lifecycle event: missing order_id")
	}
	if ev.Action == "" {
		return LifecycleEvent{}, errors.New("lifecycle event: missing action")
	}
	if _, err := orders.ParseStatus(string(ev.To)); err != nil {
		return LifecycleEvent{}, fmt.Errorf("lifecycle event: %w", err)
	}
	return ev, nil
}
