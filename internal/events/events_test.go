package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

func TestFromOrderAndDecode(t *testing.T) {
	at := time.Date(2024, 6, 1, 20, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	o := orders.Order{
		ID:            "O1",
		Status:        orders.StatusPreparing,
		PaymentStatus: orders.PaymentPaid,
		Total:         decimal.RequireFromString("320.50"),
	}

	ev := FromOrder(ActionAccept, orders.StatusPending, o, at)
	if ev.Bucket != orders.BucketOngoing || !ev.StatusChanged() || ev.OccurredAt.Location() != time.UTC {
		t.Fatalf("unexpected event %+v", ev)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Decode(string(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OrderID != "O1" || got.From != orders.StatusPending || !got.Total.Equal(o.Total) || !got.OccurredAt.Equal(at) {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing order":  `{"action":"accept","to":"Preparing"}`,
		"missing action": `{"order_id":"O1","to":"Preparing"}`,
		"unknown status": `{"order_id":"O1","action":"accept","to":"Lost"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(body); err == nil {
				t.Fatalf("expected %s to be rejected", body)
			}
		})
	}
}

func TestStatusChanged_NonTransition(t *testing.T) {
	o := orders.Order{ID: "O1", Status: orders.StatusCompleted}
	if FromOrder(ActionRate, orders.StatusCompleted, o, time.Now()).StatusChanged() {
		t.Fatal("rating does not change status")
	}
}
