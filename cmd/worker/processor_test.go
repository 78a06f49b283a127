package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/imrishuroy/go-orderdesk/internal/events"
	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

// --- mock implementations ---

type mockMetrics struct {
	mu       sync.Mutex
	recorded []events.LifecycleEvent
	failFor  string
}

func (m *mockMetrics) RecordLifecycleEvent(ctx context.Context, ev events.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.OrderID == m.failFor {
		return errors.New("cloudwatch unavailable")
	}
	m.recorded = append(m.recorded, ev)
	return nil
}

func message(t *testing.T, id string, ev events.LifecycleEvent) lambdaevents.SQSMessage {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return lambdaevents.SQSMessage{MessageId: id, Body: string(body)}
}

func event(orderID string, to orders.Status) events.LifecycleEvent {
	return events.LifecycleEvent{
		OrderID:    orderID,
		Action:     events.ActionAdvance,
		From:       orders.StatusOutForDelivery,
		To:         to,
		Bucket:     to.Bucket(),
		Total:      decimal.NewFromInt(320),
		OccurredAt: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
	}
}

// --- test cases ---

func TestWorkerProcess_Success(t *testing.T) {
	metrics := &mockMetrics{}
	logger, _ := logtest.NewNullLogger()
	p := NewProcessor(metrics, logger)

	ev := lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		message(t, "m1", event("o1", orders.StatusCompleted)),
		message(t, "m2", event("o2", orders.StatusCompleted)),
	}}

	resp, err := p.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no failures, got %+v", resp.BatchItemFailures)
	}
	if len(metrics.recorded) != 2 {
		t.Fatalf("expected 2 recorded events, got %d", len(metrics.recorded))
	}
}

func TestWorkerProcess_ReportsOnlyFailedRecords(t *testing.T) {
	metrics := &mockMetrics{failFor: "o2"}
	logger, hook := logtest.NewNullLogger()
	p := NewProcessor(metrics, logger)

	ev := lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		message(t, "m1", event("o1", orders.StatusCompleted)),
		message(t, "m2", event("o2", orders.StatusCompleted)),
		{MessageId: "m3", Body: `{"order_id":`},
	}}

	resp, err := p.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	failed := map[string]bool{}
	for _, f := range resp.BatchItemFailures {
		failed[f.ItemIdentifier] = true
	}
	if len(failed) != 2 || !failed["m2"] || !failed["m3"] {
		t.Fatalf("expected m2 and m3 to fail, got %+v", resp.BatchItemFailures)
	}
	if len(metrics.recorded) != 1 || metrics.recorded[0].OrderID != "o1" {
		t.Fatalf("expected only o1 recorded, got %+v", metrics.recorded)
	}

	errorsLogged := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "worker error" {
			errorsLogged++
		}
	}
	if errorsLogged != 2 {
		t.Fatalf("expected 2 worker errors logged, got %d", errorsLogged)
	}
}

func TestDefaultLocalBodyDecodes(t *testing.T) {
	if _, err := events.Decode(defaultLocalBody); err != nil {
		t.Fatalf("local sample body must be valid: %v", err)
	}
}
