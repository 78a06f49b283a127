package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderdesk/internal/events"
	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

type mockSQS struct {
	sent []*sqs.SendMessageInput
	err  error
}

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, in)
	return &sqs.SendMessageOutput{}, nil
}

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func completedEvent() events.LifecycleEvent {
	return events.LifecycleEvent{
		OrderID:    "O1",
		Action:     events.ActionAdvance,
		From:       orders.StatusOutForDelivery,
		To:         orders.StatusCompleted,
		Bucket:     orders.BucketHistorical,
		Total:      decimal.RequireFromString("320.50"),
		OccurredAt: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
	}
}

func TestPublishLifecycleEvent(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/orders")

	ev := completedEvent()
	ev.CorrelationID = "req-1"
	if err := p.PublishLifecycleEvent(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mock.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(mock.sent))
	}
	in := mock.sent[0]
	if *in.QueueUrl != "https://sqs.local/orders" {
		t.Fatalf("wrong queue %s", *in.QueueUrl)
	}
	got, err := events.Decode(*in.MessageBody)
	if err != nil || got.OrderID != "O1" || got.To != orders.StatusCompleted {
		t.Fatalf("body did not decode: %v %+v", err, got)
	}
	for k, want := range map[string]string{"order_id": "O1", "action": "advance", "to_status": "Completed", "correlation_id": "req-1"} {
		if v := in.MessageAttributes[k].StringValue; v == nil || *v != want {
			t.Fatalf("attribute %s: want %s, got %v", k, want, v)
		}
	}
}

func TestPublishLifecycleEvent_WrapsSendError(t *testing.T) {
	boom := errors.New("throttled")
	p := NewPublisher(&mockSQS{err: boom}, "q")
	if err := p.PublishLifecycleEvent(context.Background(), completedEvent()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestRecordLifecycleEvent(t *testing.T) {
	mock := &mockCloudWatch{}
	m := NewMetrics(mock, "OrderDesk")

	if err := m.RecordLifecycleEvent(context.Background(), completedEvent()); err != nil {
		t.Fatalf("record: %v", err)
	}
	in := mock.inputs[0]
	if *in.Namespace != "OrderDesk" || len(in.MetricData) != 2 {
		t.Fatalf("unexpected input %+v", in)
	}
	if *in.MetricData[0].MetricName != MetricOrderTransitions || *in.MetricData[1].MetricName != MetricOrderValue {
		t.Fatalf("unexpected metrics %s %s", *in.MetricData[0].MetricName, *in.MetricData[1].MetricName)
	}
	if *in.MetricData[1].Value != 320.5 {
		t.Fatalf("unexpected order value %v", *in.MetricData[1].Value)
	}

	accept := completedEvent()
	accept.Action, accept.From, accept.To = events.ActionAccept, orders.StatusPending, orders.StatusPreparing
	if err := m.RecordLifecycleEvent(context.Background(), accept); err != nil {
		t.Fatalf("record: %v", err)
	}
	if n := len(mock.inputs[1].MetricData); n != 1 {
		t.Fatalf("non-completion should emit one datum, got %d", n)
	}
}
