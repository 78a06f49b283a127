package main

import (
	"context"
	"fmt"
	"sync"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-orderdesk/internal/events"
)

// maxInFlight bounds how many records of one batch are processed at once.
const maxInFlight = 10

// MetricsRecorder records lifecycle metrics.
type MetricsRecorder interface {
	RecordLifecycleEvent(ctx context.Context, ev events.LifecycleEvent) error
}

// Processor turns lifecycle events from SQS into CloudWatch metrics.
type Processor struct {
	metrics MetricsRecorder
	log     logrus.FieldLogger
}

// NewProcessor creates a new worker processor.
func NewProcessor(metrics MetricsRecorder, log logrus.FieldLogger) *Processor {
	return &Processor{metrics: metrics, log: log}
}

// Handle processes a batch and reports the records that failed so only those
// are redelivered. Redelivered records eventually land in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
	p.log.Infof("received %d SQS messages", len(ev.Records))

	var (
		mu       sync.Mutex
		failures []lambdaevents.SQSBatchItemFailure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for _, rec := range ev.Records {
		g.Go(func() error {
			if err := p.processMessage(gctx, rec); err != nil {
				p.log.WithError(err).WithField("message_id", rec.MessageId).Error("worker error")
				mu.Lock()
				failures = append(failures, lambdaevents.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return lambdaevents.SQSEventResponse{BatchItemFailures: failures}, nil
}

func (p *Processor) processMessage(ctx context.Context, rec lambdaevents.SQSMessage) error {
	ev, err := events.Decode(rec.Body)
	if err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log := p.log.WithFields(logrus.Fields{
		"order_id":       ev.OrderID,
		"action":         ev.Action,
		"from":           ev.From,
		"to":             ev.To,
		"correlation_id": ev.CorrelationID,
	})
	log.Debug("[worker] received lifecycle event")

	if err := p.metrics.RecordLifecycleEvent(ctx, ev); err != nil {
		return fmt.Errorf("record metrics for order=%s: %w", ev.OrderID, err)
	}

	log.Info("[worker] recorded lifecycle event")
	return nil
}
