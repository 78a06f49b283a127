package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-orderdesk/internal/events"
	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

const (
	MetricOrderTransitions = "OrderTransitions"
	MetricOrderValue       = "OrderValue"
)

// Metrics records order lifecycle metrics in CloudWatch.
type Metrics struct {
	CW        CloudWatchAPI
	Namespace string
}

// NewMetrics returns a Metrics writer for namespace.
func NewMetrics(cw CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{CW: cw, Namespace: namespace}
}

// RecordLifecycleEvent emits one OrderTransitions count per event and, for
// completed orders, their value.
func (m *Metrics) RecordLifecycleEvent(ctx context.Context, ev events.LifecycleEvent) error {
	data := []cwtypes.MetricDatum{{
		MetricName: sdkaws.String(MetricOrderTransitions),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
		Timestamp:  sdkaws.Time(ev.OccurredAt),
		Dimensions: []cwtypes.Dimension{
			{Name: sdkaws.String("Action"), Value: sdkaws.String(string(ev.Action))},
			{Name: sdkaws.String("ToStatus"), Value: sdkaws.String(string(ev.To))},
		},
	}}

	if ev.StatusChanged() && ev.To == orders.StatusCompleted {
		data = append(data, cwtypes.MetricDatum{
			MetricName: sdkaws.String(MetricOrderValue),
			Unit:       cwtypes.StandardUnitNone,
			Value:      sdkaws.Float64(ev.Total.InexactFloat64()),
			Timestamp:  sdkaws.Time(ev.OccurredAt),
		})
	}

	_, err := m.CW.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.Namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
