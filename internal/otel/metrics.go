package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	submissionsCounter  metric.Int64Counter
	submissionDuration  metric.Float64Histogram
	annotationOps       metric.Int64Counter
	navigationCounter   metric.Int64Counter
	sseConnectionsGauge metric.Int64ObservableGauge
	sseEventsCounter    metric.Int64Counter
	sseConnections      int64
	sseConnectionsMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		submissionsCounter, err = m.Int64Counter("annoq_submissions_total", metric.WithDescription("Total draft submissions"))
		if err != nil {
			return
		}
		submissionDuration, err = m.Float64Histogram("annoq_submission_duration_seconds", metric.WithDescription("Submission round-trip duration in seconds"))
		if err != nil {
			return
		}
		annotationOps, err = m.Int64Counter("annoq_annotation_ops_total", metric.WithDescription("Comment and score operations dispatched"))
		if err != nil {
			return
		}
		navigationCounter, err = m.Int64Counter("annoq_navigation_total", metric.WithDescription("Queue navigation moves"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("annoq_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("annoq_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordSubmission records one submission and its duration.
func RecordSubmission(ctx context.Context, queue, scope string, ok bool, duration time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	attrs := metric.WithAttributes(AttrQueue.String(queue), AttrScope.String(scope), AttrResult.String(result))
	if submissionsCounter != nil {
		submissionsCounter.Add(ctx, 1, attrs)
	}
	if submissionDuration != nil {
		submissionDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordAnnotationOp records one dispatched write (family: comment|score; op: create|update|delete|set).
func RecordAnnotationOp(ctx context.Context, family, op string) {
	if annotationOps == nil {
		return
	}
	annotationOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", family),
		attribute.String("operation", op),
	))
}

// RecordNavigation records one queue move (direction: next|previous|advance|start).
func RecordNavigation(ctx context.Context, direction string) {
	if navigationCounter == nil {
		return
	}
	navigationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}

// ItemCountFunc returns (processed, unprocessed) counts for the open queue.
type ItemCountFunc func() (processed, unprocessed int64)

// InitMetricsWithItemCount creates instruments and optionally registers a
// callback for the queue-item gauge. If itemCount is nil, the gauge is not
// reported.
func InitMetricsWithItemCount(ctx context.Context, itemCount ItemCountFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	if itemCount == nil {
		return nil
	}
	m := Meter()
	itemsGauge, err := m.Float64ObservableGauge("annoq_queue_items", metric.WithDescription("Number of open-queue items by state"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		processed, unprocessed := itemCount()
		o.ObserveFloat64(itemsGauge, float64(processed), metric.WithAttributes(AttrState.String("processed")))
		o.ObserveFloat64(itemsGauge, float64(unprocessed), metric.WithAttributes(AttrState.String("unprocessed")))
		return nil
	}, itemsGauge)
	return err
}
