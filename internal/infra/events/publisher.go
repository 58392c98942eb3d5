// Package events は注文まわりのイベントをログとPrometheusのメトリクスに流す。
package events

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/logging"
	"storefront/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Publisher struct {
	events   *prometheus.CounterVec
	finalize *prometheus.HistogramVec
}

func NewPublisher(reg prometheus.Registerer) (*Publisher, error) {
	p := &Publisher{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "orders",
			Name:      "events_total",
			Help:      "Order fulfillment events by type.",
		}, []string{"type"}),
		finalize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "finalize_duration_seconds",
			Help:      "Time spent in the order finalize transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "outcome"}),
	}

	for _, c := range []prometheus.Collector{p.events, p.finalize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Publisher) Publish(ctx context.Context, e usecase.Event) {
	p.events.WithLabelValues(string(e.Type)).Inc()

	fields := []zap.Field{zap.String("event", string(e.Type))}
	if e.OrderID != 0 {
		fields = append(fields, zap.Int64("order_id", e.OrderID))
	}
	if e.DriverID != 0 {
		fields = append(fields, zap.Int64("driver_id", e.DriverID))
	}
	if e.SlotID != 0 {
		fields = append(fields, zap.Int64("slot_id", e.SlotID))
	}
	if e.ProductID != 0 {
		fields = append(fields, zap.Int64("product_id", e.ProductID))
	}
	if e.Detail != "" {
		fields = append(fields, zap.String("detail", e.Detail))
	}
	logging.FromContext(ctx).Info("order event", fields...)
}

func (p *Publisher) ObserveFinalize(method model.PaymentMethod, outcome string, d time.Duration) {
	p.finalize.WithLabelValues(string(method), outcome).Observe(d.Seconds())
}
