// Package promsink counts choices activity with Prometheus.
package promsink

import (
	"context"
	"fmt"

	"github.com/goliatone/go-choices/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
)

// Hook increments choices_events_total and, for list events, adds the record
// count to choices_records_total.
type Hook struct {
	events  *prometheus.CounterVec
	records *prometheus.CounterVec
}

// New registers the counters on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) (*Hook, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hook := &Hook{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "choices",
			Name:      "events_total",
			Help:      "Option list activity events by verb and channel.",
		}, []string{"verb", "channel"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "choices",
			Name:      "records_total",
			Help:      "Records produced by normalization passes.",
		}, []string{"kind"}),
	}
	for _, collector := range []prometheus.Collector{hook.events, hook.records} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("promsink: register: %w", err)
		}
	}
	return hook, nil
}

// Notify implements activity.ActivityHook.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil {
		return nil
	}
	h.events.WithLabelValues(event.Verb, event.Channel).Inc()
	kind, _ := event.Metadata["kind"].(string)
	records, ok := event.Metadata["records"].(int)
	if ok && kind != "" && records > 0 {
		h.records.WithLabelValues(kind).Add(float64(records))
	}
	return nil
}
