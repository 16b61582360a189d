// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus collectors for the loading pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPostedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_events_posted_total",
		Help: "Total number of events added to a consumer queue",
	}, []string{"consumer"})

	EventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_events_processed_total",
		Help: "Total number of events whose notify callback ran",
	}, []string{"consumer"})

	EventPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_event_panics_total",
		Help: "Total number of notify callbacks that panicked",
	}, []string{"consumer"})

	EventsDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_events_discarded_total",
		Help: "Total number of events dropped because their queue was closed undrained",
	}, []string{"consumer"})

	EventQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ced_event_queue_depth",
		Help: "Number of events posted but not yet processed",
	}, []string{"consumer"})

	EventQueues = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ced_event_queues",
		Help: "Number of registered consumer queues",
	})

	EventDrainDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ced_event_drain_duration_seconds",
		Help:    "Time spent in one draining pass of a consumer queue",
		Buckets: []float64{.0005, .001, .005, .01, .02, .04, .08, .16, .5, 1},
	}, []string{"consumer"})
)

func consumerLabel(consumer string) string {
	if consumer == "" {
		return "unknown"
	}
	return consumer
}

// IncEventPosted records an event added to the queue of consumer.
func IncEventPosted(consumer string) {
	EventsPostedTotal.WithLabelValues(consumerLabel(consumer)).Inc()
}

// AddEventsProcessed records n notify invocations on consumer.
func AddEventsProcessed(consumer string, n int) {
	if n <= 0 {
		return
	}
	EventsProcessedTotal.WithLabelValues(consumerLabel(consumer)).Add(float64(n))
}

// IncEventPanic records a recovered notify panic.
func IncEventPanic(consumer string) {
	EventPanicsTotal.WithLabelValues(consumerLabel(consumer)).Inc()
}

// AddEventsDiscarded records events thrown away when a queue is closed.
func AddEventsDiscarded(consumer string, n int) {
	if n <= 0 {
		return
	}
	EventsDiscardedTotal.WithLabelValues(consumerLabel(consumer)).Add(float64(n))
}

// SetEventQueueDepth publishes the live pending count of a queue.
func SetEventQueueDepth(consumer string, depth int) {
	EventQueueDepth.WithLabelValues(consumerLabel(consumer)).Set(float64(depth))
}

// ObserveEventDrain records the duration of one draining pass.
func ObserveEventDrain(consumer string, d time.Duration) {
	EventDrainDuration.WithLabelValues(consumerLabel(consumer)).Observe(d.Seconds())
}
