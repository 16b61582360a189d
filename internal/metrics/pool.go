// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PoolPendingRoutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ced_pool_pending_routines",
		Help: "Routines enqueued on the worker pool and not yet started",
	})

	PoolBusyWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ced_pool_busy_workers",
		Help: "Worker goroutines currently executing a routine",
	})

	PoolRoutinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_pool_routines_total",
		Help: "Routines handled by the worker pool by outcome",
	}, []string{"outcome"}) // outcome=done|panic|rejected|abandoned
)

// IncPoolRoutine records a routine outcome.
func IncPoolRoutine(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	PoolRoutinesTotal.WithLabelValues(outcome).Inc()
}
