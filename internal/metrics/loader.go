// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoaderJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_loader_jobs_total",
		Help: "Loader jobs by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome=queued|completed|failed|cancelled

	LoaderTasksActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ced_loader_tasks_active",
		Help: "Loader tasks registered and not yet fully acknowledged",
	}, []string{"kind"})

	LoaderItemsPostedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_loader_items_posted_total",
		Help: "Sub-item events posted by loader tasks",
	}, []string{"kind"})

	TextureCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_texture_cache_total",
		Help: "Sector texture cache lookups and stores by backend and result",
	}, []string{"backend", "result"}) // result=hit|miss|put

	JournalWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ced_journal_writes_total",
		Help: "Load journal writes by outcome",
	}, []string{"outcome"}) // outcome=ok|error
)

// IncLoaderJob records a loader job transition.
func IncLoaderJob(kind, outcome string) {
	LoaderJobsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncTextureCache records a cache lookup/store result.
func IncTextureCache(backend, result string) {
	if backend == "" {
		backend = "none"
	}
	TextureCacheTotal.WithLabelValues(backend, result).Inc()
}

// IncJournalWrite records the outcome of a journal write.
func IncJournalWrite(outcome string) {
	JournalWritesTotal.WithLabelValues(outcome).Inc()
}
