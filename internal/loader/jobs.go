// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import "sync"

// JobCounts is a snapshot of the current loading wave.
type JobCounts struct {
	Queued    int `json:"queued"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Done reports whether every queued job of the wave has completed.
func (c JobCounts) Done() bool {
	return c.Completed == c.Queued
}

// Progress returns Completed/Queued, or 1 when nothing is queued.
func (c JobCounts) Progress() float64 {
	if c.Queued == 0 {
		return 1
	}
	return float64(c.Completed) / float64(c.Queued)
}

// Add sums two snapshots.
func (c JobCounts) Add(o JobCounts) JobCounts {
	return JobCounts{
		Queued:    c.Queued + o.Queued,
		Completed: c.Completed + o.Completed,
		Failed:    c.Failed + o.Failed,
	}
}

// Jobs counts queued and completed jobs of one loading wave. When the last
// queued job completes both counters return to zero. Every transition
// happens under one mutex, so a Queue racing the final Complete lands
// either in the finished wave or in the next one, never in between.
type Jobs struct {
	mu        sync.Mutex
	queued    int
	completed int
	failed    int
	waves     uint64
}

// Queue adds one job to the wave.
func (j *Jobs) Queue() {
	j.mu.Lock()
	j.queued++
	j.mu.Unlock()
}

// Complete marks one job done and reports whether it closed the wave.
func (j *Jobs) Complete(failed bool) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.completed >= j.queued {
		return false
	}
	j.completed++
	if failed {
		j.failed++
	}
	if j.completed == j.queued {
		j.queued, j.completed, j.failed = 0, 0, 0
		j.waves++
		return true
	}
	return false
}

// Reset drops the current wave.
func (j *Jobs) Reset() {
	j.mu.Lock()
	j.queued, j.completed, j.failed = 0, 0, 0
	j.mu.Unlock()
}

// Snapshot returns the counters of the current wave.
func (j *Jobs) Snapshot() JobCounts {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobCounts{Queued: j.queued, Completed: j.completed, Failed: j.failed}
}

// Waves returns how many waves have completed.
func (j *Jobs) Waves() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.waves
}
