// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pool runs loader routines on a fixed set of worker goroutines.
package pool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrPoolStopped is returned by Enqueue after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// Config defines the worker count of a Pool.
type Config struct {
	Workers int
}

// Pool executes routines in FIFO order on Config.Workers goroutines.
type Pool struct {
	logger  zerolog.Logger
	workers int

	mu        sync.Mutex
	idle      *sync.Cond // workers wait here for routines
	progress  *sync.Cond // WaitOne/WaitAll wait here
	routines  []func()
	busy      int
	completed uint64
	stopped   bool

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New starts a pool. Workers <= 0 means one worker per CPU.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	p := &Pool{
		logger:  cedlog.WithComponent("pool"),
		workers: cfg.Workers,
	}
	p.idle = sync.NewCond(&p.mu)
	p.progress = sync.NewCond(&p.mu)

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.work()
	}
	p.logger.Info().Int("workers", cfg.Workers).Msg("worker pool started")
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Enqueue schedules fn. It never blocks on a busy pool.
func (p *Pool) Enqueue(fn func()) error {
	if fn == nil {
		return fmt.Errorf("enqueue: nil routine")
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		metrics.IncPoolRoutine("rejected")
		return ErrPoolStopped
	}
	p.routines = append(p.routines, fn)
	metrics.PoolPendingRoutines.Set(float64(len(p.routines)))
	p.idle.Signal()
	p.mu.Unlock()
	return nil
}

// Busy reports whether any routine is queued or running.
func (p *Pool) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busyLocked()
}

func (p *Pool) busyLocked() bool {
	return len(p.routines) != 0 || p.busy != 0
}

// WaitOne blocks until at least one routine finishes. It returns at once
// when the pool is idle or stopped.
func (p *Pool) WaitOne() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.busyLocked() {
		return
	}
	gen := p.completed
	for gen == p.completed && !p.stopped {
		p.progress.Wait()
	}
}

// WaitOneTimeout is WaitOne bounded by d. It reports false when d
// elapsed with routines still running and none finished.
func (p *Pool) WaitOneTimeout(d time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.busyLocked() {
		return true
	}
	expired := false
	timer := time.AfterFunc(d, func() {
		p.mu.Lock()
		expired = true
		p.progress.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	gen := p.completed
	for gen == p.completed && !p.stopped && !expired {
		p.progress.Wait()
	}
	return gen != p.completed || p.stopped
}

// WaitAll blocks until nothing is queued or running.
func (p *Pool) WaitAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.busyLocked() && !p.stopped {
		p.progress.Wait()
	}
}

// Stop lets running routines finish, abandons queued ones and waits for
// every worker to exit. Later Enqueue calls fail with ErrPoolStopped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		abandoned := len(p.routines)
		p.routines = nil
		p.idle.Broadcast()
		p.progress.Broadcast()
		p.mu.Unlock()

		p.wg.Wait()

		metrics.PoolPendingRoutines.Set(0)
		if abandoned > 0 {
			for i := 0; i < abandoned; i++ {
				metrics.IncPoolRoutine("abandoned")
			}
			p.logger.Warn().
				Int("abandoned", abandoned).
				Msg("worker pool stopped with queued routines")
		}
		p.logger.Info().Msg("worker pool stopped")
	})
}

func (p *Pool) work() {
	defer p.wg.Done()

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		for len(p.routines) == 0 && !p.stopped {
			p.idle.Wait()
		}
		if p.stopped {
			return
		}

		fn := p.routines[0]
		p.routines[0] = nil
		p.routines = p.routines[1:]
		p.busy++
		metrics.PoolPendingRoutines.Set(float64(len(p.routines)))
		metrics.PoolBusyWorkers.Set(float64(p.busy))
		p.mu.Unlock()

		outcome := p.run(fn)
		metrics.IncPoolRoutine(outcome)

		p.mu.Lock()
		p.busy--
		p.completed++
		metrics.PoolBusyWorkers.Set(float64(p.busy))
		p.progress.Broadcast()
	}
}

func (p *Pool) run(fn func()) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			p.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("pool routine panicked")
		}
	}()
	fn()
	return "done"
}
