// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health aggregates component checks for the liveness and
// readiness endpoints of the diagnostics listener.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cursedearth/engine/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the body of both endpoints.
type Response struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func (c checkFunc) Name() string                          { return c.name }
func (c checkFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// CheckFunc adapts fn to a Checker.
func CheckFunc(name string, fn func(ctx context.Context) CheckResult) Checker {
	return checkFunc{name: name, fn: fn}
}

// Manager manages health and readiness checks
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// Register adds checkers. Not safe for use once serving has started.
func (m *Manager) Register(checkers ...Checker) {
	m.checkers = append(m.checkers, checkers...)
}

func (m *Manager) run(ctx context.Context) Response {
	resp := Response{
		Ready:     true,
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
			resp.Ready = false
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// Health is the liveness view: the process answers, so it is alive.
// Component results are included only when verbose.
func (m *Manager) Health(ctx context.Context, verbose bool) Response {
	if !verbose {
		return Response{Ready: true, Status: StatusHealthy, Version: m.version, Timestamp: time.Now()}
	}
	return m.run(ctx)
}

// Ready runs every checker. Any unhealthy component makes the engine not
// ready; degraded components do not.
func (m *Manager) Ready(ctx context.Context) Response {
	return m.run(ctx)
}

// ServeHealth handles HTTP health check requests. Always 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	resp := m.Health(r.Context(), verbose)
	m.write(w, r, http.StatusOK, resp, "health")
}

// ServeReady handles HTTP readiness check requests: 200 when ready, 503
// otherwise.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, code, resp, "readiness")
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, code int, resp Response, component string) {
	logger := log.WithComponentFromContext(r.Context(), component)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", component+".encode_error").Msg("failed to encode response")
		return
	}
	logger.Debug().
		Str("event", component+".checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("check performed")
}

// DirChecker reports whether resource directories are readable. One
// missing directory out of several is degraded; none readable is unhealthy.
type DirChecker struct {
	name string
	dirs []string
}

// NewDirChecker creates a checker over dirs.
func NewDirChecker(name string, dirs ...string) *DirChecker {
	return &DirChecker{name: name, dirs: append([]string(nil), dirs...)}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	if len(c.dirs) == 0 {
		return CheckResult{Status: StatusUnhealthy, Error: "no directories configured"}
	}
	var missing []string
	for _, dir := range c.dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	switch {
	case len(missing) == 0:
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d directories readable", len(c.dirs))}
	case len(missing) == len(c.dirs):
		return CheckResult{Status: StatusUnhealthy, Error: "no directory readable", Message: fmt.Sprint(missing)}
	default:
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("missing: %v", missing)}
	}
}

// PingChecker wraps a Ping-style probe such as a database handle.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker that is unhealthy when ping fails.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
