// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/cursedearth/engine/internal/cache"
	"github.com/cursedearth/engine/internal/validate"
)

var (
	logLevels     = []string{"trace", "debug", "info", "warn", "error"}
	cacheBackends = []string{cache.BackendBadger, cache.BackendDir, cache.BackendMemory, cache.BackendNone}
	exporters     = []string{"grpc", "http"}
)

// Validate checks a resolved AppConfig.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("LogLevel", cfg.LogLevel, logLevels)
	v.NotEmpty("DataDir", cfg.DataDir)
	if len(cfg.ResourceDirs) == 0 {
		v.AddError("ResourceDirs", "at least one resource directory is required", cfg.ResourceDirs)
	}
	for _, dir := range cfg.ResourceDirs {
		v.NotEmpty("ResourceDirs", dir)
	}

	v.Range("Workers", cfg.Workers, 1, 256)
	v.DurationRange("FrameBudget", cfg.FrameBudget, time.Millisecond, 10*time.Second)
	v.DurationRange("FrameInterval", cfg.FrameInterval, 0, 10*time.Second)

	v.OneOf("CacheBackend", cfg.CacheBackend, cacheBackends)
	if cfg.TextureCaching && (cfg.CacheBackend == cache.BackendBadger || cfg.CacheBackend == cache.BackendDir) {
		v.NotEmpty("CacheDir", cfg.CacheDir)
	}
	if cfg.JournalEnabled {
		v.NotEmpty("JournalPath", cfg.JournalPath)
	}

	v.ListenAddr("DiagListen", cfg.DiagListen)
	if cfg.DiagListen != "" {
		v.Positive("DiagRateLimit", cfg.DiagRateLimit)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.ExporterType", cfg.Telemetry.ExporterType, exporters)
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate)
	}

	return v.Err()
}
