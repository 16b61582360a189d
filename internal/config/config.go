// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"runtime"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML shape. Pointer fields distinguish "unset"
// from zero values.
type FileConfig struct {
	DataDir    string           `yaml:"dataDir,omitempty"`
	LogLevel   string           `yaml:"logLevel,omitempty"`
	LogService string           `yaml:"logService,omitempty"`
	Resources  *ResourcesConfig `yaml:"resources,omitempty"`
	Engine     *EngineConfig    `yaml:"engine,omitempty"`
	Cache      *CacheConfig     `yaml:"cache,omitempty"`
	Journal    *JournalConfig   `yaml:"journal,omitempty"`
	Diag       *DiagConfig      `yaml:"diag,omitempty"`
	Telemetry  *TelemetryFile   `yaml:"telemetry,omitempty"`
	Scene      *SceneConfig     `yaml:"scene,omitempty"`
}

// ResourcesConfig lists resource search directories.
type ResourcesConfig struct {
	Dirs []string `yaml:"dirs,omitempty"`
}

// EngineConfig holds frame loop and worker settings.
type EngineConfig struct {
	Workers       *int   `yaml:"workers,omitempty"`
	FrameBudget   string `yaml:"frameBudget,omitempty"`
	FrameInterval string `yaml:"frameInterval,omitempty"`
}

// CacheConfig controls sector texture caching.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Backend string `yaml:"backend,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// JournalConfig controls the SQLite load journal.
type JournalConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// DiagConfig controls the diagnostics listener.
type DiagConfig struct {
	Listen    string `yaml:"listen,omitempty"`
	RateLimit *int   `yaml:"rateLimit,omitempty"`
}

// TelemetryFile is the telemetry section of the YAML file.
type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

// TelemetryConfig is the resolved telemetry configuration.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// SceneConfig names the resources loaded at startup.
type SceneConfig struct {
	Mpr  string   `yaml:"mpr,omitempty"`
	Mobs []string `yaml:"mobs,omitempty"`
}

// AppConfig is the resolved engine configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	DataDir      string   `yaml:"dataDir"`
	ResourceDirs []string `yaml:"resourceDirs"`

	Workers       int           `yaml:"workers"`
	FrameBudget   time.Duration `yaml:"frameBudget"`
	FrameInterval time.Duration `yaml:"frameInterval"`

	TextureCaching bool   `yaml:"textureCaching"`
	CacheBackend   string `yaml:"cacheBackend"`
	CacheDir       string `yaml:"cacheDir"`

	JournalEnabled bool   `yaml:"journalEnabled"`
	JournalPath    string `yaml:"journalPath"`

	DiagListen    string `yaml:"diagListen"`
	DiagRateLimit int    `yaml:"diagRateLimit"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
	Scene     SceneConfig     `yaml:"scene"`
}

// Default values.
const (
	DefaultFrameBudget   = 40 * time.Millisecond
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultDataDir       = "data"
	DefaultCacheBackend  = "badger"
	DefaultDiagRateLimit = 60
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:       "info",
		LogService:     "ced",
		DataDir:        DefaultDataDir,
		ResourceDirs:   []string{"resources"},
		Workers:        runtime.NumCPU(),
		FrameBudget:    DefaultFrameBudget,
		FrameInterval:  DefaultFrameInterval,
		TextureCaching: true,
		CacheBackend:   DefaultCacheBackend,
		JournalEnabled: true,
		DiagRateLimit:  DefaultDiagRateLimit,
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Clone returns a deep copy of cfg.
func Clone(cfg AppConfig) AppConfig {
	out := cfg
	out.ResourceDirs = slices.Clone(cfg.ResourceDirs)
	out.Scene.Mobs = slices.Clone(cfg.Scene.Mobs)
	return out
}

// Marshal renders cfg as YAML.
func Marshal(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}
