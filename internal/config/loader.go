// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // keys read during the last Load
}

// NewLoader creates a new configuration loader. configPath may be empty for
// ENV-only configuration.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, empty when ENV-only.
func (l *Loader) Path() string {
	return l.configPath
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseString(EnvPrefix+key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseBool(EnvPrefix+key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseInt(EnvPrefix+key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseDuration(EnvPrefix+key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseFloat(EnvPrefix+key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseList(EnvPrefix+key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// resolves derived paths and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	resolvePaths(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile strictly decodes a YAML document into a FileConfig.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.DataDir != "" {
		dst.DataDir = os.ExpandEnv(src.DataDir)
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogService != "" {
		dst.LogService = src.LogService
	}
	if src.Resources != nil && len(src.Resources.Dirs) > 0 {
		dst.ResourceDirs = make([]string, len(src.Resources.Dirs))
		for i, d := range src.Resources.Dirs {
			dst.ResourceDirs[i] = os.ExpandEnv(d)
		}
	}

	if e := src.Engine; e != nil {
		if e.Workers != nil {
			dst.Workers = *e.Workers
		}
		if err := mergeDuration(&dst.FrameBudget, "engine.frameBudget", e.FrameBudget); err != nil {
			return err
		}
		if err := mergeDuration(&dst.FrameInterval, "engine.frameInterval", e.FrameInterval); err != nil {
			return err
		}
	}

	if c := src.Cache; c != nil {
		if c.Enabled != nil {
			dst.TextureCaching = *c.Enabled
		}
		if c.Backend != "" {
			dst.CacheBackend = c.Backend
		}
		if c.Dir != "" {
			dst.CacheDir = os.ExpandEnv(c.Dir)
		}
	}

	if j := src.Journal; j != nil {
		if j.Enabled != nil {
			dst.JournalEnabled = *j.Enabled
		}
		if j.Path != "" {
			dst.JournalPath = os.ExpandEnv(j.Path)
		}
	}

	if d := src.Diag; d != nil {
		if d.Listen != "" {
			dst.DiagListen = d.Listen
		}
		if d.RateLimit != nil {
			dst.DiagRateLimit = *d.RateLimit
		}
	}

	if t := src.Telemetry; t != nil {
		if t.Enabled != nil {
			dst.Telemetry.Enabled = *t.Enabled
		}
		if t.Exporter != "" {
			dst.Telemetry.ExporterType = t.Exporter
		}
		if t.Endpoint != "" {
			dst.Telemetry.Endpoint = t.Endpoint
		}
		if t.SamplingRate != nil {
			dst.Telemetry.SamplingRate = *t.SamplingRate
		}
	}

	if s := src.Scene; s != nil {
		if s.Mpr != "" {
			dst.Scene.Mpr = s.Mpr
		}
		if len(s.Mobs) > 0 {
			dst.Scene.Mobs = append([]string(nil), s.Mobs...)
		}
	}
	return nil
}

func mergeDuration(dst *time.Duration, field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w: %q", field, ErrInvalidDuration, raw)
	}
	*dst = d
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("LOG_SERVICE", cfg.LogService)
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)
	cfg.ResourceDirs = l.envList("RESOURCE_DIRS", cfg.ResourceDirs)

	cfg.Workers = l.envInt("WORKERS", cfg.Workers)
	cfg.FrameBudget = l.envDuration("FRAME_BUDGET", cfg.FrameBudget)
	cfg.FrameInterval = l.envDuration("FRAME_INTERVAL", cfg.FrameInterval)

	cfg.TextureCaching = l.envBool("TEXTURE_CACHING", cfg.TextureCaching)
	cfg.CacheBackend = l.envString("CACHE_BACKEND", cfg.CacheBackend)
	cfg.CacheDir = l.envString("CACHE_DIR", cfg.CacheDir)

	cfg.JournalEnabled = l.envBool("JOURNAL_ENABLED", cfg.JournalEnabled)
	cfg.JournalPath = l.envString("JOURNAL_PATH", cfg.JournalPath)

	cfg.DiagListen = l.envString("DIAG_LISTEN", cfg.DiagListen)
	cfg.DiagRateLimit = l.envInt("DIAG_RATE_LIMIT", cfg.DiagRateLimit)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Scene.Mpr = l.envString("MPR", cfg.Scene.Mpr)
	cfg.Scene.Mobs = l.envList("MOBS", cfg.Scene.Mobs)
}

// resolvePaths fills paths that default to locations under DataDir.
func resolvePaths(cfg *AppConfig) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.DataDir, "cache")
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = filepath.Join(cfg.DataDir, "journal.sqlite")
	}
}
