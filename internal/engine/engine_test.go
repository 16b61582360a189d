// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cursedearth/engine/internal/cache"
	"github.com/cursedearth/engine/internal/config"
	"github.com/cursedearth/engine/internal/diag"
	"github.com/cursedearth/engine/internal/health"
	"github.com/cursedearth/engine/internal/journal"
	"github.com/cursedearth/engine/internal/scene"
)

func writeResource(t *testing.T, dir, kind, name, body string) {
	t.Helper()
	path := filepath.Join(dir, kind, name+".yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// testConfig returns a config over a resource tree with one 1x1 map
// ("isle") and one mob file with two objects ("camp").
func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	res := t.TempDir()
	writeResource(t, res, "maps", "isle", `
max_y: 10
sectors_x: 1
sectors_z: 1
textures: 1
sectors:
  - land_tiles: [0, 0, 0, 0]
`)
	writeResource(t, res, "textures", "isle000", "width: 4\nheight: 4\ncolor: [0, 128, 0, 255]\n")
	writeResource(t, res, "mobs", "camp", `
objects:
  - type: 52
    name: guard
    model: unmoor
    position: [10, 5, 3]
    rotation: [1, 0, 0, 0]
    complection: [1, 1, 1]
  - type: 10
    name: tent
    model: tent01
    position: [20, 8, 1]
    rotation: [1, 0, 0, 0]
    complection: [1, 1, 1]
`)

	data := t.TempDir()
	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.DataDir = data
	cfg.ResourceDirs = []string{res}
	cfg.Workers = 2
	cfg.FrameInterval = time.Millisecond
	cfg.CacheBackend = cache.BackendMemory
	cfg.CacheDir = filepath.Join(data, "cache")
	cfg.JournalPath = filepath.Join(data, "journal.sqlite")
	cfg.Scene = config.SceneConfig{Mpr: "isle", Mobs: []string{"camp"}}
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func TestRunExitsWhenLoaded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app, err := New(context.Background(), testConfig(t), Options{ExitWhenLoaded: true})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Run(ctx))

	assert.Equal(t, scene.StatePlaying, app.Scenes().State())
	sum := app.Scenes().Summary()
	assert.Equal(t, 2, sum.Entities)
	assert.Equal(t, 1, sum.Sectors)
	assert.Equal(t, 1.0, app.Scenes().Progress())
	assert.Positive(t, app.Frames())

	st := app.Status()
	assert.Equal(t, "playing", st.State)
	assert.Empty(t, st.Tasks)

	app.Close()
	app.Close()
}

func TestRunWithoutSceneExitsImmediately(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scene = config.SceneConfig{}
	cfg.JournalEnabled = false

	app, err := New(context.Background(), cfg, Options{ExitWhenLoaded: true})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Run(context.Background()))
	assert.Equal(t, scene.StateReady, app.Scenes().State())
	assert.Equal(t, uint64(1), app.Frames())
}

func TestRunJournalsFailedLoad(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scene = config.SceneConfig{Mobs: []string{"camp", "ghost"}}

	app, err := New(context.Background(), cfg, Options{ExitWhenLoaded: true})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Run(context.Background()))
	assert.Equal(t, 2, app.Scenes().Summary().Entities)

	require.Eventually(t, func() bool {
		entries, err := app.journal.Recent(context.Background(), 10)
		if err != nil || len(entries) != 2 {
			return false
		}
		for _, e := range entries {
			if e.Status == journal.StatusQueued {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)

	entries, err := app.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	byName := map[string]journal.Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, journal.StatusDone, byName["camp"].Status)
	assert.Equal(t, 2, byName["camp"].Items)
	assert.Equal(t, journal.StatusFailed, byName["ghost"].Status)
	assert.NotEmpty(t, byName["ghost"].Error)
}

func TestRunServesDiagnostics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app, err := New(context.Background(), testConfig(t), Options{DiagListener: ln})
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/progress")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var st diag.Status
		if json.NewDecoder(resp.Body).Decode(&st) != nil {
			return false
		}
		return st.State == "playing" && st.Entities == 2
	}, 10*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/loads")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ready, err := http.Get(base + "/readyz")
	require.NoError(t, err)
	defer ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
	var rr health.Response
	require.NoError(t, json.NewDecoder(ready.Body).Decode(&rr))
	assert.Contains(t, rr.Checks, "journal")
	assert.Contains(t, rr.Checks, "resources")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestApplyReloadedConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.JournalEnabled = false
	app, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, cfg.FrameBudget, app.FrameBudget())
	next := config.Clone(cfg)
	next.FrameBudget = 5 * time.Millisecond
	app.apply(next)
	assert.Equal(t, 5*time.Millisecond, app.FrameBudget())
}

func TestNewRejectsUnknownCacheBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = "redis"
	_, err := New(context.Background(), cfg, Options{})
	assert.ErrorContains(t, err, "texture cache")
}
