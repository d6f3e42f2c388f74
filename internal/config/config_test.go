package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deskplan/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DESKPLAN_TEST_DATA", filepath.Join(dir, "data"))

	path := writeFile(t, dir, "config.yaml", `
storage:
  backend: file
  path: ${DESKPLAN_TEST_DATA}/tische_config.json
http:
  enabled: true
  rate_limit_per_second: 5
monitoring:
  prometheus_enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "tische_config.json"), cfg.Storage.Path)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 9090, cfg.Monitoring.PrometheusPort)
	assert.Equal(t, 3, cfg.Save.MaxRetries)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}, cfg.RetryDelays())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Equal(t, "configs/desks.yaml", cfg.Desks.SeedPath)

	_, err = os.Stat(filepath.Join(dir, "data"))
	assert.NoError(t, err, "data directory is created")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "storage:\n  backend: postgres\n"},
		{"redis without address", "storage:\n  backend: redis\n"},
		{"telegram without token", "storage:\n  backend: memory\ntelegram:\n  enabled: true\n"},
		{"sheets without spreadsheet", "storage:\n  backend: memory\nsheets:\n  enabled: true\n  credentials_file: x.json\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const desksYAML = `
defaults:
  type: schedule
  screens: 2
desks:
  - id: 0
  - id: 1
    name: GPU corner
    computer:
      present: true
      kind: GPU
      name: gpu-01
      shutdownable: true
  - id: 2
    type: fullbooking
    computer:
      screens: 1
  - id: 10
    type: projekt
`

func TestLoadDesksConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "desks.yaml", desksYAML)

	cfg, err := LoadDesksConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "DesksConfig: 4 desks (1 with computer)", cfg.String())

	desks := cfg.ToDesks()
	require.Len(t, desks, 4)

	assert.Equal(t, "0", desks[0].ID)
	assert.Equal(t, "Desk 0", desks[0].Name)
	assert.Equal(t, models.TypeSchedule, desks[0].Type)
	assert.Equal(t, 2, desks[0].Computer.Screens)

	assert.Equal(t, "GPU corner", desks[1].Name)
	assert.Equal(t, models.ComputerGPU, desks[1].Computer.Kind)
	assert.True(t, desks[1].Computer.Shutdownable)

	assert.Equal(t, models.TypeFullBooking, desks[2].Type)
	assert.Equal(t, 1, desks[2].Computer.Screens)
	assert.NotNil(t, desks[2].FullBooking())

	assert.Equal(t, "10", desks[3].ID)
	assert.NotNil(t, desks[3].Project())
}

func TestDesksConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "desks: []\n"},
		{"duplicate id", "desks:\n  - id: 1\n  - id: 1\n"},
		{"negative id", "desks:\n  - id: -1\n"},
		{"legacy type", "desks:\n  - id: 1\n    type: stundenplan\n"},
		{"bad kind", "desks:\n  - id: 1\n    computer:\n      kind: TPU\n"},
		{"too many screens", "desks:\n  - id: 1\n    computer:\n      screens: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "desks.yaml", tt.content)
			_, err := LoadDesksConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultDesksConfig(t *testing.T) {
	cfg := DefaultDesksConfig()
	require.NoError(t, cfg.Validate())
	desks := cfg.ToDesks()
	require.Len(t, desks, DefaultDeskCount)
	assert.Equal(t, "10", desks[10].ID)
	assert.Equal(t, models.ComputerNone, desks[10].Computer.Kind)
}

func TestDesksWatcher(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("ReportsOnlyChanges", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "desks.yaml", "desks:\n  - id: 0\n")
		w, err := NewDesksWatcher(path, 10*time.Millisecond, &logger)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		var mu sync.Mutex
		var seen []int
		done := make(chan struct{})
		go func() {
			defer close(done)
			w.Run(ctx, func(cfg *DesksConfig) {
				mu.Lock()
				seen = append(seen, len(cfg.Desks))
				mu.Unlock()
			})
		}()

		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		assert.Empty(t, seen, "the file present at start is not reported")
		mu.Unlock()

		require.NoError(t, os.WriteFile(path, []byte("desks:\n  - id: 0\n  - id: 1\n"), 0o644))
		future := time.Now().Add(time.Minute)
		require.NoError(t, os.Chtimes(path, future, future))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(seen) == 1 && seen[0] == 2
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})

	t.Run("InvalidChangeSkipped", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "desks.yaml", "desks:\n  - id: 0\n")
		w, err := NewDesksWatcher(path, time.Hour, &logger)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("desks: [\n"), 0o644))
		future := time.Now().Add(time.Minute)
		require.NoError(t, os.Chtimes(path, future, future))
		assert.Nil(t, w.poll())

		later := future.Add(time.Minute)
		require.NoError(t, os.WriteFile(path, []byte("desks:\n  - id: 4\n"), 0o644))
		require.NoError(t, os.Chtimes(path, later, later))
		cfg := w.poll()
		require.NotNil(t, cfg)
		assert.Len(t, cfg.Desks, 1)
		assert.Nil(t, w.poll())
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := NewDesksWatcher(filepath.Join(t.TempDir(), "none.yaml"), time.Second, &logger)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
