package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Circle", cfg.Variant)
	assert.Equal(t, float32(30), cfg.TargetRate)
	assert.Equal(t, 400, cfg.Particles)
	assert.Equal(t, float32(5), cfg.FPSWindow)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ravelizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("variant: SnowyCircle\ntarget_rate: 60\nheadless: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "SnowyCircle", cfg.Variant)
	assert.Equal(t, float32(60), cfg.TargetRate)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 400, cfg.Particles)
	assert.True(t, cfg.VSync)
	assert.Equal(t, SourceSynthetic, cfg.Source)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("particles: [1, 2\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Listen = ":8080"
	cfg.Source = SourceMic
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Root = " "
	cfg.TargetRate = 0
	cfg.Particles = -1
	cfg.FPSWindow = -2
	cfg.Source = "radio"
	cfg.NoiseFloor = 1
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"root", "target_rate", "particles", "fps_window", "source", "noise_floor", "log level"} {
		assert.Contains(t, err.Error(), field)
	}
}
