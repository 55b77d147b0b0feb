package gait

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"contact min above max", func(c *Config) { c.MinContactDuration = 0.6 }},
		{"flight min above max", func(c *Config) { c.MinFlightDuration = 0.4 }},
		{"negative duration", func(c *Config) { c.MinFlightDuration = -0.1 }},
		{"zero sampling rate", func(c *Config) { c.SamplingRate = 0 }},
		{"inverted range", func(c *Config) { c.ForefootRange = AngleRange{60, 20} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			_, err = NewAnalyzer(cfg, RoleMap{})
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gait.json")
	body := `{"gyro_magnitude_max": 80, "heel_angle_range": [-40, 0], "sampling_rate": 100}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.GyroMagnitudeMax)
	assert.Equal(t, AngleRange{-40, 0}, cfg.HeelRange)
	assert.Equal(t, 100.0, cfg.SamplingRate)
	// untouched fields keep their defaults
	assert.Equal(t, 1.2, cfg.AccelMagnitudeMin)
	assert.Equal(t, AngleRange{20, 60}, cfg.ForefootRange)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	yaml := filepath.Join(dir, "gait.yaml")
	require.NoError(t, os.WriteFile(yaml, []byte("{}"), 0o644))
	_, err := LoadConfig(yaml)
	assert.ErrorContains(t, err, ".json")

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o644))
	_, err = LoadConfig(broken)
	assert.ErrorContains(t, err, "parse")

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"sampling_rate": -1}`), 0o644))
	_, err = LoadConfig(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
