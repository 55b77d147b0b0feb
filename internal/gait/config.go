package gait

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid gait config")

// AngleRange is an inclusive [min, max] range in degrees. It marshals as a
// two-element JSON array.
type AngleRange [2]float64

// Contains reports whether deg lies within the range, bounds included.
func (r AngleRange) Contains(deg float64) bool {
	return deg >= r[0] && deg <= r[1]
}

// Config holds detection thresholds. The JSON schema matches the tuning file
// accepted by LoadConfig.
type Config struct {
	AccelZMin         float64 `json:"accel_z_min"`         // g
	AccelMagnitudeMin float64 `json:"accel_magnitude_min"` // g
	GyroMagnitudeMax  float64 `json:"gyro_magnitude_max"`  // °/s

	MinContactDuration float64 `json:"min_contact_duration"` // s
	MaxContactDuration float64 `json:"max_contact_duration"` // s
	MinFlightDuration  float64 `json:"min_flight_duration"`  // s
	MaxFlightDuration  float64 `json:"max_flight_duration"`  // s

	HeelRange     AngleRange `json:"heel_angle_range"`
	MidfootRange  AngleRange `json:"midfoot_angle_range"`
	ForefootRange AngleRange `json:"forefoot_angle_range"`

	// SamplingRate is only used to convert sample counts into zone times.
	// Contact timing always comes from timestamps.
	SamplingRate float64 `json:"sampling_rate"` // Hz
}

// DefaultConfig returns the thresholds the detector was tuned with.
func DefaultConfig() Config {
	return Config{
		AccelZMin:          0.5,
		AccelMagnitudeMin:  1.2,
		GyroMagnitudeMax:   50.0,
		MinContactDuration: 0.1,
		MaxContactDuration: 0.5,
		MinFlightDuration:  0.05,
		MaxFlightDuration:  0.3,
		HeelRange:          AngleRange{-30, 10},
		MidfootRange:       AngleRange{-10, 30},
		ForefootRange:      AngleRange{20, 60},
		SamplingRate:       30,
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.MinContactDuration < 0 || c.MinFlightDuration < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.MinContactDuration > c.MaxContactDuration {
		return fmt.Errorf("%w: min_contact_duration %.3f > max_contact_duration %.3f",
			ErrInvalidConfig, c.MinContactDuration, c.MaxContactDuration)
	}
	if c.MinFlightDuration > c.MaxFlightDuration {
		return fmt.Errorf("%w: min_flight_duration %.3f > max_flight_duration %.3f",
			ErrInvalidConfig, c.MinFlightDuration, c.MaxFlightDuration)
	}
	if c.SamplingRate <= 0 {
		return fmt.Errorf("%w: sampling_rate must be positive, got %v", ErrInvalidConfig, c.SamplingRate)
	}
	for name, r := range map[string]AngleRange{
		"heel_angle_range":     c.HeelRange,
		"midfoot_angle_range":  c.MidfootRange,
		"forefoot_angle_range": c.ForefootRange,
	} {
		if r[0] > r[1] {
			return fmt.Errorf("%w: %s min %.1f > max %.1f", ErrInvalidConfig, name, r[0], r[1])
		}
	}
	return nil
}

const maxConfigFileSize = 1 << 20

// LoadConfig reads a JSON tuning file on top of DefaultConfig. Fields
// omitted from the file keep their defaults. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("gait config must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat gait config: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return cfg, fmt.Errorf("gait config too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read gait config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse gait config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
