package recommend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Weights holds the point budgets for the four recommendation components.
// The normalized score divides by the sum of all four, so recalibrated
// weights keep normalizedScore within [0, 1].
type Weights struct {
	Traits     float64 `json:"traits"`     // default: 45
	Categories float64 `json:"categories"` // default: 25
	Proximity  float64 `json:"proximity"`  // default: 20
	Engagement float64 `json:"engagement"` // default: 10
}

// Total returns the combined weight budget (100 with defaults).
func (w Weights) Total() float64 {
	return w.Traits + w.Categories + w.Proximity + w.Engagement
}

// CalibrationConfig is the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight overrides
}

// DefaultWeights returns the default recommendation weight configuration.
//
// Formula: score = traits(0-45) + categories(0-25) + proximity(0-20) +
// engagement(0-10); normalizedScore = score / 100.
// Trait affinity dominates because it is the strongest personalization
// signal; engagement is a small familiarity nudge.
func DefaultWeights() *Weights {
	return &Weights{
		Traits:     45,
		Categories: 25,
		Proximity:  20,
		Engagement: 10,
	}
}

// LoadCalibration loads recommendation weights from a JSON calibration
// file. Partial configurations merge with defaults so the file may
// override a single weight. On any read or parse error, defaults are
// returned along with the error so callers can degrade gracefully.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read recommendation calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse recommendation calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights onto base weights. Only
// non-zero override values apply, allowing partial calibration files.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Traits != 0 {
		result.Traits = override.Traits
	}
	if override.Categories != 0 {
		result.Categories = override.Categories
	}
	if override.Proximity != 0 {
		result.Proximity = override.Proximity
	}
	if override.Engagement != 0 {
		result.Engagement = override.Engagement
	}

	return &result
}

// logCalibrationOverrides logs which weights differ from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	if loaded.Traits != defaults.Traits {
		overrides = append(overrides, fmt.Sprintf("traits: %.1f -> %.1f",
			defaults.Traits, loaded.Traits))
	}
	if loaded.Categories != defaults.Categories {
		overrides = append(overrides, fmt.Sprintf("categories: %.1f -> %.1f",
			defaults.Categories, loaded.Categories))
	}
	if loaded.Proximity != defaults.Proximity {
		overrides = append(overrides, fmt.Sprintf("proximity: %.1f -> %.1f",
			defaults.Proximity, loaded.Proximity))
	}
	if loaded.Engagement != defaults.Engagement {
		overrides = append(overrides, fmt.Sprintf("engagement: %.1f -> %.1f",
			defaults.Engagement, loaded.Engagement))
	}

	if len(overrides) > 0 {
		slog.Info("loaded recommendation calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded recommendation calibration (using all defaults)")
	}
}
