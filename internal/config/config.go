// Package config holds engine-wide tunables, loaded from an optional YAML
// file the way the teacher codebase loads its masking-pattern catalogue,
// falling back to hard-coded defaults when no file is present.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Clamp bounds for the cluster tool's parameters.
const (
	MinClusters = 2
	MaxClusters = 20

	MinThreshold = 0.1
	MaxThreshold = 0.9

	// DrillThreshold is the fixed cluster-membership floor for drill-down
	// sub-clustering; it is part of the external contract and is never
	// configurable.
	DrillThreshold = 0.4
	// DrillClustererThreshold is the similarity threshold the fresh
	// sub-clusterer itself is built with during drill-down.
	DrillClustererThreshold = 0.5
)

// Config holds the tunables an engine run can override.
type Config struct {
	DefaultMaxClusters    int     `yaml:"default_max_clusters"`
	DefaultThreshold      float64 `yaml:"default_threshold"`
	DefaultMaxSubClusters int     `yaml:"default_max_subclusters"`
	DefaultMaxExamples    int     `yaml:"default_max_examples"`
	DefaultContextLines   int     `yaml:"default_context_lines"`
	DefaultFetchLimit     int     `yaml:"default_fetch_limit"`
	SessionCacheCapacity  int     `yaml:"session_cache_capacity"`
}

// Default returns the engine's hard-coded defaults.
func Default() Config {
	return Config{
		DefaultMaxClusters:    10,
		DefaultThreshold:      0.4,
		DefaultMaxSubClusters: 5,
		DefaultMaxExamples:    5,
		DefaultContextLines:   0,
		DefaultFetchLimit:     100,
		SessionCacheCapacity:  32,
	}
}

// Load reads a YAML tunables file at path, starting from Default() so a
// partial file only overrides the fields it names. A missing file is not
// an error: Load silently returns the defaults, matching the teacher's
// "fall back to built-in defaults" behavior for its own pattern file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ClampMaxClusters clamps n into [MinClusters, MaxClusters].
func ClampMaxClusters(n int) int {
	return clampInt(n, MinClusters, MaxClusters)
}

// ClampThreshold clamps t into [MinThreshold, MaxThreshold].
func ClampThreshold(t float64) float64 {
	if t < MinThreshold {
		return MinThreshold
	}
	if t > MaxThreshold {
		return MaxThreshold
	}
	return t
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
