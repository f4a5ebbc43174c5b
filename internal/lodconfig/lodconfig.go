// Package lodconfig holds the mesher's tunable parameters, loaded and
// saved as JSON the way a config package typically does, but carried as
// an explicit value passed into a Viewer at construction time instead of
// a mutable global singleton.
package lodconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pyramid describes the patch pyramid's shape.
type Pyramid struct {
	// BasePatchSize is the finest level's world-space side length.
	BasePatchSize int `json:"base_patch_size"`

	// Step is the world-space spacing between adjacent sample grid
	// points; BasePatchSize/Step must be a positive even integer.
	Step int `json:"step"`

	// MaxLevel is the coarsest level in the pyramid (0 is always the
	// finest).
	MaxLevel int `json:"max_level"`
}

// Selection tunes the quadtree's LOD split behaviour.
type Selection struct {
	// SplitFactor scales a patch's own side length into the focus
	// distance within which it must subdivide.
	SplitFactor float64 `json:"split_factor"`

	// StreamDistance is how far from the focus a patch may be and still
	// be streamed in.
	StreamDistance float64 `json:"stream_distance"`

	// HideDistance, if > 0, suppresses patches closer than this.
	HideDistance float64 `json:"hide_distance"`
}

// Pipeline tunes the async build pipeline.
type Pipeline struct {
	// MaxConcurrentBuilds bounds the promise throttler's slot count.
	MaxConcurrentBuilds int `json:"max_concurrent_builds"`

	// GarbageCollectIntervalSeconds is how often the viewer sweeps
	// resident patches that lie far from the focus.
	GarbageCollectIntervalSeconds int `json:"garbage_collect_interval_seconds"`

	// FlatShading selects de-indexed, per-face normals over the default
	// shared-vertex indexed mesh: more vertices, crisper facets.
	FlatShading bool `json:"flat_shading"`

	// DedicatedThreadsCount, if > 0, dispatches each patch's normal
	// computation to a bounded worker pool of this many goroutines
	// instead of running it inline on the calling goroutine. The pool is
	// created lazily, on the first build that needs it.
	DedicatedThreadsCount int `json:"dedicated_threads_count"`
}

// Observability tunes logging and the stats server.
type Observability struct {
	Development    bool   `json:"development"`
	LogFilePath    string `json:"log_file_path"`
	StatsServePort int    `json:"stats_serve_port"` // 0 disables the stats server
}

// Options is the full set of tunables a Viewer is constructed with.
type Options struct {
	Pyramid       Pyramid       `json:"pyramid"`
	Selection     Selection     `json:"selection"`
	Pipeline      Pipeline      `json:"pipeline"`
	Observability Observability `json:"observability"`
}

// Default returns the out-of-the-box configuration.
func Default() Options {
	return Options{
		Pyramid: Pyramid{
			BasePatchSize: 256,
			Step:          1,
			MaxLevel:      6,
		},
		Selection: Selection{
			SplitFactor:    2.0,
			StreamDistance: 8192,
			HideDistance:   0,
		},
		Pipeline: Pipeline{
			MaxConcurrentBuilds:           4,
			GarbageCollectIntervalSeconds: 10,
			FlatShading:                   false,
			DedicatedThreadsCount:         0,
		},
		Observability: Observability{
			Development:    false,
			LogFilePath:    "",
			StatsServePort: 0,
		},
	}
}

// Load reads Options from a JSON file, starting from Default so missing
// fields keep their defaults rather than zero values.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("lodconfig: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("lodconfig: parsing %s: %w", path, err)
	}
	return opts, nil
}

// Save writes opts to a JSON file.
func Save(path string, opts Options) error {
	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return fmt.Errorf("lodconfig: encoding options: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("lodconfig: writing %s: %w", path, err)
	}
	return nil
}

// Validate checks the invariants the rest of the mesher relies on:
// BasePatchSize/Step must form a positive even quad count, and MaxLevel
// must be non-negative.
func (o Options) Validate() error {
	if o.Pyramid.Step <= 0 || o.Pyramid.BasePatchSize <= 0 {
		return fmt.Errorf("lodconfig: base_patch_size and step must be positive")
	}
	if o.Pyramid.BasePatchSize%o.Pyramid.Step != 0 {
		return fmt.Errorf("lodconfig: base_patch_size (%d) must be divisible by step (%d)", o.Pyramid.BasePatchSize, o.Pyramid.Step)
	}
	n := o.Pyramid.BasePatchSize / o.Pyramid.Step
	if n < 2 || n%2 != 0 {
		return fmt.Errorf("lodconfig: base_patch_size/step (%d) must be an even integer >= 2", n)
	}
	if o.Pyramid.MaxLevel < 0 {
		return fmt.Errorf("lodconfig: max_level must be >= 0")
	}
	if o.Selection.StreamDistance <= 0 {
		return fmt.Errorf("lodconfig: stream_distance must be positive")
	}
	if o.Pipeline.MaxConcurrentBuilds < 1 {
		return fmt.Errorf("lodconfig: max_concurrent_builds must be >= 1")
	}
	return nil
}

// ClampHideDistance keeps HideDistance within [0, StreamDistance).
func (o *Options) ClampHideDistance() {
	if o.Selection.HideDistance < 0 {
		o.Selection.HideDistance = 0
	}
	if o.Selection.HideDistance >= o.Selection.StreamDistance {
		o.Selection.HideDistance = o.Selection.StreamDistance - 1
	}
}
