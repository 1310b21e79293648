// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) returns the canonical defaults.
//   - Load(ctx, ...) layers a named profile, an optional YAML file and
//     FACEWIN_* environment variables on top of the defaults.
//   - Validate reports every violation wrapped in ErrInvalidConfig.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/facewin/internal/domain/derive"
	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/internal/domain/types"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	// Profile names the preset applied before file and env overrides.
	Profile string `koanf:"profile" yaml:"profile"`

	// InputDir and OutputDir are used when the command gets no arguments.
	InputDir  string `koanf:"input_dir" yaml:"input_dir"`
	OutputDir string `koanf:"output_dir" yaml:"output_dir"`

	// ConfidenceThreshold drops frames with lower tracker confidence.
	ConfidenceThreshold float64 `koanf:"confidence_threshold" yaml:"confidence_threshold"`

	// WindowSize is W in frames. Stride is S; 0 means S = W.
	WindowSize int `koanf:"window_size" yaml:"window_size"`
	Stride     int `koanf:"stride" yaml:"stride"`

	// ConditionLabels maps condition tokens to class labels.
	ConditionLabels map[string]int `koanf:"condition_labels" yaml:"condition_labels"`

	// BaselineCondition is the condition normalisation statistics come from.
	BaselineCondition string `koanf:"baseline_condition" yaml:"baseline_condition"`

	// Channels is the ordered derived channel set.
	Channels []string `koanf:"channels" yaml:"channels"`

	// Reduction is raw, mean or mean_std.
	Reduction string `koanf:"reduction" yaml:"reduction"`

	// PoseAxes lists the head-pose rotation columns (2 or 3).
	PoseAxes []string `koanf:"pose_axes" yaml:"pose_axes"`

	// Prestandardize z-scores every recording on its own before the
	// baseline reference statistics are applied.
	Prestandardize bool `koanf:"prestandardize" yaml:"prestandardize"`

	// Selection enables the Welch t-test channel filter.
	Selection      bool    `koanf:"selection" yaml:"selection"`
	SelectionAlpha float64 `koanf:"selection_alpha" yaml:"selection_alpha"`

	// Workers bounds parallel file derivation. 0 uses one per CPU.
	Workers int `koanf:"workers" yaml:"workers"`

	// WriteIntermediates also writes derived CSVs and frames.parquet.
	WriteIntermediates bool `koanf:"write_intermediates" yaml:"write_intermediates"`
}

// New creates a Config holding the canonical defaults. Context is accepted
// first to satisfy the project-wide convention.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Profile:             ProfileCanonical,
		InputDir:            ".",
		OutputDir:           "dataset",
		ConfidenceThreshold: 0.75,
		WindowSize:          150,
		Stride:              75,
		ConditionLabels: map[string]int{
			"0":  0,
			"5":  1,
			"10": 2,
		},
		BaselineCondition: "0",
		Channels:          append([]string(nil), derive.DefaultChannels...),
		Reduction:         string(types.ReductionMeanStd),
		PoseAxes:          append([]string(nil), derive.DefaultPoseAxes...),
		SelectionAlpha:    0.05,
		Workers:           1,
	}
	return c
}

// Labels returns the condition label map.
func (c *Config) Labels() model.LabelMap { return model.LabelMap(c.ConditionLabels) }

// EffectiveStride resolves a zero stride to the window size.
func (c *Config) EffectiveStride() int {
	if c.Stride == 0 {
		return c.WindowSize
	}
	return c.Stride
}

// Validate checks c and returns every violation joined and wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.WindowSize < 1 {
		add("window_size must be >= 1, got %d", c.WindowSize)
	}
	if s := c.EffectiveStride(); s < 1 || s > c.WindowSize {
		add("stride must be in [1, window_size], got %d", s)
	}
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		add("confidence_threshold must be in [0, 1], got %v", c.ConfidenceThreshold)
	}
	if !types.Reduction(c.Reduction).Valid() {
		add("unknown reduction %q", c.Reduction)
	}
	if n := len(c.PoseAxes); n < 2 || n > 3 {
		add("pose_axes must name 2 or 3 axes, got %d", n)
	}
	for _, a := range c.PoseAxes {
		switch a {
		case derive.ColPoseRx, derive.ColPoseRy, derive.ColPoseRz:
		default:
			add("unknown pose axis %q", a)
		}
	}
	if len(c.Channels) == 0 {
		add("channels must not be empty")
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if seen[ch] {
			add("duplicate channel %q", ch)
		}
		seen[ch] = true
		if _, ok := derive.Lookup(ch, c.PoseAxes); !ok {
			add("unknown channel %q", ch)
		}
	}
	if len(c.ConditionLabels) == 0 {
		add("condition_labels must not be empty")
	}
	if _, ok := c.ConditionLabels[c.BaselineCondition]; !ok {
		add("baseline_condition %q has no label", c.BaselineCondition)
	}
	if !(c.SelectionAlpha > 0 && c.SelectionAlpha < 1) {
		add("selection_alpha must be in (0, 1), got %v", c.SelectionAlpha)
	}
	if c.Workers < 0 {
		add("workers must be >= 0, got %d", c.Workers)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		add("unknown log_format %q", c.LogFormat)
	}

	return errors.Join(errs...)
}
