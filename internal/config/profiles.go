package config

import (
	"fmt"
	"sort"

	"github.com/okian/facewin/internal/domain/derive"
	"github.com/okian/facewin/internal/domain/types"
)

// Named profiles.
const (
	ProfileCanonical    = "canonical"
	ProfileSequence     = "sequence"
	ProfileSummary2Axis = "summary-2axis"
	ProfileNonOverlap   = "nonoverlap"
)

// profiles adjust the defaults. They run before file and env layers.
var profiles = map[string]func(*Config){
	ProfileCanonical: func(*Config) {},

	// Per-frame sequences for recurrent models: every offset, raw frames.
	ProfileSequence: func(c *Config) {
		c.Reduction = string(types.ReductionRaw)
		c.Stride = 1
		c.ConfidenceThreshold = 0.3
	},

	// Yaw and pitch only, with head pose expressed in polar form.
	ProfileSummary2Axis: func(c *Config) {
		c.PoseAxes = []string{derive.ColPoseRx, derive.ColPoseRy}
		c.Channels = []string{
			derive.ColGazeX,
			derive.ColGazeY,
			derive.ChannelEAR,
			derive.ChannelHeadPoseR,
			derive.ChannelHeadPoseTheta,
			derive.ChannelPupilScale,
		}
	},

	// Disjoint windows summarised by their means.
	ProfileNonOverlap: func(c *Config) {
		c.Stride = 0
		c.Reduction = string(types.ReductionMean)
	},
}

// Profiles returns the known profile names, sorted.
func Profiles() []string {
	out := make([]string, 0, len(profiles))
	for name := range profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ApplyProfile applies the named profile to c.
func ApplyProfile(c *Config, name string) error {
	if name == "" {
		name = ProfileCanonical
	}
	apply, ok := profiles[name]
	if !ok {
		return fmt.Errorf("%w: unknown profile %q (known: %v)", ErrInvalidConfig, name, Profiles())
	}
	apply(c)
	c.Profile = name
	return nil
}
