package derive

// Option applies a configuration option to the Deriver.
type Option func(*Deriver)

// WithChannels sets the ordered channel set to derive.
func WithChannels(channels ...string) Option {
	return func(d *Deriver) {
		if len(channels) > 0 {
			d.channels = append([]string(nil), channels...)
		}
	}
}

// WithConfidenceThreshold drops frames whose confidence is below threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(d *Deriver) {
		if threshold >= 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}

// WithPoseAxes sets the head-pose axis columns used by magnitude and polar
// channels.
func WithPoseAxes(axes ...string) Option {
	return func(d *Deriver) {
		if len(axes) > 0 {
			d.poseAxes = append([]string(nil), axes...)
		}
	}
}
