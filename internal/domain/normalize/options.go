package normalize

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithBaselineCondition sets the neutral condition the reference is drawn from.
func WithBaselineCondition(condition string) Option {
	return func(n *Normalizer) {
		if condition != "" {
			n.baseline = condition
		}
	}
}

// WithPerRecordingStandardize z-scores every recording against its own
// statistics before the baseline reference is applied.
func WithPerRecordingStandardize(enabled bool) Option {
	return func(n *Normalizer) {
		n.prestandardize = enabled
	}
}
