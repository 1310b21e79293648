package selection

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithAlpha sets the significance level a channel's median p-value must
// fall below to be kept.
func WithAlpha(alpha float64) Option {
	return func(s *Selector) {
		s.alpha = alpha
	}
}

// WithBaselineCondition sets the condition whose windows form the
// reference group of every test.
func WithBaselineCondition(condition string) Option {
	return func(s *Selector) {
		if condition != "" {
			s.baseline = condition
		}
	}
}
