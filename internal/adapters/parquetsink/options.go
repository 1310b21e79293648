package parquetsink

// Option applies a configuration option to the Sink.
type Option func(*Sink)

// WithParallelism sets the number of goroutines the writer marshals with.
func WithParallelism(n int64) Option {
	return func(s *Sink) {
		if n > 0 {
			s.parallel = n
		}
	}
}
