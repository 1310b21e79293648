// Package metrics provides Prometheus metrics for facewin pipeline runs.
//
// A batch run owns a Manager backed by its own registry. When the run
// finishes the registry is flushed to a node-exporter style textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	FileAccepted = "accepted"
	FileSkipped  = "skipped"

	FrameKept         = "kept"
	FrameLowConf      = "low_confidence"
	FrameMalformed    = "malformed"
	FrameNonMonotonic = "non_monotonic"
)

// Manager holds the Prometheus collectors of one pipeline run.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         *prometheus.Registry

	files            *prometheus.CounterVec
	frames           *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	sentinels        *prometheus.CounterVec
	subjectsExcluded *prometheus.CounterVec
	groupsSkipped    *prometheus.CounterVec
	windows          *prometheus.CounterVec
	stageLatency     *prometheus.HistogramVec
	workers          prometheus.Gauge
	channelsKept     prometheus.Gauge
}

// NewManager creates a metrics manager. Unless WithPrometheusRegistry is
// given it registers on a fresh registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "facewin",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		enabled:          true,
		customLabels:     make(map[string]string),
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates the collectors on the configured registry.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: m.customLabels,
		}, labels)
	}

	m.files = counter("files_total", "Input recordings by outcome", "outcome")
	m.frames = counter("frames_total", "Input frames by disposition", "disposition")
	m.fallbacks = counter("metric_fallbacks_total", "Frames where a channel used a fallback source", "channel")
	m.sentinels = counter("metric_sentinels_total", "Frames where a channel had no usable source", "channel")
	m.subjectsExcluded = counter("subjects_excluded_total", "Subjects dropped before windowing", "reason")
	m.groupsSkipped = counter("groups_skipped_total", "Subject/condition groups that produced no windows", "reason")
	m.windows = counter("windows_total", "Windows written per condition", "condition")

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Wall time of each pipeline stage",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"stage"})

	m.workers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workers",
		Help:        "Derivation workers in use",
		ConstLabels: m.customLabels,
	})
	m.channelsKept = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "channels_kept",
		Help:        "Channels written after feature selection",
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) on() bool { return m != nil && m.enabled }

// RecordFile counts one input recording with the given outcome.
func (m *Manager) RecordFile(outcome string) {
	if m.on() {
		m.files.WithLabelValues(outcome).Inc()
	}
}

// RecordFrames adds n frames with the given disposition.
func (m *Manager) RecordFrames(disposition string, n int) {
	if m.on() && n > 0 {
		m.frames.WithLabelValues(disposition).Add(float64(n))
	}
}

// RecordFallbacks adds n fallback-source uses for channel.
func (m *Manager) RecordFallbacks(channel string, n int) {
	if m.on() && n > 0 {
		m.fallbacks.WithLabelValues(channel).Add(float64(n))
	}
}

// RecordSentinels adds n sentinel substitutions for channel.
func (m *Manager) RecordSentinels(channel string, n int) {
	if m.on() && n > 0 {
		m.sentinels.WithLabelValues(channel).Add(float64(n))
	}
}

// RecordSubjectExcluded counts an excluded subject.
func (m *Manager) RecordSubjectExcluded(reason string) {
	if m.on() {
		m.subjectsExcluded.WithLabelValues(reason).Inc()
	}
}

// RecordGroupSkipped counts a group that produced no windows.
func (m *Manager) RecordGroupSkipped(reason string) {
	if m.on() {
		m.groupsSkipped.WithLabelValues(reason).Inc()
	}
}

// RecordWindows adds n written windows for condition.
func (m *Manager) RecordWindows(condition string, n int) {
	if m.on() && n > 0 {
		m.windows.WithLabelValues(condition).Add(float64(n))
	}
}

// ObserveStage records the duration of a pipeline stage.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	if m.on() {
		m.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// Since records the time elapsed from start against stage.
func (m *Manager) Since(stage string, start time.Time) {
	m.ObserveStage(stage, time.Since(start))
}

// SetWorkers records the worker count.
func (m *Manager) SetWorkers(n int) {
	if m.on() {
		m.workers.Set(float64(n))
	}
}

// SetChannelsKept records the number of channels after selection.
func (m *Manager) SetChannelsKept(n int) {
	if m.on() {
		m.channelsKept.Set(float64(n))
	}
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes every collected metric to path in the Prometheus
// text exposition format.
func (m *Manager) WriteTextfile(path string) error {
	if !m.on() {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	return nil
}
