package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/facewin/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		m := metrics.NewManager(metrics.WithCustomLabels(map[string]string{"profile": "canonical"}))

		Convey("When pipeline events are recorded", func() {
			m.RecordFile(metrics.FileAccepted)
			m.RecordFile(metrics.FileAccepted)
			m.RecordFile(metrics.FileSkipped)
			m.RecordFrames(metrics.FrameKept, 120)
			m.RecordFrames(metrics.FrameLowConf, 0)
			m.RecordFallbacks("ear", 4)
			m.RecordWindows("5", 3)
			m.ObserveStage("derive", 20*time.Millisecond)
			m.SetWorkers(2)

			Convey("Then they are gathered from the registry", func() {
				mfs, err := m.Registry().Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, mf := range mfs {
					names[mf.GetName()] = true
				}
				So(names["facewin_pipeline_files_total"], ShouldBeTrue)
				So(names["facewin_pipeline_frames_total"], ShouldBeTrue)
				So(names["facewin_pipeline_stage_duration_seconds"], ShouldBeTrue)
				So(names["facewin_pipeline_metric_sentinels_total"], ShouldBeFalse)
			})

			Convey("And they are written as a textfile", func() {
				path := filepath.Join(t.TempDir(), "metrics.prom")
				So(m.WriteTextfile(path), ShouldBeNil)

				raw, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				text := string(raw)
				So(text, ShouldContainSubstring, `facewin_pipeline_files_total{outcome="accepted",profile="canonical"} 2`)
				So(text, ShouldContainSubstring, `facewin_pipeline_frames_total{disposition="kept",profile="canonical"} 120`)
				So(text, ShouldContainSubstring, `facewin_pipeline_windows_total{condition="5",profile="canonical"} 3`)
				So(text, ShouldNotContainSubstring, "low_confidence")
			})
		})
	})

	Convey("Given a caller-supplied registry and names", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithPrometheusRegistry(reg),
			metrics.WithNamespace("x"),
			metrics.WithSubsystem("y"),
			metrics.WithHistogramBuckets([]float64{1}),
		)
		m.RecordSubjectExcluded("insufficient_baseline")

		So(m.Registry(), ShouldEqual, reg)
		mfs, err := reg.Gather()
		So(err, ShouldBeNil)
		So(len(mfs), ShouldBeGreaterThan, 0)
	})

	Convey("Given a disabled or nil manager", t, func() {
		var nilManager *metrics.Manager
		disabled := metrics.NewManager(metrics.WithMetricsEnabled(false))

		Convey("Then recording and writing are no-ops", func() {
			So(func() {
				nilManager.RecordFile(metrics.FileAccepted)
				nilManager.Since("derive", time.Now())
				disabled.RecordWindows("0", 4)
			}, ShouldNotPanic)

			path := filepath.Join(t.TempDir(), "metrics.prom")
			So(nilManager.WriteTextfile(path), ShouldBeNil)
			So(disabled.WriteTextfile(path), ShouldBeNil)
			_, err := os.Stat(path)
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})
}
