package synth_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/okian/facewin/internal/adapters/tabular"
	"github.com/okian/facewin/internal/domain/derive"
	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/internal/synth"
	"github.com/okian/facewin/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := synth.DefaultConfig()
		recs := synth.Generate(cfg)

		Convey("Then one recording per subject and condition is produced", func() {
			So(len(recs), ShouldEqual, cfg.Subjects*len(cfg.Conditions))
			for _, r := range recs {
				So(len(r.Rows), ShouldEqual, cfg.Frames)
				for _, row := range r.Rows {
					So(len(row), ShouldEqual, len(r.Header))
				}
			}
		})

		Convey("Then names parse back into subject and condition", func() {
			for _, r := range recs {
				k, err := model.ParseSourceName(r.Name() + ".csv")
				So(err, ShouldBeNil)
				So(k.Subject, ShouldEqual, r.Subject)
				So(k.Condition, ShouldEqual, r.Condition)
			}
		})

		Convey("Then generation is deterministic", func() {
			So(synth.Generate(cfg), ShouldResemble, recs)
			So(synth.SubjectID(cfg.Seed, 0), ShouldEqual, recs[0].Subject)
			So(synth.SubjectID(cfg.Seed+1, 0), ShouldNotEqual, recs[0].Subject)
		})
	})
}

func TestWriteDir(t *testing.T) {
	Convey("Given recordings written for each eye layout", t, func() {
		_ = logger.Init(logger.WithWriter(io.Discard))
		for _, layout := range []synth.Layout{synth.LayoutEyeRegion, synth.LayoutFace2D, synth.LayoutPlugin} {
			cfg := synth.DefaultConfig()
			cfg.Subjects, cfg.Frames, cfg.Layout, cfg.LowConfidence = 1, 20, layout, 0
			dir := t.TempDir()

			paths, err := synth.WriteDir(context.Background(), dir, cfg)
			So(err, ShouldBeNil)
			So(len(paths), ShouldEqual, 3)

			Convey("Then the "+string(layout)+" tables derive EAR and pupil scale without sentinels", func() {
				tbl, err := tabular.ReadFile(paths[0])
				So(err, ShouldBeNil)
				So(tbl.Has("confidence"), ShouldBeTrue)

				d, err := derive.NewDeriver()
				So(err, ShouldBeNil)
				key, _ := model.ParseSourceName(filepath.Base(paths[0]))
				rec, rep, err := d.Derive(context.Background(), key, filepath.Base(paths[0]), tbl)
				So(err, ShouldBeNil)
				So(rep.FramesKept, ShouldEqual, 20)
				So(rep.Sentinels, ShouldBeEmpty)

				ear := rec.Column(rec.Schema.Index(derive.ChannelEAR))
				for _, v := range ear {
					So(v, ShouldBeBetween, 0.2, 0.4)
				}
				ps := rec.Column(rec.Schema.Index(derive.ChannelPupilScale))
				So(ps[0], ShouldBeGreaterThan, 0)
			})
		}
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := synth.WriteDir(ctx, t.TempDir(), synth.DefaultConfig())
		So(err, ShouldNotBeNil)
	})
}
