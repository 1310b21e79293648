package derive_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/facewin/internal/domain/derive"
	"github.com/okian/facewin/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mapRow is a Row backed by a column->value map.
type mapRow map[string]float64

func (r mapRow) Float(c string) (float64, bool) {
	v, ok := r[c]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// mapTable is a Table backed by rows of column maps.
type mapTable struct {
	cols map[string]bool
	rows []mapRow
}

func newMapTable(rows ...mapRow) *mapTable {
	t := &mapTable{cols: map[string]bool{}, rows: rows}
	for _, r := range rows {
		for c := range r {
			t.cols[c] = true
		}
	}
	return t
}

func (t *mapTable) Len() int             { return len(t.rows) }
func (t *mapTable) Has(c string) bool    { return t.cols[c] }
func (t *mapTable) Row(i int) derive.Row { return t.rows[i] }

func baseRow(frame int, conf float64) mapRow {
	return mapRow{
		derive.ColFrame:      float64(frame),
		derive.ColTimestamp:  float64(frame) / 30,
		derive.ColConfidence: conf,
		derive.ColGazeX:      0.3,
		derive.ColGazeY:      0.4,
		derive.ColPoseRx:     1,
		derive.ColPoseRy:     2,
		derive.ColPoseRz:     2,
	}
}

func sampleEye() derive.Eye {
	return derive.Eye{
		{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 1.2},
		{X: 3, Y: 0}, {X: 2, Y: -0.8}, {X: 1, Y: -1},
	}
}

func TestEyeAspectRatio(t *testing.T) {
	Convey("Given an eye contour", t, func() {
		eye := sampleEye()
		ear, ok := eye.AspectRatio()
		So(ok, ShouldBeTrue)
		So(ear, ShouldAlmostEqual, (2+2)/6.0, 1e-12)

		Convey("When every coordinate is scaled uniformly", func() {
			var scaled derive.Eye
			for i, p := range eye {
				scaled[i] = derive.Point{X: p.X * 7.5, Y: p.Y * 7.5}
			}
			got, ok := scaled.AspectRatio()

			Convey("Then the ratio is unchanged", func() {
				So(ok, ShouldBeTrue)
				So(got, ShouldAlmostEqual, ear, 1e-12)
			})
		})

		Convey("When the eye is mirrored horizontally with mirrored landmark order", func() {
			m := func(p derive.Point) derive.Point { return derive.Point{X: -p.X, Y: p.Y} }
			mirrored := derive.Eye{m(eye[3]), m(eye[2]), m(eye[1]), m(eye[0]), m(eye[5]), m(eye[4])}
			got, ok := mirrored.AspectRatio()

			Convey("Then the ratio is unchanged", func() {
				So(ok, ShouldBeTrue)
				So(got, ShouldAlmostEqual, ear, 1e-12)
			})
		})

		Convey("When the eye has zero width", func() {
			flat := derive.Eye{}
			_, ok := flat.AspectRatio()

			Convey("Then it fails soft", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestPolar(t *testing.T) {
	Convey("Given a point on the diagonal", t, func() {
		r, theta := derive.Polar(1, 1)
		So(r, ShouldAlmostEqual, math.Sqrt2, 1e-12)
		So(theta, ShouldAlmostEqual, math.Pi/4, 1e-12)
		So(derive.Norm(3, 4), ShouldEqual, 5)
	})
}

func TestMetricResolve(t *testing.T) {
	Convey("Given the EAR metric", t, func() {
		m, ok := derive.Lookup(derive.ChannelEAR, derive.DefaultPoseAxes)
		So(ok, ShouldBeTrue)

		Convey("When the plugin column is present", func() {
			v, used := m.Resolve(mapRow{"eye_lmk_EAR_avg": 0.31})

			Convey("Then the primary source wins", func() {
				So(v, ShouldEqual, 0.31)
				So(used, ShouldEqual, 0)
			})
		})

		Convey("When only 2D face landmarks are present", func() {
			row := mapRow{}
			eye := sampleEye()
			for i, n := range []int{36, 37, 38, 39, 40, 41} {
				row[derive.Landmark("", n).X] = eye[i].X
				row[derive.Landmark("", n).Y] = eye[i].Y
			}
			for i, n := range []int{42, 43, 44, 45, 46, 47} {
				row[derive.Landmark("", n).X] = eye[i].X + 10
				row[derive.Landmark("", n).Y] = eye[i].Y
			}
			v, used := m.Resolve(row)

			Convey("Then the last landmark layout is used", func() {
				So(used, ShouldEqual, 2)
				So(v, ShouldAlmostEqual, 4/6.0, 1e-12)
			})
		})

		Convey("When nothing is available", func() {
			v, used := m.Resolve(mapRow{})

			Convey("Then the sentinel is substituted", func() {
				So(used, ShouldEqual, -1)
				So(v, ShouldEqual, 0)
			})
		})
	})

	Convey("Given the pupil scale metric without p_scale", t, func() {
		m, _ := derive.Lookup(derive.ChannelPupilScale, derive.DefaultPoseAxes)
		row := mapRow{
			"eye_lmk_x_51": 0, "eye_lmk_y_51": 0, "eye_lmk_x_55": 3, "eye_lmk_y_55": 4,
			"eye_lmk_x_23": 0, "eye_lmk_y_23": 0, "eye_lmk_x_27": 0, "eye_lmk_y_27": 1,
		}
		v, used := m.Resolve(row)

		So(used, ShouldEqual, 1)
		So(v, ShouldEqual, 3)
	})

	Convey("Given head pose channels with two axes", t, func() {
		axes := []string{derive.ColPoseRx, derive.ColPoseRy}
		mag, _ := derive.Lookup(derive.ChannelHeadPoseMag, axes)
		theta, ok := derive.Lookup(derive.ChannelHeadPoseTheta, axes)
		row := baseRow(1, 1)

		So(ok, ShouldBeTrue)
		v, _ := mag.Resolve(row)
		So(v, ShouldAlmostEqual, math.Sqrt(5), 1e-12)
		v, _ = theta.Resolve(row)
		So(v, ShouldAlmostEqual, math.Atan2(2, 1), 1e-12)
	})

	Convey("Given channel lookups", t, func() {
		_, ok := derive.Lookup("AU45_r", nil)
		So(ok, ShouldBeTrue)
		_, ok = derive.Lookup("blink_rate", nil)
		So(ok, ShouldBeFalse)
		_, ok = derive.Lookup(derive.ChannelHeadPoseR, []string{derive.ColPoseRx})
		So(ok, ShouldBeFalse)
	})
}

func TestDeriver(t *testing.T) {
	key := model.Key{Subject: "CH01_A", Condition: "5"}
	ctx := context.Background()

	Convey("Given a deriver with threshold 0.75", t, func() {
		d, err := derive.NewDeriver(
			derive.WithConfidenceThreshold(0.75),
			derive.WithChannels(derive.ColGazeX, derive.ChannelGazeMag, derive.ChannelHeadPoseMag, derive.ChannelEAR),
		)
		So(err, ShouldBeNil)
		So(d.Schema(), ShouldResemble, model.Schema{"gaze_angle_x", "gaze_mag", "head_pose_mag", "ear"})

		Convey("When frames straddle the threshold", func() {
			tbl := newMapTable(baseRow(1, 0.9), baseRow(2, 0.74), baseRow(3, 0.75), baseRow(4, 0.2), baseRow(5, 1))
			rec, rep, err := d.Derive(ctx, key, "CH01_A_5.csv", tbl)

			Convey("Then only frames at or above the threshold survive", func() {
				So(err, ShouldBeNil)
				So(rec.Len(), ShouldEqual, 3)
				So([]int{rec.Frames[0].Index, rec.Frames[1].Index, rec.Frames[2].Index}, ShouldResemble, []int{1, 3, 5})
				for _, f := range rec.Frames {
					So(f.Confidence, ShouldBeGreaterThanOrEqualTo, 0.75)
					So(f.Subject, ShouldEqual, "CH01_A")
					So(f.Condition, ShouldEqual, "5")
				}
				So(rep.LowConfidence, ShouldEqual, 2)
				So(rep.FramesKept, ShouldEqual, 3)
			})

			Convey("And derived values follow the formulas", func() {
				f := rec.Frames[0]
				So(f.Values[0], ShouldEqual, 0.3)
				So(f.Values[1], ShouldAlmostEqual, 0.5, 1e-12)
				So(f.Values[2], ShouldAlmostEqual, 3, 1e-12)
				So(f.Timestamp, ShouldAlmostEqual, 1.0/30, 1e-12)
			})

			Convey("And missing EAR columns fall back to the sentinel", func() {
				So(rec.Frames[0].Values[3], ShouldEqual, 0)
				So(rep.Sentinels[derive.ChannelEAR], ShouldEqual, 3)
			})
		})

		Convey("When frame indices repeat", func() {
			tbl := newMapTable(baseRow(1, 1), baseRow(2, 1), baseRow(2, 1), baseRow(1, 1), baseRow(3, 1))
			rec, rep, err := d.Derive(ctx, key, "x", tbl)

			Convey("Then non-increasing rows are dropped", func() {
				So(err, ShouldBeNil)
				So(rec.Len(), ShouldEqual, 3)
				So(rep.NonMonotonic, ShouldEqual, 2)
			})
		})

		Convey("When the confidence column is absent", func() {
			row := baseRow(1, 1)
			delete(row, derive.ColConfidence)
			_, _, err := d.Derive(ctx, key, "x", newMapTable(row))

			Convey("Then the recording is rejected", func() {
				So(errors.Is(err, derive.ErrMissingColumn), ShouldBeTrue)
			})
		})

		Convey("When a confidence cell is unparsable", func() {
			row := baseRow(2, 1)
			row[derive.ColConfidence] = math.NaN()
			rec, rep, err := d.Derive(ctx, key, "x", newMapTable(baseRow(1, 1), row))

			Convey("Then only that frame is skipped", func() {
				So(err, ShouldBeNil)
				So(rec.Len(), ShouldEqual, 1)
				So(rep.Malformed, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an unknown channel", t, func() {
		_, err := derive.NewDeriver(derive.WithChannels("blink_rate"))
		So(errors.Is(err, derive.ErrUnknownChannel), ShouldBeTrue)
	})
}
