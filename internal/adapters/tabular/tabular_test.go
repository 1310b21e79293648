package tabular_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/facewin/internal/adapters/tabular"
	"github.com/okian/facewin/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const openFace = `frame, face_id, timestamp, confidence, success, gaze_angle_x, gaze_angle_y
1, 0, 0.000, 0.98, 1, 0.12, -0.05
2, 0, 0.033, 0.40, 1, , NaN
3, 0, 0.067, 0.97
`

func TestRead(t *testing.T) {
	Convey("Given an export with space-padded headers", t, func() {
		tbl, err := tabular.Read(strings.NewReader(openFace))
		So(err, ShouldBeNil)

		Convey("Then header names are trimmed", func() {
			So(tbl.Columns(), ShouldResemble, []string{"frame", "face_id", "timestamp", "confidence", "success", "gaze_angle_x", "gaze_angle_y"})
			So(tbl.Has("confidence"), ShouldBeTrue)
			So(tbl.Has(" confidence"), ShouldBeFalse)
			So(tbl.Len(), ShouldEqual, 3)
		})

		Convey("Then cells parse as floats", func() {
			v, ok := tbl.Row(0).Float("gaze_angle_x")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 0.12)
			v, ok = tbl.Row(1).Float("confidence")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 0.40)
		})

		Convey("Then empty, NaN, absent and unknown cells are missing", func() {
			_, ok := tbl.Row(1).Float("gaze_angle_x")
			So(ok, ShouldBeFalse)
			_, ok = tbl.Row(1).Float("gaze_angle_y")
			So(ok, ShouldBeFalse)
			_, ok = tbl.Row(2).Float("gaze_angle_y")
			So(ok, ShouldBeFalse)
			_, ok = tbl.Row(0).Float("pose_Rx")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given cells holding infinities", t, func() {
		tbl, err := tabular.Read(strings.NewReader("frame,pose_Rx\n1,inf\n2,-Inf\n3,+Infinity\n4,1e400\n5,0.25\n"))
		So(err, ShouldBeNil)

		Convey("Then they read as missing", func() {
			for i := 0; i < 4; i++ {
				_, ok := tbl.Row(i).Float("pose_Rx")
				So(ok, ShouldBeFalse)
			}
			v, ok := tbl.Row(4).Float("pose_Rx")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 0.25)
		})
	})

	Convey("Given an empty stream", t, func() {
		_, err := tabular.Read(strings.NewReader(""))
		So(errors.Is(err, tabular.ErrNoHeader), ShouldBeTrue)
	})

	Convey("Given a missing file", t, func() {
		_, err := tabular.ReadFile(filepath.Join(t.TempDir(), "absent.csv"))
		So(errors.Is(err, tabular.ErrRead), ShouldBeTrue)
	})
}

func TestWriteRecording(t *testing.T) {
	Convey("Given a derived recording", t, func() {
		rec := model.Recording{
			Key:    model.Key{Subject: "19DA666D", Condition: "5"},
			Schema: model.Schema{"ear", "p_scale"},
			Frames: []model.Frame{
				{Index: 1, Timestamp: 0, Confidence: 0.98, Values: []float64{0.31, 1.5}},
				{Index: 2, Timestamp: 0.033, Confidence: 0.97, Values: []float64{0.29, 1.25}},
			},
		}
		path := filepath.Join(t.TempDir(), "derived", "19DA666D_5.csv")

		Convey("When it is written", func() {
			So(tabular.WriteRecording(path, rec), ShouldBeNil)

			Convey("Then the file holds a header and one line per frame", func() {
				raw, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual, "frame,timestamp,confidence,ear,p_scale\n1,0,0.98,0.31,1.5\n2,0.033,0.97,0.29,1.25\n")
			})

			Convey("Then it reads back as a table", func() {
				tbl, err := tabular.ReadFile(path)
				So(err, ShouldBeNil)
				v, ok := tbl.Row(1).Float("p_scale")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 1.25)
			})
		})
	})
}
