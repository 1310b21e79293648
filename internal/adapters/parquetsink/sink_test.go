package parquetsink_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/facewin/internal/adapters/parquetsink"
	"github.com/okian/facewin/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func TestSink(t *testing.T) {
	Convey("Given two normalised recordings", t, func() {
		schema := model.Schema{"ear", "p_scale"}
		recs := []model.Recording{
			{
				Key:    model.Key{Subject: "S1", Condition: "0"},
				Schema: schema,
				Frames: []model.Frame{
					{Index: 4, Timestamp: 0.13, Values: []float64{-0.5, 1.25}},
					{Index: 5, Timestamp: 0.17, Values: []float64{0.5, -1.25}},
				},
			},
			{
				Key:    model.Key{Subject: "S1", Condition: "10"},
				Schema: schema,
				Frames: []model.Frame{{Index: 1, Timestamp: 0, Values: []float64{2, 3}}},
			},
		}
		path := filepath.Join(t.TempDir(), "frames.parquet")

		Convey("When they are written", func() {
			sink, err := parquetsink.Open(path, parquetsink.WithParallelism(1))
			So(err, ShouldBeNil)
			for _, r := range recs {
				So(sink.WriteRecording(r), ShouldBeNil)
			}
			So(sink.Rows(), ShouldEqual, 6)
			So(sink.Close(), ShouldBeNil)
			So(sink.Close(), ShouldBeNil)

			Convey("Then every frame and channel reads back in order", func() {
				fr, err := local.NewLocalFileReader(path)
				So(err, ShouldBeNil)
				defer fr.Close()

				pr, err := reader.NewParquetReader(fr, new(parquetsink.Row), 1)
				So(err, ShouldBeNil)
				defer pr.ReadStop()

				So(pr.GetNumRows(), ShouldEqual, 6)
				rows := make([]parquetsink.Row, 6)
				So(pr.Read(&rows), ShouldBeNil)

				So(rows[0], ShouldResemble, parquetsink.Row{Subject: "S1", Condition: "0", Frame: 4, Timestamp: 0.13, Channel: "ear", Value: -0.5})
				So(rows[3].Channel, ShouldEqual, "p_scale")
				So(rows[3].Value, ShouldEqual, -1.25)
				So(rows[5].Condition, ShouldEqual, "10")
				So(rows[5].Value, ShouldEqual, 3)
			})

			Convey("Then writing after close fails", func() {
				So(errors.Is(sink.WriteRecording(recs[0]), parquetsink.ErrClosed), ShouldBeTrue)
			})
		})
	})
}
