package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/facewin/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithExpectedSize(8))

		Convey("When a digest is recorded for the first time", func() {
			owner, seen := d.SeenAndRecord(ctx, "abc", "S1_0.csv")

			Convey("Then the caller becomes its owner", func() {
				So(seen, ShouldBeFalse)
				So(owner, ShouldEqual, "S1_0.csv")
			})
		})

		Convey("When the same digest arrives under another name", func() {
			d.SeenAndRecord(ctx, "abc", "S1_0.csv")
			owner, seen := d.SeenAndRecord(ctx, "abc", "S2_0.csv")

			Convey("Then the first owner is reported", func() {
				So(seen, ShouldBeTrue)
				So(owner, ShouldEqual, "S1_0.csv")

				owner, seen = d.SeenAndRecord(ctx, "abc", "S3_0.csv")
				So(seen, ShouldBeTrue)
				So(owner, ShouldEqual, "S1_0.csv")
			})
		})

		Convey("When distinct digests are recorded", func() {
			_, seenA := d.SeenAndRecord(ctx, "abc", "S1_0.csv")
			_, seenB := d.SeenAndRecord(ctx, "def", "S2_0.csv")
			So(seenA, ShouldBeFalse)
			So(seenB, ShouldBeFalse)
		})
	})

	Convey("Given concurrent callers racing on one digest", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, seen := d.SeenAndRecord(ctx, "same", fmt.Sprintf("file-%d", i)); !seen {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one caller owns it", func() {
			So(fresh, ShouldEqual, 1)
		})
	})
}
