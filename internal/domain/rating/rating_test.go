package rating_test

import (
	"testing"

	rating "github.com/okian/arena/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpected(t *testing.T) {
	Convey("Given two ratings", t, func() {
		Convey("When the ratings are equal", func() {
			So(rating.Expected(1200, 1200), ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("When one side is 400 points ahead", func() {
			e := rating.Expected(1600, 1200)
			So(e, ShouldAlmostEqual, 10.0/11.0, 1e-9)
		})

		Convey("Then the expectations of both sides sum to 1", func() {
			So(rating.Expected(1340, 1515)+rating.Expected(1515, 1340), ShouldAlmostEqual, 1, 1e-9)
		})
	})
}

func TestKFactor(t *testing.T) {
	Convey("Given the tiered K-factor schedule", t, func() {
		Convey("Then ratings below 1600 use K=32", func() {
			So(rating.KFactor(1200), ShouldEqual, 32)
			So(rating.KFactor(1599.9), ShouldEqual, 32)
		})

		Convey("Then ratings from 1600 through 2400 use K=24", func() {
			So(rating.KFactor(1600), ShouldEqual, 24)
			So(rating.KFactor(2400), ShouldEqual, 24)
		})

		Convey("Then ratings above 2400 use K=16", func() {
			So(rating.KFactor(2400.1), ShouldEqual, 16)
			So(rating.KFactor(2800), ShouldEqual, 16)
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given a 1200-rated agent beating a 1400-rated agent", t, func() {
		newA, newB := rating.Update(1200, 1400, rating.Win)

		Convey("Then the winner gains roughly 24.3 points", func() {
			So(newA, ShouldAlmostEqual, 1224.3, 0.1)
		})

		Convey("And the loser drops roughly the same amount", func() {
			So(newB, ShouldAlmostEqual, 1375.7, 0.1)
		})
	})

	Convey("Given equal ratings and a tie", t, func() {
		newA, newB := rating.Update(1500, 1500, rating.Tie)

		Convey("Then neither rating moves", func() {
			So(newA, ShouldAlmostEqual, 1500, 1e-9)
			So(newB, ShouldAlmostEqual, 1500, 1e-9)
		})
	})

	Convey("Given a cross-tier match", t, func() {
		// 1500 carries K=32, 2500 carries K=16: each side moves by its own
		// pre-match K, so the deltas are not symmetric.
		newA, newB := rating.Update(1500, 2500, rating.Win)

		Convey("Then each side moves by its own K-factor", func() {
			deltaA := newA - 1500
			deltaB := 2500 - newB
			So(deltaA, ShouldBeGreaterThan, 0)
			So(deltaB, ShouldBeGreaterThan, 0)
			So(deltaA, ShouldAlmostEqual, 2*deltaB, 1e-9)
		})
	})

	Convey("Given a single match", t, func() {
		newA, _ := rating.Update(1200, 1200, rating.Win)

		Convey("Then the rating change is bounded by K", func() {
			So(newA-1200, ShouldBeLessThanOrEqualTo, 32)
		})
	})
}

func TestTier(t *testing.T) {
	Convey("Given the tier bands", t, func() {
		So(rating.Tier(1200), ShouldEqual, "novice")
		So(rating.Tier(1600), ShouldEqual, "advanced")
		So(rating.Tier(2400), ShouldEqual, "advanced")
		So(rating.Tier(2401), ShouldEqual, "expert")
	})
}
