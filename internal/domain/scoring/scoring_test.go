package scoring_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/arena/internal/domain/model"
	scoring "github.com/okian/arena/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRound(t *testing.T) {
	Convey("Given the standard round weights", t, func() {
		weights := model.ScoreWeights{
			Correctness: 0.40,
			Speed:       0.30,
			Efficiency:  0.20,
			Creativity:  0.10,
		}

		Convey("When all metrics are graded", func() {
			m := model.Metrics{
				Correctness: 80,
				Speed:       60,
				Efficiency:  50,
				Creativity:  90,
			}

			Convey("Then the score is the weighted combination", func() {
				score, err := scoring.Round(m, weights)
				So(err, ShouldBeNil)
				So(score, ShouldAlmostEqual, 0.40*80+0.30*60+0.20*50+0.10*90, 1e-9)
			})
		})

		Convey("When every metric is at the maximum", func() {
			m := model.Metrics{Correctness: 100, Speed: 100, Efficiency: 100, Creativity: 100}

			Convey("Then the score is 100", func() {
				score, err := scoring.Round(m, weights)
				So(err, ShouldBeNil)
				So(score, ShouldAlmostEqual, 100, 1e-9)
			})
		})

		Convey("When a metric is above 100", func() {
			m := model.Metrics{Correctness: 250, Speed: 50, Efficiency: 50, Creativity: 50}

			Convey("Then it returns the invalid-range error", func() {
				_, err := scoring.Round(m, weights)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, scoring.ErrInvalidMetricRange), ShouldBeTrue)
			})
		})

		Convey("When a metric is negative", func() {
			m := model.Metrics{Correctness: -1, Speed: 50, Efficiency: 50, Creativity: 50}

			Convey("Then it returns the invalid-range error", func() {
				_, err := scoring.Round(m, weights)
				So(errors.Is(err, scoring.ErrInvalidMetricRange), ShouldBeTrue)
			})
		})

		Convey("When a metric is NaN", func() {
			m := model.Metrics{Correctness: math.NaN(), Speed: 50, Efficiency: 50, Creativity: 50}

			Convey("Then it returns the invalid-range error", func() {
				_, err := scoring.Round(m, weights)
				So(errors.Is(err, scoring.ErrInvalidMetricRange), ShouldBeTrue)
			})
		})

		Convey("When a metric sits on a boundary", func() {
			m := model.Metrics{Correctness: 0, Speed: 100, Efficiency: 0, Creativity: 100}

			Convey("Then the boundary values are accepted", func() {
				score, err := scoring.Round(m, weights)
				So(err, ShouldBeNil)
				So(score, ShouldAlmostEqual, 0.30*100+0.10*100, 1e-9)
			})
		})
	})
}

func TestTeam(t *testing.T) {
	Convey("Given the standard team weights", t, func() {
		weights := model.TeamWeights{
			Coordination: 0.30,
			Completion:   0.50,
			Efficiency:   0.20,
		}

		Convey("When all dimensions are graded", func() {
			m := scoring.TeamMetrics{Coordination: 90, Completion: 70, Efficiency: 60}

			Convey("Then the score is the weighted combination", func() {
				score, err := scoring.Team(m, weights)
				So(err, ShouldBeNil)
				So(score, ShouldAlmostEqual, 0.30*90+0.50*70+0.20*60, 1e-9)
			})
		})

		Convey("When a dimension is out of range", func() {
			m := scoring.TeamMetrics{Coordination: 101, Completion: 70, Efficiency: 60}

			Convey("Then it returns the invalid-range error", func() {
				_, err := scoring.Team(m, weights)
				So(errors.Is(err, scoring.ErrInvalidMetricRange), ShouldBeTrue)
			})
		})
	})
}
