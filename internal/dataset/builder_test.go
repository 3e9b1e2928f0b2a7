package dataset_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	dataset "github.com/okian/arena/internal/dataset"
	"github.com/okian/arena/internal/domain/model"
	pipeline "github.com/okian/arena/internal/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

func seedPoints(ctx context.Context, p *pipeline.Pipeline, competitionID string, n int, at time.Time) {
	for i := 1; i <= n; i++ {
		point := model.TrainingDataPoint{
			CompetitionID: competitionID,
			RoundNumber:   i,
			AgentID:       "agent-a",
			Action:        "act",
			Context:       "ctx",
			Outcome:       "won",
			Reward:        0.5,
			IngestedAt:    at,
		}
		if _, err := p.Ingest(ctx, point); err != nil {
			panic(err)
		}
	}
}

func TestBuild(t *testing.T) {
	Convey("Given a point store with complete points", t, func() {
		ctx := context.Background()
		p := pipeline.New(pipeline.NewPointStore())
		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		seedPoints(ctx, p, "comp-1", 20, now)

		builder := dataset.New(p.Points(), dataset.WithMinPoints(10))
		windowStart := now.Add(-time.Hour)
		windowEnd := now.Add(time.Hour)

		Convey("When a dataset is built over the window", func() {
			ds, err := builder.Build(ctx, windowStart, windowEnd, nil)

			Convey("Then it aggregates the complete points", func() {
				So(err, ShouldBeNil)
				So(ds.PointCount, ShouldEqual, 20)
				So(ds.AggregateQuality, ShouldEqual, 1)
				So(ds.CompetitionIDs, ShouldResemble, []string{"comp-1"})
				So(ds.ReadyForTraining, ShouldBeTrue)
			})

			Convey("And rebuilding the same window yields the same id", func() {
				again, rebuildErr := builder.Build(ctx, windowStart, windowEnd, nil)
				So(rebuildErr, ShouldBeNil)
				So(again.ID, ShouldEqual, ds.ID)
				So(len(builder.List(ctx)), ShouldEqual, 1)
			})

			Convey("And exporting twice is byte-identical", func() {
				first, err1 := builder.Export(ctx, ds.ID)
				second, err2 := builder.Export(ctx, ds.ID)
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(string(second), ShouldEqual, string(first))
			})
		})

		Convey("When an incomplete point is in the window", func() {
			incomplete := model.TrainingDataPoint{
				CompetitionID: "comp-1",
				RoundNumber:   99,
				AgentID:       "agent-b",
				Outcome:       "forfeited",
				Reward:        -1,
				IngestedAt:    now,
			}
			_, err := p.Ingest(ctx, incomplete)
			So(err, ShouldBeNil)

			ds, buildErr := builder.Build(ctx, windowStart, windowEnd, nil)

			Convey("Then it is excluded from count and quality but stays stored", func() {
				So(buildErr, ShouldBeNil)
				So(ds.PointCount, ShouldEqual, 20)
				So(ds.AggregateQuality, ShouldEqual, 1)
				So(p.Points().Count(ctx), ShouldEqual, 21)
			})
		})

		Convey("When the window is restricted to another competition", func() {
			ds, err := builder.Build(ctx, windowStart, windowEnd, []string{"comp-other"})

			Convey("Then the dataset is empty and not ready", func() {
				So(err, ShouldBeNil)
				So(ds.PointCount, ShouldEqual, 0)
				So(ds.ReadyForTraining, ShouldBeFalse)
			})
		})
	})
}

func TestReadinessGate(t *testing.T) {
	Convey("Given the default thresholds", t, func() {
		ctx := context.Background()
		p := pipeline.New(pipeline.NewPointStore())
		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		// 999 perfect points: one short of the count gate.
		seedPoints(ctx, p, "comp-1", 999, now)

		builder := dataset.New(p.Points())

		Convey("When the count is below the minimum at perfect quality", func() {
			ds, err := builder.Build(ctx, now.Add(-time.Hour), now.Add(time.Hour), nil)

			Convey("Then the dataset is not ready", func() {
				So(err, ShouldBeNil)
				So(ds.PointCount, ShouldEqual, 999)
				So(ds.AggregateQuality, ShouldEqual, 1)
				So(ds.ReadyForTraining, ShouldBeFalse)
			})
		})

		Convey("When one more point crosses the threshold", func() {
			extra := model.TrainingDataPoint{
				CompetitionID: "comp-2",
				RoundNumber:   1,
				AgentID:       "agent-z",
				Action:        "act",
				Context:       "ctx",
				Outcome:       "tie",
				Reward:        0,
				IngestedAt:    now,
			}
			_, err := p.Ingest(ctx, extra)
			So(err, ShouldBeNil)

			ds, buildErr := builder.Build(ctx, now.Add(-time.Hour), now.Add(time.Hour), nil)

			Convey("Then both gates pass and the dataset is ready", func() {
				So(buildErr, ShouldBeNil)
				So(ds.PointCount, ShouldEqual, 1000)
				So(ds.ReadyForTraining, ShouldBeTrue)
			})
		})
	})
}

func TestFetchReadyDatasets(t *testing.T) {
	Convey("Given a mix of ready and unready datasets", t, func() {
		ctx := context.Background()
		p := pipeline.New(pipeline.NewPointStore())
		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		seedPoints(ctx, p, "comp-1", 10, now)

		builder := dataset.New(p.Points(), dataset.WithMinPoints(5))

		ready, err := builder.Build(ctx, now.Add(-time.Hour), now.Add(time.Hour), nil)
		So(err, ShouldBeNil)
		So(ready.ReadyForTraining, ShouldBeTrue)

		empty, err := builder.Build(ctx, now.Add(-3*time.Hour), now.Add(-2*time.Hour), nil)
		So(err, ShouldBeNil)
		So(empty.ReadyForTraining, ShouldBeFalse)

		Convey("When ready datasets are fetched", func() {
			got := builder.FetchReadyDatasets(ctx, time.Time{})

			Convey("Then only the ready one returns", func() {
				So(len(got), ShouldEqual, 1)
				So(got[0].ID, ShouldEqual, ready.ID)
			})
		})

		Convey("When fetching with a future since", func() {
			got := builder.FetchReadyDatasets(ctx, now.Add(100*365*24*time.Hour))

			Convey("Then nothing returns", func() {
				So(len(got), ShouldEqual, 0)
			})
		})
	})
}

func TestExportUnknownDataset(t *testing.T) {
	Convey("Given a builder with no datasets", t, func() {
		ctx := context.Background()
		builder := dataset.New(pipeline.NewPointStore())

		Convey("When exporting an unknown id", func() {
			_, err := builder.Export(ctx, fmt.Sprintf("%016x", 0))

			Convey("Then it returns an error", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
