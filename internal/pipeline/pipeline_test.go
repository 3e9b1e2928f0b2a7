package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/arena/internal/domain/model"
	pipeline "github.com/okian/arena/internal/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

func completePoint(round int) model.TrainingDataPoint {
	return model.TrainingDataPoint{
		CompetitionID: "comp-1",
		RoundNumber:   round,
		AgentID:       "agent-a",
		Action:        "move e2e4",
		Context:       "opening position",
		Outcome:       "won",
		Reward:        0.6,
		IngestedAt:    time.Now().UTC(),
	}
}

func TestIngest(t *testing.T) {
	Convey("Given a pipeline", t, func() {
		ctx := context.Background()
		p := pipeline.New(pipeline.NewPointStore())

		Convey("When a complete point is ingested", func() {
			point, err := p.Ingest(ctx, completePoint(1))

			Convey("Then all checks pass and quality is 1", func() {
				So(err, ShouldBeNil)
				So(point.Checks.Completeness, ShouldEqual, 1)
				So(point.Checks.Consistency, ShouldEqual, 1)
				So(point.Checks.Validity, ShouldEqual, 1)
				So(point.Checks.Uniqueness, ShouldEqual, 1)
				So(point.Quality, ShouldEqual, 1)
			})
		})

		Convey("When the same natural key is ingested twice", func() {
			first, err1 := p.Ingest(ctx, completePoint(2))
			second, err2 := p.Ingest(ctx, completePoint(2))

			Convey("Then the second ingest is a no-op returning the stored point", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
				So(p.Points().Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When a point is missing its action", func() {
			point := completePoint(3)
			point.Action = ""
			stored, err := p.Ingest(ctx, point)

			Convey("Then completeness fails but the point is retained", func() {
				So(err, ShouldBeNil)
				So(stored.Checks.Completeness, ShouldEqual, 0)
				So(stored.Quality, ShouldAlmostEqual, 0.75, 1e-9)
				So(p.Points().Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When a point carries an unknown outcome", func() {
			point := completePoint(4)
			point.Outcome = "rage-quit"
			stored, err := p.Ingest(ctx, point)

			Convey("Then consistency fails", func() {
				So(err, ShouldBeNil)
				So(stored.Checks.Consistency, ShouldEqual, 0)
				So(stored.Checks.Completeness, ShouldEqual, 1)
			})
		})

		Convey("When the reward is outside its bounds", func() {
			point := completePoint(5)
			point.Reward = 3.5
			stored, err := p.Ingest(ctx, point)

			Convey("Then validity fails", func() {
				So(err, ShouldBeNil)
				So(stored.Checks.Validity, ShouldEqual, 0)
			})
		})
	})
}

func TestHandleEvent(t *testing.T) {
	Convey("Given a pipeline subscribed to round events", t, func() {
		ctx := context.Background()
		p := pipeline.New(pipeline.NewPointStore())

		Convey("When a round with two actions is scored", func() {
			ev := model.RoundScoredEvent{
				CompetitionID: "comp-1",
				MatchID:       "match-1",
				RoundNumber:   1,
				Actions: map[string]model.Action{
					"agent-a": {AgentID: "agent-a", Payload: "attack", Context: "state"},
					"agent-b": {AgentID: "agent-b", Payload: "defend", Context: "state"},
				},
				Scores: map[string]float64{"agent-a": 80, "agent-b": 55},
				Winner: "agent-a",
				TS:     time.Now().UTC(),
			}
			So(p.HandleEvent(ctx, ev), ShouldBeNil)

			Convey("Then one point per acting agent is stored", func() {
				So(p.Points().Count(ctx), ShouldEqual, 2)

				winner, okA := p.Points().Get(ctx, "comp-1/1/agent-a")
				loser, okB := p.Points().Get(ctx, "comp-1/1/agent-b")
				So(okA, ShouldBeTrue)
				So(okB, ShouldBeTrue)
				So(winner.Outcome, ShouldEqual, "won")
				So(winner.Reward, ShouldAlmostEqual, 0.6, 1e-9)
				So(loser.Outcome, ShouldEqual, "lost")
				So(loser.Reward, ShouldAlmostEqual, 0, 1e-9)
			})

			Convey("And redelivering the event changes nothing", func() {
				So(p.HandleEvent(ctx, ev), ShouldBeNil)
				So(p.Points().Count(ctx), ShouldEqual, 2)
			})
		})

		Convey("When a scored round contains a forfeiting agent", func() {
			ev := model.RoundScoredEvent{
				CompetitionID: "comp-1",
				MatchID:       "match-2",
				RoundNumber:   2,
				Actions: map[string]model.Action{
					"agent-a": {AgentID: "agent-a", Payload: "attack", Context: "state"},
				},
				Scores: map[string]float64{"agent-a": 70, "agent-b": 0},
				Winner: "agent-a",
				TS:     time.Now().UTC(),
			}
			So(p.HandleEvent(ctx, ev), ShouldBeNil)

			Convey("Then the silent agent gets a forfeit observation at minimum reward", func() {
				forfeit, ok := p.Points().Get(ctx, "comp-1/2/agent-b")
				So(ok, ShouldBeTrue)
				So(forfeit.Outcome, ShouldEqual, "forfeited")
				So(forfeit.Reward, ShouldEqual, -1)
				So(forfeit.Checks.Completeness, ShouldEqual, 0)
			})
		})
	})
}
