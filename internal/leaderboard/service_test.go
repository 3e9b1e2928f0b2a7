package leaderboard_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/domain/model"
	leaderboard "github.com/okian/arena/internal/leaderboard"
	. "github.com/smartystreets/goconvey/convey"
)

func matchEvent(matchID, winner string, a, b string) model.MatchCompletedEvent {
	return model.MatchCompletedEvent{
		CompetitionID: "comp-1",
		MatchID:       matchID,
		Participants:  [2]string{a, b},
		Winner:        winner,
		TS:            time.Now().UTC(),
	}
}

func TestApplyMatch(t *testing.T) {
	Convey("Given a leaderboard service", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)
		svc := leaderboard.New(store)

		Convey("When a match between two unseen agents completes", func() {
			err := svc.HandleEvent(ctx, matchEvent("match-1", "agent-a", "agent-a", "agent-b"))

			Convey("Then both agents exist and ratings moved off the default", func() {
				So(err, ShouldBeNil)
				a, errA := store.Get(ctx, "agent-a")
				b, errB := store.Get(ctx, "agent-b")
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a.Rating, ShouldBeGreaterThan, model.DefaultRating)
				So(b.Rating, ShouldBeLessThan, model.DefaultRating)
				So(a.Wins, ShouldEqual, 1)
				So(b.Losses, ShouldEqual, 1)
			})

			Convey("And each agent has one history entry", func() {
				hist, histErr := svc.History(ctx, "agent-a", 10)
				So(histErr, ShouldBeNil)
				So(len(hist), ShouldEqual, 1)
				So(hist[0].MatchID, ShouldEqual, "match-1")
				So(hist[0].Outcome, ShouldEqual, "won")
			})
		})

		Convey("When the same match event is redelivered", func() {
			ev := matchEvent("match-2", "agent-a", "agent-a", "agent-b")
			So(svc.HandleEvent(ctx, ev), ShouldBeNil)
			after, _ := store.Get(ctx, "agent-a")

			So(svc.HandleEvent(ctx, ev), ShouldBeNil)

			Convey("Then the second delivery is a no-op", func() {
				again, err := store.Get(ctx, "agent-a")
				So(err, ShouldBeNil)
				So(again.Rating, ShouldEqual, after.Rating)
				So(again.Wins, ShouldEqual, after.Wins)
			})
		})

		Convey("When a tie completes", func() {
			So(svc.HandleEvent(ctx, matchEvent("match-3", model.TieWinner, "agent-a", "agent-b")), ShouldBeNil)

			Convey("Then both agents record a draw at unchanged ratings", func() {
				a, _ := store.Get(ctx, "agent-a")
				b, _ := store.Get(ctx, "agent-b")
				So(a.Rating, ShouldAlmostEqual, model.DefaultRating, 1e-9)
				So(b.Rating, ShouldAlmostEqual, model.DefaultRating, 1e-9)
				So(a.Draws, ShouldEqual, 1)
				So(b.Draws, ShouldEqual, 1)
			})
		})

		Convey("When a bye match completes", func() {
			So(svc.HandleEvent(ctx, matchEvent("match-4", "agent-a", "agent-a", model.ByeSlot)), ShouldBeNil)

			Convey("Then no rating is created or moved", func() {
				So(svc.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When a team match completes", func() {
			So(svc.HandleEvent(ctx, matchEvent("match-5", model.TeamSlotA, model.TeamSlotA, model.TeamSlotB)), ShouldBeNil)

			Convey("Then roster slots never enter the leaderboard", func() {
				So(svc.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When a non-match event arrives", func() {
			err := svc.HandleEvent(ctx, model.RoundScoredEvent{CompetitionID: "comp-1", MatchID: "m", RoundNumber: 1})

			Convey("Then it passes through untouched", func() {
				So(err, ShouldBeNil)
				So(svc.Count(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestConcurrentMatchesSharingAnAgent(t *testing.T) {
	Convey("Given many concurrent matches involving one agent", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)
		svc := leaderboard.New(store, leaderboard.WithLockStripes(8))

		const matches = 50
		var wg sync.WaitGroup
		for i := 0; i < matches; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				ev := matchEvent(
					fmt.Sprintf("match-%d", n),
					"agent-pivot",
					"agent-pivot",
					fmt.Sprintf("agent-%d", n),
				)
				_ = svc.HandleEvent(ctx, ev)
			}(i)
		}
		wg.Wait()

		Convey("Then every update landed exactly once", func() {
			pivot, err := store.Get(ctx, "agent-pivot")
			So(err, ShouldBeNil)
			So(pivot.Wins, ShouldEqual, matches)

			hist, histErr := svc.History(ctx, "agent-pivot", matches+10)
			So(histErr, ShouldBeNil)
			So(len(hist), ShouldEqual, matches)
		})

		Convey("And the tier distribution covers every agent", func() {
			total := 0
			for _, n := range svc.TierDistribution(ctx) {
				total += n
			}
			So(total, ShouldEqual, matches+1)
		})
	})
}
