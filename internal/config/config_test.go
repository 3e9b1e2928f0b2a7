package config_test

import (
	"context"
	"testing"
	"time"

	config "github.com/okian/arena/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given a fresh config", t, func() {
		cfg := config.New(context.Background())

		Convey("Then serving defaults are set", func() {
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.MaxLeaderboardLimit, ShouldEqual, 100)
			So(cfg.RateLimitRPS, ShouldEqual, 50)
			So(cfg.RateLimitBurst, ShouldEqual, 100)
		})

		Convey("Then competition defaults are set", func() {
			So(cfg.RoundCount, ShouldEqual, 3)
			So(cfg.BestOf, ShouldEqual, 3)
			So(cfg.RoundTimeLimit, ShouldEqual, 30*time.Second)
			So(cfg.ActionRetries, ShouldEqual, 3)
			So(cfg.RetryBackoff, ShouldEqual, 500*time.Millisecond)
		})

		Convey("Then both weight sets sum to one", func() {
			sw := cfg.ScoreWeights
			So(sw.Correctness+sw.Speed+sw.Efficiency+sw.Creativity, ShouldAlmostEqual, 1, 1e-9)
			tw := cfg.TeamWeights
			So(tw.Coordination+tw.Completion+tw.Efficiency, ShouldAlmostEqual, 1, 1e-9)
		})

		Convey("Then data-pipeline defaults are set", func() {
			So(cfg.RewardMin, ShouldEqual, -1)
			So(cfg.RewardMax, ShouldEqual, 1)
			So(cfg.DatasetMinQuality, ShouldEqual, 0.90)
			So(cfg.DatasetMinPoints, ShouldEqual, 1000)
			So(cfg.DatasetBuildInterval, ShouldEqual, time.Minute)
		})
	})
}
