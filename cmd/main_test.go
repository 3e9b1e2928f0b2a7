package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/okian/arena/internal/adapters/http/api"
	app "github.com/okian/arena/internal/app"
	"github.com/okian/arena/internal/config"
	"github.com/okian/arena/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("ARENA_ADDR", ":8080")
			_ = os.Setenv("ARENA_ROUND_COUNT", "5")
			_ = os.Setenv("ARENA_SHARD_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("ARENA_ADDR")
				_ = os.Unsetenv("ARENA_ROUND_COUNT")
				_ = os.Unsetenv("ARENA_SHARD_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RoundCount, convey.ShouldEqual, 5)
				convey.So(cfg.ShardCount, convey.ShouldEqual, 4)
			})

			convey.Convey("And the loaded defaults should map onto rules", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)

				rules := rulesFromConfig(cfg)
				convey.So(rules.RoundCount, convey.ShouldEqual, 5)
				convey.So(rules.RoundTimeLimit, convey.ShouldEqual, cfg.RoundTimeLimit)
				convey.So(rules.ScoreWeights.Correctness, convey.ShouldAlmostEqual, cfg.ScoreWeights.Correctness, 1e-9)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithBusCapacity(2000),
					app.WithShardCount(4),
					app.WithReadinessGate(0.8, 100),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, svc)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				registry := prometheus.NewRegistry()
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(registry))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When testing system metrics update", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When wiring the full application", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)

			svc := app.New(
				app.WithBusCapacity(cfg.BusPartitionCapacity),
				app.WithShardCount(cfg.ShardCount),
				app.WithBuildInterval(0),
				app.WithDefaultRules(rulesFromConfig(cfg)),
			)
			convey.So(svc, convey.ShouldNotBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			server := api.NewServer(svc, svc,
				api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
				api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
			)
			convey.So(server, convey.ShouldNotBeNil)

			mux := http.NewServeMux()
			server.Register(ctx, mux)

			convey.Convey("Then the composed service reports stats", func() {
				stats := svc.GetStats()
				convey.So(stats["started"], convey.ShouldBeTrue)
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When the configured round count is invalid", func() {
			_ = os.Setenv("ARENA_ROUND_COUNT", "0")
			defer func() { _ = os.Unsetenv("ARENA_ROUND_COUNT") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When service options carry degenerate values", func() {
			svc := app.New(
				app.WithBusCapacity(0),
				app.WithShardCount(0),
				app.WithHistorySize(0),
			)

			convey.Convey("Then the defaults stand in", func() {
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.GetStats()["busCapacity"], convey.ShouldEqual, 1024)
			})
		})
	})
}
