package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	config "github.com/okian/arena/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the defaults load and validate", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.RoundCount, ShouldEqual, 3)
			So(cfg.RoundTimeLimit, ShouldEqual, 30*time.Second)
		})
	})
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ARENA_ADDR", ":7000")
	t.Setenv("ARENA_ROUND_COUNT", "5")
	t.Setenv("ARENA_ROUND_TIME_LIMIT", "45s")

	Convey("Given environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then env values replace the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7000")
			So(cfg.RoundCount, ShouldEqual, 5)
			So(cfg.RoundTimeLimit, ShouldEqual, 45*time.Second)
		})

		Convey("And untouched fields keep their defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.BestOf, ShouldEqual, 3)
			So(cfg.DatasetMinPoints, ShouldEqual, 1000)
		})
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	content := []byte("addr: \":8088\"\nbest_of: 5\nscore_weights:\n  correctness: 0.7\n  speed: 0.1\n  efficiency: 0.1\n  creativity: 0.1\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_CONFIG", path)
	t.Setenv("ARENA_ADDR", ":6000")

	Convey("Given a config file and an env override of the same key", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then file values load and env wins the conflict", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6000")
			So(cfg.BestOf, ShouldEqual, 5)
			So(cfg.ScoreWeights.Correctness, ShouldAlmostEqual, 0.7, 1e-9)
		})
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("ARENA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	Convey("Given a config path that does not exist", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then loading fails", func() {
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}

func TestLoadRejectsInvalidRoundCount(t *testing.T) {
	t.Setenv("ARENA_ROUND_COUNT", "0")

	Convey("Given a round count below one", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then validation rejects it", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestLoadRejectsInvalidQualityGate(t *testing.T) {
	t.Setenv("ARENA_DATASET_MIN_QUALITY", "1.5")

	Convey("Given a quality gate above one", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then validation rejects it", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestLoadRejectsUnbalancedWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	content := []byte("score_weights:\n  correctness: 0.9\n  speed: 0.3\n  efficiency: 0.2\n  creativity: 0.1\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_CONFIG", path)

	Convey("Given score weights that do not sum to one", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then validation rejects them", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
