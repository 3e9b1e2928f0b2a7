// Package scoring combines graded per-round metrics into normalized scores.
package scoring

import (
	"fmt"

	"github.com/okian/arena/internal/domain/model"
)

// Metric bounds enforced on every graded dimension.
const (
	minMetric = 0
	maxMetric = 100
)

// Round computes the weighted round score from graded metrics. Every metric
// must already be normalized to [0,100]; anything outside that range is a
// grading fault, so the caller marks the round errored instead of clamping.
func Round(m model.Metrics, w model.ScoreWeights) (float64, error) {
	if err := checkRange("correctness", m.Correctness); err != nil {
		return 0, err
	}
	if err := checkRange("speed", m.Speed); err != nil {
		return 0, err
	}
	if err := checkRange("efficiency", m.Efficiency); err != nil {
		return 0, err
	}
	if err := checkRange("creativity", m.Creativity); err != nil {
		return 0, err
	}

	score := w.Correctness*m.Correctness +
		w.Speed*m.Speed +
		w.Efficiency*m.Efficiency +
		w.Creativity*m.Creativity
	return score, nil
}

// TeamMetrics are the graded dimensions of a shared-task team match.
type TeamMetrics struct {
	Coordination float64
	Completion   float64
	Efficiency   float64
}

// Team computes the team-match score. Team matches weight coordination,
// task completion and resource efficiency instead of the individual weights.
func Team(m TeamMetrics, w model.TeamWeights) (float64, error) {
	if err := checkRange("coordination", m.Coordination); err != nil {
		return 0, err
	}
	if err := checkRange("completion", m.Completion); err != nil {
		return 0, err
	}
	if err := checkRange("efficiency", m.Efficiency); err != nil {
		return 0, err
	}

	score := w.Coordination*m.Coordination +
		w.Completion*m.Completion +
		w.Efficiency*m.Efficiency
	return score, nil
}

func checkRange(name string, v float64) error {
	if v < minMetric || v > maxMetric || v != v { // v != v rejects NaN
		return fmt.Errorf("%w: %s=%v", ErrInvalidMetricRange, name, v)
	}
	return nil
}
