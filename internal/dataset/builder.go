// Package dataset folds validated training data points into versioned,
// readiness-gated datasets.
//
// Building is a pure projection over the point store: the same window and
// competition set always produce the same dataset, byte for byte. Datasets
// reference their selection, never copies of the points.
package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/pipeline"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default readiness thresholds.
const (
	defaultMinQuality  = 0.90
	defaultMinPoints   = 1000
	schemaVersion      = 1
	datasetIDHexLength = 16
)

// Builder materializes datasets from the point store.
type Builder struct {
	points     *pipeline.PointStore
	minQuality float64
	minPoints  int

	mu        sync.RWMutex
	datasets  map[string]model.Dataset
	selection map[string]selection
	order     []string
	logger    logger.Logger
}

// selection pins the inputs a dataset was projected from.
type selection struct {
	windowStart    time.Time
	windowEnd      time.Time
	competitionIDs []string
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithMinQuality sets the aggregate-quality readiness threshold.
func WithMinQuality(q float64) Option {
	return func(b *Builder) {
		if q > 0 && q <= 1 {
			b.minQuality = q
		}
	}
}

// WithMinPoints sets the minimum complete-point count for readiness.
func WithMinPoints(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.minPoints = n
		}
	}
}

// New creates a builder reading from points.
func New(points *pipeline.PointStore, opts ...Option) *Builder {
	b := &Builder{
		points:     points,
		minQuality: defaultMinQuality,
		minPoints:  defaultMinPoints,
		datasets:   make(map[string]model.Dataset),
		selection:  make(map[string]selection),
		logger:     logger.Get().Named("dataset"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build projects the points inside the window and competition set into a
// dataset. Points failing completeness stay out of the count and the
// aggregate quality; they remain stored for audit. Rebuilding over the same
// inputs yields the same dataset id and content.
func (b *Builder) Build(ctx context.Context, windowStart, windowEnd time.Time, competitionIDs []string) (model.Dataset, error) {
	selected := b.points.Select(ctx, windowStart, windowEnd, competitionIDs)

	var (
		count      int
		qualitySum float64
		compSet    = make(map[string]struct{})
	)
	for i := range selected {
		p := &selected[i]
		if p.Checks.Completeness < 1 {
			continue
		}
		count++
		qualitySum += p.Quality
		compSet[p.CompetitionID] = struct{}{}
	}

	aggregate := 0.0
	if count > 0 {
		aggregate = qualitySum / float64(count)
	}

	comps := make([]string, 0, len(compSet))
	for id := range compSet {
		comps = append(comps, id)
	}
	sort.Strings(comps)

	ds := model.Dataset{
		ID:               b.datasetID(windowStart, windowEnd, selected),
		Version:          schemaVersion,
		CompetitionIDs:   comps,
		PointCount:       count,
		AggregateQuality: aggregate,
		ReadyForTraining: aggregate >= b.minQuality && count >= b.minPoints,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		BuiltAt:          time.Now().UTC(),
	}

	b.mu.Lock()
	if _, exists := b.datasets[ds.ID]; !exists {
		b.order = append(b.order, ds.ID)
	}
	b.datasets[ds.ID] = ds
	b.selection[ds.ID] = selection{
		windowStart:    windowStart,
		windowEnd:      windowEnd,
		competitionIDs: append([]string(nil), competitionIDs...),
	}
	b.mu.Unlock()

	metrics.RecordDatasetBuilt()
	if ds.ReadyForTraining {
		metrics.RecordDatasetReady()
	}

	b.logger.Info(ctx, "dataset built",
		logger.String("id", ds.ID),
		logger.Int("points", ds.PointCount),
		logger.Float64("quality", ds.AggregateQuality),
		logger.Any("ready", ds.ReadyForTraining),
	)
	return ds, nil
}

// datasetID derives the id from the selection contents, so identical inputs
// rebuild the identical dataset.
func (b *Builder) datasetID(windowStart, windowEnd time.Time, selected []model.TrainingDataPoint) string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d|%d|%d|", schemaVersion, windowStart.UnixNano(), windowEnd.UnixNano())
	for i := range selected {
		fmt.Fprintf(h, "%s|%.9f|", selected[i].NaturalKey(), selected[i].Quality)
	}
	return hex.EncodeToString(h.Sum(nil))[:datasetIDHexLength]
}

// Get returns a built dataset by id.
func (b *Builder) Get(_ context.Context, id string) (model.Dataset, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ds, ok := b.datasets[id]
	return ds, ok
}

// List returns all built datasets in build order.
func (b *Builder) List(_ context.Context) []model.Dataset {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Dataset, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.datasets[id])
	}
	return out
}

// FetchReadyDatasets returns datasets built at or after since that are ready
// for training. This is the export surface the downstream improvement
// process consumes.
func (b *Builder) FetchReadyDatasets(_ context.Context, since time.Time) []model.Dataset {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Dataset, 0)
	for _, id := range b.order {
		ds := b.datasets[id]
		if !ds.ReadyForTraining {
			continue
		}
		if !since.IsZero() && ds.BuiltAt.Before(since) {
			continue
		}
		out = append(out, ds)
	}
	return out
}

// exportView is the canonical serialized form of a dataset. BuiltAt is
// metadata about the build run, not the projection, so it stays out.
type exportView struct {
	ID               string                    `json:"id"`
	Version          int                       `json:"version"`
	CompetitionIDs   []string                  `json:"competition_ids"`
	PointCount       int                       `json:"point_count"`
	AggregateQuality float64                   `json:"aggregate_quality"`
	ReadyForTraining bool                      `json:"ready_for_training"`
	WindowStart      int64                     `json:"window_start"`
	WindowEnd        int64                     `json:"window_end"`
	Points           []model.TrainingDataPoint `json:"points"`
}

// Export serializes a dataset and its points canonically. Two exports of the
// same dataset over the same stored points are byte-identical.
func (b *Builder) Export(ctx context.Context, id string) ([]byte, error) {
	b.mu.RLock()
	ds, ok := b.datasets[id]
	sel, selOK := b.selection[id]
	b.mu.RUnlock()
	if !ok || !selOK {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	selected := b.points.Select(ctx, sel.windowStart, sel.windowEnd, sel.competitionIDs)
	complete := make([]model.TrainingDataPoint, 0, len(selected))
	for i := range selected {
		if selected[i].Checks.Completeness >= 1 {
			complete = append(complete, selected[i])
		}
	}

	view := exportView{
		ID:               ds.ID,
		Version:          ds.Version,
		CompetitionIDs:   ds.CompetitionIDs,
		PointCount:       ds.PointCount,
		AggregateQuality: ds.AggregateQuality,
		ReadyForTraining: ds.ReadyForTraining,
		WindowStart:      ds.WindowStart.UnixNano(),
		WindowEnd:        ds.WindowEnd.UnixNano(),
		Points:           complete,
	}

	raw, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("marshal dataset: %w", err)
	}
	return raw, nil
}
