package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/artifact"
	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
	"github.com/couchcryptid/sightings-etl/internal/spatial"
)

// BoundarySource loads the full boundary polygon collection for a run.
type BoundarySource interface {
	Load(ctx context.Context) (domain.BoundarySet, error)
}

// Exporter stages the tabular export of the joined records.
type Exporter interface {
	Prepare(records []domain.JoinedRecord) (artifact.Artifact, error)
}

// MapComposer stages the map document. It receives the boundary set and the
// WGS84 point set, not the joined records.
type MapComposer interface {
	Prepare(boundaries domain.BoundarySet, points domain.PointSet, run domain.RunInfo) (artifact.Artifact, error)
}

// Publisher forwards enriched records to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, run domain.RunInfo, records []domain.JoinedRecord) error
}

// RunSummary reports the outcome of one run.
type RunSummary struct {
	RunID          string
	TotalResults   int
	PagesRequested int
	FailedPages    []int
	Records        int
	Points         int
	Dropped        int
	Regions        int
	BoundaryCRS    domain.CRS
	Matched        int
	Unmatched      int
	ExportPath     string
	MapPath        string
	Duration       time.Duration
	// Error is the fatal failure message, empty on success.
	Error string
}

// Pipeline wires the enrichment stages together. Each stage owns its output
// and hands it forward by value.
type Pipeline struct {
	collector  *Collector
	boundaries BoundarySource
	exporter   Exporter
	mapper     MapComposer
	publisher  Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	mu      sync.Mutex
	last    RunSummary
	hasLast bool
}

// New creates a Pipeline. publisher may be nil.
func New(c *Collector, b BoundarySource, e Exporter, m MapComposer, pub Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		collector:  c,
		boundaries: b,
		exporter:   e,
		mapper:     m,
		publisher:  pub,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no run has completed yet")
	}
	return nil
}

// Ready reports whether a run has completed successfully.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// LastRun returns the summary of the most recent run, successful or not.
func (p *Pipeline) LastRun() (RunSummary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

func (p *Pipeline) record(s RunSummary) {
	p.mu.Lock()
	p.last, p.hasLast = s, true
	p.mu.Unlock()
}

// Run executes one full pass: collect, normalize, load boundaries, reconcile,
// join, then export and map. Any fatal error is returned as a
// *domain.StageError and no artifact is left behind.
func (p *Pipeline) Run(ctx context.Context, run domain.RunInfo) (RunSummary, error) {
	start := time.Now()
	logger := p.logger.With("run_id", run.ID)
	logger.Info("run started")

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	summary, err := p.run(ctx, logger, run)
	summary.RunID = run.ID
	summary.Duration = time.Since(start)
	p.metrics.RunDuration.Observe(summary.Duration.Seconds())

	if err != nil {
		summary.Error = err.Error()
		p.record(summary)
		p.metrics.LastRunSuccess.Set(0)
		logger.Error("run failed", "error", err, "stage", stageOf(err))
		return summary, err
	}

	p.record(summary)
	p.metrics.LastRunSuccess.Set(1)
	p.ready.Store(true)
	logger.Info("run complete",
		"total_results", summary.TotalResults,
		"pages_requested", summary.PagesRequested,
		"failed_pages", len(summary.FailedPages),
		"records", summary.Records,
		"points", summary.Points,
		"dropped", summary.Dropped,
		"matched", summary.Matched,
		"unmatched", summary.Unmatched,
		"export", summary.ExportPath,
		"map", summary.MapPath,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, run domain.RunInfo) (RunSummary, error) {
	var summary RunSummary

	var collected CollectResult
	err := p.stage(domain.StageCollect, func() (err error) {
		collected, err = p.collector.Collect(ctx)
		return err
	})
	if err != nil {
		return summary, err
	}
	summary.TotalResults = collected.TotalResults
	summary.PagesRequested = collected.PagesRequested
	summary.FailedPages = collected.FailedPages
	summary.Records = len(collected.Records)
	if len(collected.FailedPages) > 0 {
		logger.Warn("pages skipped", "failed_pages", collected.FailedPages)
	}

	points, dropped := domain.NormalizeAll(collected.Records)
	summary.Points = points.Len()
	summary.Dropped = dropped
	p.metrics.PointsNormalized.Add(float64(points.Len()))
	p.metrics.PointsDropped.Add(float64(dropped))

	var boundaries domain.BoundarySet
	err = p.stage(domain.StageBoundaries, func() (err error) {
		boundaries, err = p.boundaries.Load(ctx)
		return err
	})
	if err != nil {
		return summary, err
	}
	summary.Regions = len(boundaries.Polygons)
	summary.BoundaryCRS = boundaries.CRS
	logger.Info("boundaries loaded", "polygons", len(boundaries.Polygons), "crs", boundaries.CRS.String())

	var projected domain.PointSet
	err = p.stage(domain.StageReconcile, func() (err error) {
		projected, err = spatial.Reconcile(points, boundaries.CRS)
		return err
	})
	if err != nil {
		return summary, err
	}

	var joined []domain.JoinedRecord
	err = p.stage(domain.StageJoin, func() error {
		records, stats, err := spatial.Join(projected, boundaries)
		if err != nil {
			return err
		}
		joined = records
		summary.Matched = stats.Matched
		summary.Unmatched = stats.Unmatched
		p.metrics.JoinResults.WithLabelValues("matched").Add(float64(stats.Matched))
		p.metrics.JoinResults.WithLabelValues("unmatched").Add(float64(stats.Unmatched))
		return nil
	})
	if err != nil {
		return summary, err
	}

	if err := p.writeArtifacts(logger, joined, boundaries, points, run, &summary); err != nil {
		return summary, err
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, run, joined); err != nil {
			p.metrics.PublishErrors.Inc()
			logger.Warn("publish failed", "error", err, "records", len(joined))
		} else {
			p.metrics.RecordsPublished.Add(float64(len(joined)))
		}
	}
	return summary, nil
}

// writeArtifacts stages both artifacts before committing either, so a failure
// leaves neither in place.
func (p *Pipeline) writeArtifacts(logger *slog.Logger, joined []domain.JoinedRecord, boundaries domain.BoundarySet, points domain.PointSet, run domain.RunInfo, summary *RunSummary) error {
	var exportArt, mapArt artifact.Artifact
	err := p.stage(domain.StageExport, func() (err error) {
		exportArt, err = p.exporter.Prepare(joined)
		return err
	})
	if err != nil {
		return err
	}

	err = p.stage(domain.StageMap, func() (err error) {
		mapArt, err = p.mapper.Prepare(boundaries, points, run)
		return err
	})
	if err != nil {
		discard(logger, exportArt)
		return err
	}

	if err := exportArt.Commit(); err != nil {
		discard(logger, exportArt, mapArt)
		return &domain.StageError{Stage: domain.StageExport, Err: err}
	}
	if err := mapArt.Commit(); err != nil {
		discard(logger, exportArt, mapArt)
		return &domain.StageError{Stage: domain.StageMap, Err: err}
	}

	summary.ExportPath = exportArt.Path()
	summary.MapPath = mapArt.Path()
	return nil
}

// stage times fn and wraps any error with the stage name.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return &domain.StageError{Stage: name, Err: err}
	}
	return nil
}

func discard(logger *slog.Logger, arts ...artifact.Artifact) {
	for _, a := range arts {
		if err := a.Discard(); err != nil {
			logger.Warn("discard artifact failed", "path", a.Path(), "error", err)
		}
	}
}

func stageOf(err error) string {
	var se *domain.StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}

// RunEvery runs the pipeline immediately and then once per interval until ctx
// is cancelled. A failed run is logged and the schedule continues.
func (p *Pipeline) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid run interval %s", interval)
	}

	ticker := domain.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.Run(ctx, domain.NewRunInfo()) //nolint:errcheck // logged by Run
		select {
		case <-ctx.Done():
			p.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}
