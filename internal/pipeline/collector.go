package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
	"golang.org/x/time/rate"
)

// PageSource returns one page of the remote observation collection.
type PageSource interface {
	FetchPage(ctx context.Context, page, perPage int) (domain.ObservationPage, error)
}

// Pacer blocks until the next request may be issued.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PacerFunc adapts a function to the Pacer interface.
type PacerFunc func(ctx context.Context) error

func (f PacerFunc) Wait(ctx context.Context) error { return f(ctx) }

// NoPacing lets every request through immediately.
var NoPacing Pacer = PacerFunc(func(ctx context.Context) error { return ctx.Err() })

// NewIntervalPacer returns a pacer that admits at most one request per
// interval. The first request is admitted immediately.
func NewIntervalPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NoPacing
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// CollectResult is the accumulated output of one collection.
type CollectResult struct {
	Records        []domain.RawObservation
	TotalResults   int
	PagesRequested int
	FailedPages    []int
}

// Collector drives full, sequential retrieval of a paginated source.
type Collector struct {
	source   PageSource
	pacer    Pacer
	pageSize int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewCollector creates a Collector. A nil pacer disables pacing.
func NewCollector(source PageSource, pacer Pacer, pageSize int, logger *slog.Logger, metrics *observability.Metrics) *Collector {
	if pacer == nil {
		pacer = NoPacing
	}
	return &Collector{
		source:   source,
		pacer:    pacer,
		pageSize: pageSize,
		logger:   logger,
		metrics:  metrics,
	}
}

// maxPrealloc caps the up-front record capacity; the remote total is not
// trusted beyond it.
const maxPrealloc = 10_000

// PageCount returns the number of pages requested for a collection of total
// records. It is always one more than the number of full pages, so an exact
// multiple of pageSize yields a trailing empty page.
func PageCount(total, pageSize int) int {
	return total/pageSize + 1
}

// Collect learns the total result count from an initial count request, then
// requests every page in order. A failed page is logged and skipped. A failed
// count request or a negative total returns ErrTotalUnavailable.
func (c *Collector) Collect(ctx context.Context) (CollectResult, error) {
	if c.pageSize <= 0 {
		return CollectResult{}, fmt.Errorf("invalid page size %d", c.pageSize)
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return CollectResult{}, err
	}
	head, err := c.source.FetchPage(ctx, 1, c.pageSize)
	if err != nil {
		if ctx.Err() != nil {
			return CollectResult{}, ctx.Err()
		}
		return CollectResult{}, fmt.Errorf("%w: %w", domain.ErrTotalUnavailable, err)
	}

	if head.TotalResults < 0 {
		return CollectResult{}, fmt.Errorf("%w: negative total_results %d", domain.ErrTotalUnavailable, head.TotalResults)
	}

	pages := PageCount(head.TotalResults, c.pageSize)
	c.logger.Info("pagination planned",
		"total_results", head.TotalResults,
		"page_size", c.pageSize,
		"pages", pages,
	)

	result := CollectResult{
		TotalResults: head.TotalResults,
		Records:      make([]domain.RawObservation, 0, min(head.TotalResults, maxPrealloc)),
	}
	for page := 1; page <= pages; page++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return CollectResult{}, err
		}

		result.PagesRequested++
		c.metrics.PagesRequested.Inc()

		p, err := c.source.FetchPage(ctx, page, c.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return CollectResult{}, ctx.Err()
			}
			c.logger.Warn("page request failed, skipping", "page", page, "pages", pages, "error", err)
			c.metrics.PageFailures.Inc()
			result.FailedPages = append(result.FailedPages, page)
			continue
		}

		result.Records = append(result.Records, p.Results...)
		c.metrics.RecordsCollected.Add(float64(len(p.Results)))
		c.logger.Debug("page collected", "page", page, "records", len(p.Results))
	}
	return result, nil
}
