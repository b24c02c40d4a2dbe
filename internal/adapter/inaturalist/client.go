// Package inaturalist reads observation pages from the iNaturalist v1 API.
package inaturalist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

// DefaultBaseURL is the public observations endpoint.
const DefaultBaseURL = "https://api.inaturalist.org/v1/observations"

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 512

// Query holds the filters sent with every page request.
type Query struct {
	PlaceID      int
	TaxonName    string
	CreatedSince string
	QualityGrade string
}

// Client implements pipeline.PageSource against the iNaturalist API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	query      Query
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an observation client. timeout bounds each request.
func NewClient(baseURL, userAgent string, q Query, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		userAgent: userAgent,
		query:     q,
		metrics:   metrics,
		logger:    logger,
	}
}

// params builds the query string for one page, newest observations first.
func (c *Client) params(page, perPage int) url.Values {
	v := url.Values{
		"geo":              {"true"},
		"verifiable":       {"true"},
		"geoprivacy":       {"open"},
		"taxon_geoprivacy": {"open"},
		"obscuration":      {"none"},
		"reviewed":         {"true"},
		"per_page":         {strconv.Itoa(perPage)},
		"page":             {strconv.Itoa(page)},
		"order":            {"desc"},
		"order_by":         {"created_at"},
	}
	if c.query.PlaceID > 0 {
		v.Set("place_id", strconv.Itoa(c.query.PlaceID))
	}
	if c.query.TaxonName != "" {
		v.Set("taxon_name", c.query.TaxonName)
	}
	if c.query.CreatedSince != "" {
		v.Set("created_d1", c.query.CreatedSince)
	}
	if c.query.QualityGrade != "" {
		v.Set("quality_grade", c.query.QualityGrade)
	}
	return v
}

// FetchPage requests a single page. Non-2xx responses return a
// *domain.StatusError.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) (domain.ObservationPage, error) {
	fullURL := c.baseURL + "?" + c.params(page, perPage).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ObservationPage{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RequestDuration.WithLabelValues("observations").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.ObservationPage{}, fmt.Errorf("observations page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.ObservationPage{}, &domain.StatusError{
			URL:        c.baseURL,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var out domain.ObservationPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.ObservationPage{}, fmt.Errorf("decode observations page %d: %w", page, err)
	}
	c.logger.Debug("observations page fetched", "page", page, "results", len(out.Results), "total_results", out.TotalResults)
	return out, nil
}
