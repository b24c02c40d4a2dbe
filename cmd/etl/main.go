package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/sightings-etl/internal/adapter/boundary"
	httpadapter "github.com/couchcryptid/sightings-etl/internal/adapter/http"
	"github.com/couchcryptid/sightings-etl/internal/adapter/inaturalist"
	kafkaadapter "github.com/couchcryptid/sightings-etl/internal/adapter/kafka"
	"github.com/couchcryptid/sightings-etl/internal/config"
	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/export"
	"github.com/couchcryptid/sightings-etl/internal/mapview"
	"github.com/couchcryptid/sightings-etl/internal/observability"
	"github.com/couchcryptid/sightings-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	format, err := export.ParseFormat(cfg.ExportFormat)
	if err != nil {
		logger.Error("invalid export format", "error", err)
		return 1
	}

	client := inaturalist.NewClient(cfg.ObservationAPIURL, cfg.UserAgent, inaturalist.Query{
		PlaceID:      cfg.PlaceID,
		TaxonName:    cfg.TaxonName,
		CreatedSince: cfg.CreatedSince,
		QualityGrade: cfg.QualityGrade,
	}, cfg.HTTPTimeout, logger, metrics)
	collector := pipeline.NewCollector(client, pipeline.NewIntervalPacer(cfg.PageDelay), cfg.PageSize, logger, metrics)

	loader := boundary.NewLoader(boundary.Options{
		Source:     cfg.BoundarySource,
		LabelField: cfg.RegionField,
		CRS:        cfg.BoundaryCRS,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.HTTPTimeout,
	}, logger, metrics)

	exporter := export.NewWriter(cfg.ExportPath, format)
	composer := mapview.NewComposer(mapview.Options{
		Path:          cfg.MapPath,
		Title:         cfg.MapTitle,
		CenterLat:     cfg.MapCenterLat,
		CenterLon:     cfg.MapCenterLon,
		Zoom:          cfg.MapZoom,
		LabelField:    cfg.RegionField,
		BoundaryLayer: cfg.MapBoundaryLayer,
		PointLayer:    cfg.MapPointLayer,
	})

	// Publishing is feature-flagged via KAFKA_BROKERS.
	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if len(cfg.KafkaBrokers) > 0 {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(collector, loader, exporter, composer, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	code := 0
	if cfg.RunInterval > 0 {
		logger.Info("scheduled mode", "interval", cfg.RunInterval)
		if err := p.RunEvery(ctx, cfg.RunInterval); err != nil {
			logger.Error("scheduler error", "error", err)
			code = 1
		}
	} else if _, err := p.Run(ctx, domain.NewRunInfo()); err != nil {
		code = 1
	}

	if cfg.MetricsTextfile != "" {
		if err := observability.WriteTextfile(metrics, cfg.MetricsTextfile); err != nil {
			logger.Error("metrics textfile write error", "error", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return code
}
