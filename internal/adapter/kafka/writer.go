package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/config"
	"github.com/couchcryptid/sightings-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes enriched sightings to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// sightingEvent is the message body for one enriched sighting.
type sightingEvent struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	domain.JoinedRecord
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    500,
	}
	return &Writer{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

// Publish serializes every record and sends them in a single WriteMessages
// call. Messages are keyed by record id so reruns land on the same partition.
func (w *Writer) Publish(ctx context.Context, run domain.RunInfo, records []domain.JoinedRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(run, records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d sightings to %s: %w", len(msgs), w.topic, err)
	}
	w.logger.Info("sightings published", "topic", w.topic, "count", len(msgs), "run_id", run.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a joined record into a Kafka message.
func serializeToMessage(run domain.RunInfo, rec domain.JoinedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(sightingEvent{RunID: run.ID, GeneratedAt: run.GeneratedAt, JoinedRecord: rec})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sighting %d: %w", rec.ID, err)
	}
	region := ""
	if rec.RegionLabel != nil {
		region = *rec.RegionLabel
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(rec.ID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "region", Value: []byte(region)},
			{Key: "generated_at", Value: []byte(run.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
