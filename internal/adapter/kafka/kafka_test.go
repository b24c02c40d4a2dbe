package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	calls  int
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func strPtr(s string) *string { return &s }

var testRun = domain.RunInfo{
	ID:          "run-1",
	GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
}

func TestSerializeToMessage(t *testing.T) {
	rec := domain.JoinedRecord{
		ObservationPoint: domain.ObservationPoint{
			ID:          7,
			SpeciesName: strPtr("Araneus diadematus"),
			Lat:         51.5,
			Lon:         -0.12,
		},
		RegionLabel: strPtr("London"),
	}

	msg, err := serializeToMessage(testRun, rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("7"), msg.Key)
	assert.JSONEq(t, `{
		"run_id": "run-1",
		"generated_at": "2025-06-01T12:00:00Z",
		"id": 7,
		"species_name": "Araneus diadematus",
		"species_guess": null,
		"observed_on": null,
		"lat": 51.5,
		"lon": -0.12,
		"region_label": "London"
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "region", msg.Headers[1].Key)
	assert.Equal(t, []byte("London"), msg.Headers[1].Value)
	assert.Equal(t, []byte("2025-06-01T12:00:00Z"), msg.Headers[2].Value)
}

func TestSerializeToMessage_Unmatched(t *testing.T) {
	msg, err := serializeToMessage(testRun, domain.JoinedRecord{ObservationPoint: domain.ObservationPoint{ID: 1}})
	require.NoError(t, err)
	assert.Empty(t, msg.Headers[1].Value)
	assert.Contains(t, string(msg.Value), `"region_label":null`)
}

func TestPublish(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, topic: "sightings", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	records := []domain.JoinedRecord{
		{ObservationPoint: domain.ObservationPoint{ID: 1}},
		{ObservationPoint: domain.ObservationPoint{ID: 2}, RegionLabel: strPtr("Kent")},
	}
	require.NoError(t, w.Publish(context.Background(), testRun, records))

	assert.Equal(t, 1, fw.calls, "one batch per run")
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("1"), fw.msgs[0].Key)
	assert.Equal(t, []byte("2"), fw.msgs[1].Key)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestPublish_Empty(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Publish(context.Background(), testRun, nil))
	assert.Zero(t, fw.calls)
}

func TestPublish_Error(t *testing.T) {
	boom := errors.New("broker unavailable")
	fw := &fakeWriter{err: boom}
	w := &Writer{writer: fw, topic: "sightings", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Publish(context.Background(), testRun, []domain.JoinedRecord{{ObservationPoint: domain.ObservationPoint{ID: 1}}})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sightings")
}
