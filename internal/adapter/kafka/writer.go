package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/quake-map/internal/config"
	"github.com/couchcryptid/quake-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every marker message.
const (
	HeaderDepthColor = "depth_color"
	HeaderSnapshotID = "snapshot_id"
)

// Writer publishes classified markers to a Kafka topic, one message per
// marker. It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured marker topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Load publishes every marker of the snapshot in a single WriteMessages call.
// Messages are keyed by feature ID so updates to one event share a partition.
func (w *Writer) Load(ctx context.Context, snap domain.Snapshot) error {
	if len(snap.Markers) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Markers))
	for i := range snap.Markers {
		msg, err := serializeToMessage(snap.ID, snap.Markers[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d markers to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("markers published", "topic", w.writer.Topic, "count", len(msgs), "snapshot_id", snap.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Marker into a Kafka message.
func serializeToMessage(snapshotID string, m domain.Marker) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize marker: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.Feature.ID),
		Value: data,
		Time:  m.Feature.Time,
		Headers: []kafkago.Header{
			{Key: HeaderDepthColor, Value: []byte(m.Encoding.FillColor)},
			{Key: HeaderSnapshotID, Value: []byte(snapshotID)},
		},
	}, nil
}
