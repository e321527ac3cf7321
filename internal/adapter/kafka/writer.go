package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crime-map-etl/internal/config"
	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// Record types, sent in the "record_type" header.
const (
	RecordCoordinateCount = "coordinate_count"
	RecordCluster         = "cluster"
)

// CoordinateCountMessage is the payload for one aggregated coordinate.
type CoordinateCountMessage struct {
	Precision  int       `json:"precision"`
	Lon        float64   `json:"lon"`
	Lat        float64   `json:"lat"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exported_at"`
}

// ClusterMessage is the payload for one cluster of a (label, k) run.
type ClusterMessage struct {
	Label      string             `json:"label"`
	K          int                `json:"k"`
	Index      int                `json:"index"`
	Site       domain.ClusterSite `json:"site"`
	ExportedAt time.Time          `json:"exported_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes aggregates and clusters to a Kafka topic.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured export topic.
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

// ExportCounts publishes one message per coordinate count in a single
// WriteMessages call. It returns the number of messages written.
func (w *Writer) ExportCounts(ctx context.Context, precision int, series []domain.CoordinateCount) (int, error) {
	if len(series) == 0 {
		return 0, nil
	}
	now := domain.Now()
	msgs := make([]kafkago.Message, len(series))
	for i, c := range series {
		msg, err := serializeToMessage(c.Key.String(), RecordCoordinateCount, now, CoordinateCountMessage{
			Precision:  precision,
			Lon:        c.Key.Lon,
			Lat:        c.Key.Lat,
			Count:      c.Count,
			ExportedAt: now,
		})
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write coordinate counts: %w", err)
	}
	w.logger.Debug("coordinate counts exported", "precision", precision, "messages", len(msgs))
	return len(msgs), nil
}

// ExportClusters publishes one message per cluster, keyed "label:k:index".
func (w *Writer) ExportClusters(ctx context.Context, label string, sites []domain.ClusterSite) (int, error) {
	if len(sites) == 0 {
		return 0, nil
	}
	now := domain.Now()
	k := len(sites)
	msgs := make([]kafkago.Message, k)
	for i := range sites {
		key := fmt.Sprintf("%s:%d:%d", label, k, i)
		msg, err := serializeToMessage(key, RecordCluster, now, ClusterMessage{
			Label:      label,
			K:          k,
			Index:      i,
			Site:       sites[i],
			ExportedAt: now,
		})
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write clusters %s: %w", label, err)
	}
	w.logger.Debug("clusters exported", "label", label, "clusters", k)
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a payload into a Kafka message.
func serializeToMessage(key, recordType string, exportedAt time.Time, payload any) (kafkago.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s: %w", recordType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordType)},
			{Key: "exported_at", Value: []byte(exportedAt.Format(time.RFC3339))},
		},
	}, nil
}
