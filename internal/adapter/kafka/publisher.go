// Package kafka fans completed alert cycles out to downstream consumers
// (dashboards, archival, regional aggregation).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rescuehq-core/internal/alert"
)

// Publisher produces alert cycle snapshots to a Kafka topic.
// It implements alert.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the alerts topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishCycle serializes and publishes one snapshot. The message key is the
// engine name so consumers can partition AI and threshold cycles apart.
func (p *Publisher) PublishCycle(ctx context.Context, snapshot alert.Snapshot) error {
	msg, err := serializeToMessage(snapshot)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a snapshot into a Kafka message.
func serializeToMessage(snapshot alert.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snapshot.Engine),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_count", Value: []byte(fmt.Sprintf("%d", len(snapshot.Alerts)))},
			{Key: "updated_at", Value: []byte(snapshot.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
