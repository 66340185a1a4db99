package producer

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"piiwatch/internal/telemetry"
	"piiwatch/internal/telemetry/domain"
)

// ErrNotConfigured is returned by NewKafkaEmitter when brokers or topic are missing.
var ErrNotConfigured = errors.New("producer: kafka brokers and topic are required")

// messageWriter is the part of *kafka.Writer the emitter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter implements telemetry.EventEmitter by writing events to a Kafka topic.
type KafkaEmitter struct {
	writer messageWriter
}

var _ telemetry.EventEmitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter creates an emitter that writes to topic. Call Close when shutting down.
func NewKafkaEmitter(brokers []string, topic string) (*KafkaEmitter, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, ErrNotConfigured
	}
	return &KafkaEmitter{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}}, nil
}

// Emit writes event keyed by user id, so one user's events stay ordered within a partition.
func (p *KafkaEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{Value: payload}
	if event.UserID != "" {
		msg.Key = []byte(event.UserID)
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close closes the Kafka writer.
func (p *KafkaEmitter) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
