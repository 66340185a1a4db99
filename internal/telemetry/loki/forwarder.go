package loki

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"piiwatch/internal/logging"
)

// MessageReader is the part of *kafka.Reader the forwarder uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher sends one raw audit message to Loki.
type Pusher interface {
	PushMessage(ctx context.Context, raw []byte) error
}

// Forwarder copies audit messages from Kafka to Loki.
type Forwarder struct {
	reader MessageReader
	pusher Pusher
	logger logging.Logger
}

// NewForwarder returns a Forwarder.
func NewForwarder(reader MessageReader, pusher Pusher, logger logging.Logger) *Forwarder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Forwarder{reader: reader, pusher: pusher, logger: logger}
}

// Run forwards messages until ctx is cancelled. Read and push failures are logged and skipped.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn(ctx, "loki forwarder: kafka read failed", "error", err)
			continue
		}
		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := f.pusher.PushMessage(pushCtx, msg.Value); err != nil {
			f.logger.Warn(ctx, "loki forwarder: push failed", "offset", msg.Offset, "error", err)
		}
		cancel()
	}
}
