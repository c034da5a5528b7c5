package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/danvolkens/haven-hub-api/pkg/config"
)

// Pipeline event types consumed by downstream analytics.
const (
	TypePinPublished     = "pin.published"
	TypeWinnersRefreshed = "winners.refreshed"
	TypeAssetsGenerated  = "assets.generated"
)

// Event is one pipeline occurrence pushed onto the stream.
type Event struct {
	Type      string      `json:"type"`
	AccountID string      `json:"accountId"`
	Payload   interface{} `json:"payload,omitempty"`
	At        time.Time   `json:"at"`
}

// Publisher pushes pipeline events onto Kafka. Best effort: a failed publish
// is logged, never propagated into the pipeline run.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher builds a publisher, or a disabled one when no broker is set.
func NewPublisher(cfg config.KafkaConfig, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Broker == "" {
		return &Publisher{logger: logger}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Publisher{writer: writer, logger: logger}
}

// Publish emits one event keyed by account.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.writer == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Sugar().Warnw("event marshal failed", "type", event.Type, "error", err)
		return
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AccountID),
		Value: value,
	}); err != nil {
		p.logger.Sugar().Warnw("event publish failed", "type", event.Type, "error", err)
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
