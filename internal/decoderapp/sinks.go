package decoderapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// sendDeadline bounds every sink's produce call, within the 5-10s
// window the sinks contract allows.
const sendDeadline = 10 * time.Second

// Sinks owns one kafka.Writer per output topic plus an optional DLQ
// writer, each keyed by transaction signature so restart-induced
// duplicate publishes land in the same output partition.
type Sinks struct {
	solDeltas   *kafka.Writer
	tokenDeltas *kafka.Writer
	swaps       *kafka.Writer
	dlq         *kafka.Writer
}

// NewSinks builds one writer per configured topic. dlqTopic may be
// empty, in which case SendDlq becomes a no-op (matching the optional
// KAFKA_DLQ_TOPIC contract).
func NewSinks(broker string, cfg Config) *Sinks {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			Async:        false,
		}
	}

	s := &Sinks{
		solDeltas:   newWriter(cfg.KafkaOutSolDeltasTopic),
		tokenDeltas: newWriter(cfg.KafkaOutTokenDeltasTopic),
		swaps:       newWriter(cfg.KafkaOutSwapsTopic),
	}
	if cfg.KafkaDlqTopic != "" {
		s.dlq = newWriter(cfg.KafkaDlqTopic)
	}
	return s
}

// Close flushes and closes every writer.
func (s *Sinks) Close() error {
	var firstErr error
	for _, w := range []*kafka.Writer{s.solDeltas, s.tokenDeltas, s.swaps, s.dlq} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sinks) sendJSON(ctx context.Context, w *kafka.Writer, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("decoderapp: marshal payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, sendDeadline)
	defer cancel()
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload})
}

// SendSolDelta publishes one legacy SOL balance delta, keyed by signature.
func (s *Sinks) SendSolDelta(ctx context.Context, signature string, v interface{}) error {
	return s.sendJSON(ctx, s.solDeltas, signature, v)
}

// SendTokenDelta publishes one legacy token balance delta, keyed by signature.
func (s *Sinks) SendTokenDelta(ctx context.Context, signature string, v interface{}) error {
	return s.sendJSON(ctx, s.tokenDeltas, signature, v)
}

// SendSwap publishes one DexSwapV1, keyed by signature.
func (s *Sinks) SendSwap(ctx context.Context, signature string, v interface{}) error {
	return s.sendJSON(ctx, s.swaps, signature, v)
}

// SendDlq publishes a DlqRecord, keyed by signature. A no-op when no
// DLQ topic was configured; the caller still treats it as best-effort.
func (s *Sinks) SendDlq(ctx context.Context, signature string, v interface{}) error {
	if s.dlq == nil {
		return nil
	}
	return s.sendJSON(ctx, s.dlq, signature, v)
}
