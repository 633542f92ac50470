package feed

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"solana-tx-decoder/internal/events"
)

const chain = "solana-mainnet"

type logsNotification struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Signature string      `json:"signature"`
		Err       interface{} `json:"err"`
	} `json:"value"`
}

// Streamer subscribes to logsSubscribe notifications for every
// configured required account and republishes a lightweight raw
// transaction envelope per signature seen, for the decoder to resolve
// the full transaction body over RPC.
type Streamer struct {
	cfg     Config
	client  *Client
	writer  *kafka.Writer
	metrics *Metrics
}

// NewStreamer wires a Streamer from configuration.
func NewStreamer(cfg Config, metrics *Metrics) *Streamer {
	client := NewClient(cfg.WSEndpoint, cfg.ReconnectDelay, cfg.PingInterval)
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBroker),
		Topic:        cfg.KafkaTopic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}

	s := &Streamer{cfg: cfg, client: client, writer: writer, metrics: metrics}
	client.SetCallbacks(
		func() {
			metrics.RecordConnected()
			log.Info().Str("endpoint", cfg.WSEndpoint).Msg("streamer connected")
		},
		func(err error) {
			log.Warn().Err(err).Msg("streamer disconnected")
		},
	)
	return s
}

// Run connects and subscribes, blocking until ctx is cancelled.
func (s *Streamer) Run(ctx context.Context) error {
	if err := s.client.Connect(); err != nil {
		return err
	}
	defer s.client.Close()

	if len(s.cfg.RequiredAccounts) == 0 {
		if _, err := s.client.LogsSubscribe("", s.cfg.Commitment, s.handleNotification(ctx)); err != nil {
			return err
		}
	}
	for _, account := range s.cfg.RequiredAccounts {
		if _, err := s.client.LogsSubscribe(account, s.cfg.Commitment, s.handleNotification(ctx)); err != nil {
			return err
		}
	}

	<-ctx.Done()
	return nil
}

func (s *Streamer) handleNotification(ctx context.Context) func(json.RawMessage) {
	return func(raw json.RawMessage) {
		var notif logsNotification
		if err := json.Unmarshal(raw, &notif); err != nil {
			log.Warn().Err(err).Msg("malformed logs notification")
			return
		}
		s.metrics.RecordTxSeen()

		isSuccess := notif.Value.Err == nil
		if !isSuccess && !s.cfg.IncludeFailed {
			return
		}

		evt := events.RawTxEvent{
			SchemaVersion: events.RawTxEventSchemaVersion,
			Chain:         chain,
			Slot:          notif.Context.Slot,
			Signature:     notif.Value.Signature,
			IsSuccess:     isSuccess,
			ProgramIDs:    []string{},
		}

		payload, err := json.Marshal(evt)
		if err != nil {
			log.Warn().Err(err).Msg("failed to marshal raw tx event")
			return
		}

		if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(evt.Signature), Value: payload}); err != nil {
			s.metrics.RecordSendErr()
			log.Error().Err(err).Str("signature", evt.Signature).Msg("kafka send failed")
			return
		}
		s.metrics.RecordSendOK()
	}
}

// Close releases the underlying Kafka writer.
func (s *Streamer) Close() error {
	return s.writer.Close()
}
