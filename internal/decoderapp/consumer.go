package decoderapp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"solana-tx-decoder/internal/events"
	"solana-tx-decoder/internal/rpcfetch"
	"solana-tx-decoder/internal/schema"
	"solana-tx-decoder/internal/swap"
)

const (
	maxAttempts       = 3
	baseBackoffMs     = 200
	maxFailureMapSize = 10000
	statsLogEvery     = 200
	chain             = "solana-mainnet"
)

// txFetcher is the subset of *rpcfetch.Client the consumer loop needs;
// narrowing to an interface lets the retry/DLQ branching be tested
// without a live RPC endpoint.
type txFetcher interface {
	GetTransaction(ctx context.Context, signature string) (json.RawMessage, error)
}

// messageSink is the subset of *Sinks the consumer loop needs.
type messageSink interface {
	SendSolDelta(ctx context.Context, signature string, v interface{}) error
	SendTokenDelta(ctx context.Context, signature string, v interface{}) error
	SendSwap(ctx context.Context, signature string, v interface{}) error
	SendDlq(ctx context.Context, signature string, v interface{}) error
}

// messageSource is the subset of *kafka.Reader the consumer loop needs.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer drives the at-least-once decode loop: fetch from the input
// topic, resolve the full transaction over RPC, extract facts, publish
// deltas and swaps, commit only once every publish for this signature
// has succeeded.
type Consumer struct {
	cfg     Config
	reader  messageSource
	rpc     txFetcher
	sinks   messageSink
	metrics *Metrics

	// failures is exclusive to the loop goroutine; never shared, so it
	// needs no lock (mirrors the original single-threaded task model).
	failures map[string]int
}

// NewConsumer wires a Consumer from already-constructed collaborators.
func NewConsumer(cfg Config, rpc *rpcfetch.Client, sinks *Sinks, metrics *Metrics) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.KafkaBroker},
		Topic:   cfg.KafkaInTopic,
		GroupID: cfg.KafkaGroup,
	})
	return newConsumer(cfg, reader, rpc, sinks, metrics)
}

func newConsumer(cfg Config, reader messageSource, rpc txFetcher, sinks messageSink, metrics *Metrics) *Consumer {
	return &Consumer{
		cfg:      cfg,
		reader:   reader,
		rpc:      rpc,
		sinks:    sinks,
		metrics:  metrics,
		failures: make(map[string]int),
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Run drives the loop until ctx is cancelled or a publish or offset
// commit error occurs (fatal, per the error-handling design: the process supervisor is
// expected to restart and rely on at-least-once redelivery).
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Warn().Err(err).Msg("consumer fetch error")
			time.Sleep(200 * time.Millisecond)
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			return err
		}
	}
}

// processMessage handles exactly one fetched message, returning a
// non-nil error only for the fatal publish_error case or a failed
// offset commit.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var evt events.RawTxEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		log.Warn().Err(err).Msg("malformed input payload")
		c.metrics.RecordParseFail("envelope", string(KindMalformedInput))
		return c.commit(ctx, msg)
	}

	if !c.cfg.IncludeFailed && !evt.IsSuccess {
		return c.commit(ctx, msg)
	}

	tx, err := c.rpc.GetTransaction(ctx, evt.Signature)
	if err != nil {
		return c.handleFetchFailure(ctx, msg, evt, err)
	}
	delete(c.failures, evt.Signature)

	parsed, jsonErr := schema.DecodeTxJSON(tx)
	if jsonErr != nil {
		log.Warn().Err(jsonErr).Str("signature", evt.Signature).Msg("rpc result decode failed")
		return c.commit(ctx, msg)
	}

	facts := schema.FromJSON(parsed, evt.Signature, evt.Slot)
	c.metrics.RecordTxProcessed()
	if facts.Version != nil && *facts.Version == 0 && facts.HasLoadedAddresses {
		c.metrics.RecordV0AltTx()
	}

	if err := c.publishFacts(ctx, facts); err != nil {
		c.metrics.RecordPublishError()
		return err
	}

	if c.cfg.RaydiumAMMv4ProgramID != "" {
		if !facts.HasProgram(c.cfg.RaydiumAMMv4ProgramID) {
			c.metrics.RecordGateFail("raydium")
		} else {
			swaps := swap.ParseRaydiumV4Swaps(facts, chain, evt.IndexInBlock, c.cfg.SwapsExplain)
			if len(swaps) == 0 {
				c.metrics.RecordParseFail("raydium", "no_token_deltas")
			}
			for _, s := range swaps {
				c.metrics.RecordSwapDetected()
				if err := s.Validate(); err != nil {
					c.metrics.RecordParseFail("raydium", "invalid_amounts")
					continue
				}
				if err := c.sinks.SendSwap(ctx, evt.Signature, s); err != nil {
					c.metrics.RecordPublishError()
					return err
				}
				c.metrics.RecordSwapEmitted("raydium", s.Confidence)
			}
		}
	}

	if err := c.commit(ctx, msg); err != nil {
		return err
	}

	if c.metrics.TxsProcessed()%statsLogEvery == 0 {
		log.Info().Str("summary", c.metrics.Summary()).Msg("decoder stats")
	}
	return nil
}

// publishFacts sends the legacy SOL and token deltas for facts,
// in extraction order, before any swaps for the same signature.
func (c *Consumer) publishFacts(ctx context.Context, facts schema.TxFacts) error {
	for _, d := range events.LegacySolDeltas(facts) {
		if err := c.sinks.SendSolDelta(ctx, facts.Signature, d); err != nil {
			return err
		}
	}
	for _, d := range events.LegacyTokenDeltas(facts) {
		if err := c.sinks.SendTokenDelta(ctx, facts.Signature, d); err != nil {
			return err
		}
	}
	return nil
}

// handleFetchFailure applies the per-signature retry budget: retry
// locally (no commit) under maxAttempts, otherwise route to DLQ and
// commit so the poison pill doesn't stall the partition.
func (c *Consumer) handleFetchFailure(ctx context.Context, msg kafka.Message, evt events.RawTxEvent, fetchErr error) error {
	if len(c.failures) >= maxFailureMapSize {
		log.Warn().Int("size", len(c.failures)).Msg("failure map cap reached, clearing")
		c.failures = make(map[string]int)
	}

	attempts := c.failures[evt.Signature] + 1
	kind := kindFromFetchError(fetchErr)

	if attempts < maxAttempts {
		c.failures[evt.Signature] = attempts
		time.Sleep(time.Duration(baseBackoffMs*attempts) * time.Millisecond)
		return nil
	}

	delete(c.failures, evt.Signature)
	record := events.NewDlqRecord(time.Now().Unix(), evt.Signature, evt.Slot, dlqReasonForKind(kind), fetchErr.Error()).
		WithBlockTime(evt.BlockTime).
		WithAttempts(uint32(attempts))

	if err := c.sinks.SendDlq(ctx, evt.Signature, record); err != nil {
		log.Warn().Err(err).Str("signature", evt.Signature).Msg("dlq publish failed")
	} else {
		c.metrics.RecordDlqSent(string(record.Reason))
	}

	return c.commit(ctx, msg)
}

func dlqReasonForKind(k Kind) events.DlqReason {
	if k == KindRPCRateLimited || k == KindRPCServerError || k == KindRPCTransport {
		return events.DlqReasonRPCFetchFailed
	}
	return events.DlqReasonParseFailed
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}
