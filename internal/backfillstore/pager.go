package backfillstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"solana-tx-decoder/internal/events"
	"solana-tx-decoder/internal/rpcfetch"
	"solana-tx-decoder/internal/schema"
)

// sigLister is the subset of *solanarpc.Client the pager needs, so
// signature paging can be tested without a live RPC endpoint.
type sigLister interface {
	GetSignaturesForAddressWithOpts(ctx context.Context, addr solana.PublicKey, opts *solanarpc.GetSignaturesForAddressOpts) ([]*solanarpc.TransactionSignature, error)
}

// txFetcher is the subset of *rpcfetch.Client the pager needs.
type txFetcher interface {
	GetTransaction(ctx context.Context, signature string) (json.RawMessage, error)
}

// envelopeWriter is the subset of *kafka.Writer the pager needs.
type envelopeWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Pager historically walks one address's signatures via
// getSignaturesForAddress, fetches each transaction, and republishes the
// same envelope shape the realtime streamer emits — checkpointed in
// sqlite so a re-run only covers signatures newer than the last one
// processed.
type Pager struct {
	sigClient sigLister
	rpc       txFetcher
	store     *Store
	writer    envelopeWriter
	dlqWriter envelopeWriter
	chain     string
}

// NewPager builds a Pager against a live Solana RPC endpoint and Kafka
// broker.
func NewPager(rpcURL string, rpc *rpcfetch.Client, store *Store, broker, topic, dlqTopic, chain string) *Pager {
	sigClient := solanarpc.New(rpcURL)
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
	}
	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        dlqTopic,
		RequiredAcks: kafka.RequireAll,
	}
	return newPager(sigClient, rpc, store, writer, dlqWriter, chain)
}

func newPager(sigClient sigLister, rpc txFetcher, store *Store, writer, dlqWriter envelopeWriter, chain string) *Pager {
	return &Pager{sigClient: sigClient, rpc: rpc, store: store, writer: writer, dlqWriter: dlqWriter, chain: chain}
}

const maxPageSize = 1000

// Run pages up to limit signatures for address (newest first), stopping
// early once it reaches the last checkpointed signature, fetches each
// transaction's full body, and republishes a RawTxEvent per signature.
// On success it advances the checkpoint to the newest signature seen.
func (p *Pager) Run(ctx context.Context, address string, limit int) error {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}

	var until solana.Signature
	if cp, ok, err := p.store.GetCheckpoint(address); err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	} else if ok {
		until, err = solana.SignatureFromBase58(cp)
		if err != nil {
			log.Warn().Str("checkpoint", cp).Err(err).Msg("ignoring malformed checkpoint signature")
			until = solana.Signature{}
		}
	}

	sigs, err := p.pageSignatures(ctx, pubkey, until, limit)
	if err != nil {
		return fmt.Errorf("page signatures: %w", err)
	}
	log.Info().Str("address", address).Int("count", len(sigs)).Msg("backfill: signatures collected")

	var newest string
	for idx, item := range sigs {
		sig := item.Signature.String()
		if newest == "" {
			newest = sig
		}
		if err := p.processSignature(ctx, sig, item.Slot, uint32(idx)); err != nil {
			log.Warn().Err(err).Str("signature", sig).Msg("backfill: tx fetch failed, routed to dlq")
		}
	}

	if newest != "" {
		if err := p.store.SetCheckpoint(address, newest, time.Now().Unix()); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	return nil
}

func (p *Pager) pageSignatures(ctx context.Context, addr solana.PublicKey, until solana.Signature, limit int) ([]*solanarpc.TransactionSignature, error) {
	var out []*solanarpc.TransactionSignature
	var before solana.Signature

	for len(out) < limit {
		pageSize := maxPageSize
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}

		opts := &solanarpc.GetSignaturesForAddressOpts{Limit: &pageSize}
		if before != (solana.Signature{}) {
			opts.Before = before
		}
		if until != (solana.Signature{}) {
			opts.Until = until
		}

		page, err := p.sigClient.GetSignaturesForAddressWithOpts(ctx, addr, opts)
		if err != nil {
			return out, err
		}
		if len(page) == 0 {
			break
		}

		out = append(out, page...)
		before = page[len(page)-1].Signature
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *Pager) processSignature(ctx context.Context, signature string, slot uint64, indexInBlock uint32) error {
	tx, err := p.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return p.sendDlq(ctx, signature, "getTransaction", err)
	}

	parsed, err := schema.DecodeTxJSON(tx)
	if err != nil {
		return p.sendDlq(ctx, signature, "parse", err)
	}

	facts := schema.FromJSON(parsed, signature, slot)
	programIDs := schema.ExtractProgramIDsFromTransaction(parsed)

	evt := events.NewRawTxEvent(p.chain, facts, indexInBlock, programIDs)
	payload, err := json.Marshal(evt)
	if err != nil {
		return p.sendDlq(ctx, signature, "marshal", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(signature), Value: payload})
}

func (p *Pager) sendDlq(ctx context.Context, signature, step string, cause error) error {
	sig := signature
	dlq := events.DlqEvent{Source: "backfill", Step: step, Signature: &sig, Error: cause.Error()}
	payload, err := json.Marshal(dlq)
	if err != nil {
		return err
	}
	return p.dlqWriter.WriteMessages(ctx, kafka.Message{Value: payload})
}
