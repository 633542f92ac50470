package decoderapp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"solana-tx-decoder/internal/events"
	"solana-tx-decoder/internal/rpcfetch"
)

func rawTxEventForTest(signature string) events.RawTxEvent {
	return events.RawTxEvent{
		SchemaVersion: 1,
		Chain:         "solana-mainnet",
		Slot:          1,
		Signature:     signature,
		IsSuccess:     true,
	}
}

type fakeFetcher struct {
	result json.RawMessage
	err    error
	calls  int
}

func (f *fakeFetcher) GetTransaction(ctx context.Context, signature string) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSink struct {
	solDeltas, tokenDeltas, swaps, dlq int
	failOn                             string
}

func (s *fakeSink) SendSolDelta(ctx context.Context, signature string, v interface{}) error {
	s.solDeltas++
	if s.failOn == "sol" {
		return errors.New("publish failed")
	}
	return nil
}
func (s *fakeSink) SendTokenDelta(ctx context.Context, signature string, v interface{}) error {
	s.tokenDeltas++
	if s.failOn == "token" {
		return errors.New("publish failed")
	}
	return nil
}
func (s *fakeSink) SendSwap(ctx context.Context, signature string, v interface{}) error {
	s.swaps++
	if s.failOn == "swap" {
		return errors.New("publish failed")
	}
	return nil
}
func (s *fakeSink) SendDlq(ctx context.Context, signature string, v interface{}) error {
	s.dlq++
	return nil
}

type fakeSource struct {
	committed []kafka.Message
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) { return kafka.Message{}, nil }
func (f *fakeSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}
func (f *fakeSource) Close() error { return nil }

const legacyTxJSON = `{
	"blockTime": 1703001234,
	"meta": {"err": null, "fee": 5000, "preBalances": [1000000000], "postBalances": [999995000], "preTokenBalances": [], "postTokenBalances": [], "innerInstructions": []},
	"slot": 250000000,
	"transaction": {
		"message": {"accountKeys": ["FeePayer111111111111111111111111111111111"], "instructions": []},
		"signatures": ["sig123"]
	}
}`

func TestProcessMessageSkipsFailedTxWhenIncludeFailedFalse(t *testing.T) {
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	sink := &fakeSink{}
	c := newConsumer(Config{IncludeFailed: false}, source, fetcher, sink, NewMetrics())

	payload, _ := json.Marshal(map[string]interface{}{
		"schema_version": 1, "chain": "solana-mainnet", "slot": 1, "signature": "sig1",
		"index_in_block": 0, "is_success": false, "fee_lamports": 5000, "program_ids": []string{},
	})

	if err := c.processMessage(context.Background(), kafka.Message{Value: payload}); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher.calls = %d, want 0 (should skip RPC for failed tx)", fetcher.calls)
	}
	if len(source.committed) != 1 {
		t.Errorf("committed = %d, want 1", len(source.committed))
	}
}

func TestProcessMessageMalformedInputCommitsAndSkips(t *testing.T) {
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	sink := &fakeSink{}
	c := newConsumer(Config{}, source, fetcher, sink, NewMetrics())

	if err := c.processMessage(context.Background(), kafka.Message{Value: []byte("not json")}); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if len(source.committed) != 1 {
		t.Errorf("committed = %d, want 1", len(source.committed))
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher.calls = %d, want 0", fetcher.calls)
	}
}

func TestProcessMessageHappyPathCommitsAfterPublish(t *testing.T) {
	source := &fakeSource{}
	fetcher := &fakeFetcher{result: json.RawMessage(legacyTxJSON)}
	sink := &fakeSink{}
	c := newConsumer(Config{IncludeFailed: true}, source, fetcher, sink, NewMetrics())

	payload, _ := json.Marshal(map[string]interface{}{
		"schema_version": 1, "chain": "solana-mainnet", "slot": 250000000, "signature": "sig123",
		"index_in_block": 0, "is_success": true, "fee_lamports": 5000, "program_ids": []string{},
	})

	if err := c.processMessage(context.Background(), kafka.Message{Value: payload}); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if sink.solDeltas == 0 {
		t.Error("expected at least one SOL delta published (fee)")
	}
	if len(source.committed) != 1 {
		t.Errorf("committed = %d, want 1", len(source.committed))
	}
}

func TestProcessMessagePublishFailureIsFatal(t *testing.T) {
	source := &fakeSource{}
	fetcher := &fakeFetcher{result: json.RawMessage(legacyTxJSON)}
	sink := &fakeSink{failOn: "sol"}
	c := newConsumer(Config{IncludeFailed: true}, source, fetcher, sink, NewMetrics())

	payload, _ := json.Marshal(map[string]interface{}{
		"schema_version": 1, "chain": "solana-mainnet", "slot": 250000000, "signature": "sig123",
		"index_in_block": 0, "is_success": true, "fee_lamports": 5000, "program_ids": []string{},
	})

	err := c.processMessage(context.Background(), kafka.Message{Value: payload})
	if err == nil {
		t.Fatal("expected fatal publish error, got nil")
	}
	if len(source.committed) != 0 {
		t.Errorf("committed = %d, want 0 (must not commit on publish failure)", len(source.committed))
	}
}

func TestHandleFetchFailureRetriesWithinBudget(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{}
	c := newConsumer(Config{}, source, &fakeFetcher{}, sink, NewMetrics())

	fetchErr := &rpcfetch.FetchError{Kind: rpcfetch.ErrorKindServerError, Err: errors.New("500")}
	evtPayload := rawTxEventForTest("sigretry")

	for i := 1; i < maxAttempts; i++ {
		if err := c.handleFetchFailure(context.Background(), kafka.Message{}, evtPayload, fetchErr); err != nil {
			t.Fatalf("handleFetchFailure attempt %d: %v", i, err)
		}
	}
	if len(source.committed) != 0 {
		t.Errorf("committed = %d, want 0 while under retry budget", len(source.committed))
	}
	if sink.dlq != 0 {
		t.Errorf("dlq sends = %d, want 0 while under retry budget", sink.dlq)
	}

	if err := c.handleFetchFailure(context.Background(), kafka.Message{}, evtPayload, fetchErr); err != nil {
		t.Fatalf("handleFetchFailure final attempt: %v", err)
	}
	if sink.dlq != 1 {
		t.Errorf("dlq sends = %d, want 1 after budget exhausted", sink.dlq)
	}
	if len(source.committed) != 1 {
		t.Errorf("committed = %d, want 1 after DLQ", len(source.committed))
	}
	if _, ok := c.failures["sigretry"]; ok {
		t.Error("failure count should be cleared after DLQ send")
	}
}

func TestHandleFetchFailureClearsMapOnOverflow(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{}
	c := newConsumer(Config{}, source, &fakeFetcher{}, sink, NewMetrics())
	for i := 0; i < maxFailureMapSize; i++ {
		c.failures[string(rune(i))] = 1
	}

	fetchErr := &rpcfetch.FetchError{Kind: rpcfetch.ErrorKindTransport, Err: errors.New("down")}
	if err := c.handleFetchFailure(context.Background(), kafka.Message{}, rawTxEventForTest("sigoverflow"), fetchErr); err != nil {
		t.Fatalf("handleFetchFailure: %v", err)
	}
	if len(c.failures) > 1 {
		t.Errorf("len(failures) = %d, want <= 1 after overflow clear", len(c.failures))
	}
}
