package backfillstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/segmentio/kafka-go"
)

const raydiumAMMv4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

func sigFromByte(b byte) solana.Signature {
	var s solana.Signature
	for i := range s {
		s[i] = b
	}
	return s
}

type fakeSigLister struct {
	pages [][]*solanarpc.TransactionSignature
	calls int
}

func (f *fakeSigLister) GetSignaturesForAddressWithOpts(ctx context.Context, addr solana.PublicKey, opts *solanarpc.GetSignaturesForAddressOpts) ([]*solanarpc.TransactionSignature, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type fakeTxFetcher struct {
	result json.RawMessage
	err    error
}

func (f *fakeTxFetcher) GetTransaction(ctx context.Context, signature string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeWriter struct {
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

const pagerLegacyTxJSON = `{
	"blockTime": 1703001234,
	"meta": {"err": null, "fee": 5000, "preBalances": [], "postBalances": [], "preTokenBalances": [], "postTokenBalances": [], "innerInstructions": []},
	"transaction": {
		"message": {"accountKeys": ["675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"], "instructions": []},
		"signatures": ["sig"]
	}
}`

func TestPagerRunPublishesEventsAndAdvancesCheckpoint(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	sigA := sigFromByte(1)
	sigB := sigFromByte(2)
	sigLister := &fakeSigLister{pages: [][]*solanarpc.TransactionSignature{
		{
			{Signature: sigA, Slot: 100},
			{Signature: sigB, Slot: 99},
		},
	}}
	fetcher := &fakeTxFetcher{result: json.RawMessage(pagerLegacyTxJSON)}
	writer := &fakeWriter{}
	dlqWriter := &fakeWriter{}

	p := newPager(sigLister, fetcher, store, writer, dlqWriter, "solana-mainnet")

	if err := p.Run(context.Background(), raydiumAMMv4, 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(writer.messages) != 2 {
		t.Fatalf("published = %d, want 2", len(writer.messages))
	}
	if len(dlqWriter.messages) != 0 {
		t.Errorf("dlq messages = %d, want 0", len(dlqWriter.messages))
	}

	cp, found, err := store.GetCheckpoint(raydiumAMMv4)
	if err != nil || !found {
		t.Fatalf("GetCheckpoint: found=%v err=%v", found, err)
	}
	if cp != sigA.String() {
		t.Errorf("checkpoint = %q, want newest signature %q", cp, sigA.String())
	}
}

func TestPagerRunRoutesFetchFailuresToDlq(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	sigA := sigFromByte(3)
	sigLister := &fakeSigLister{pages: [][]*solanarpc.TransactionSignature{
		{{Signature: sigA, Slot: 100}},
	}}
	fetcher := &fakeTxFetcher{err: errors.New("rpc down")}
	writer := &fakeWriter{}
	dlqWriter := &fakeWriter{}

	p := newPager(sigLister, fetcher, store, writer, dlqWriter, "solana-mainnet")

	if err := p.Run(context.Background(), raydiumAMMv4, 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(writer.messages) != 0 {
		t.Errorf("published = %d, want 0", len(writer.messages))
	}
	if len(dlqWriter.messages) != 1 {
		t.Fatalf("dlq messages = %d, want 1", len(dlqWriter.messages))
	}
}

func TestPageSignaturesStopsAtLimit(t *testing.T) {
	sigLister := &fakeSigLister{pages: [][]*solanarpc.TransactionSignature{
		{{Signature: sigFromByte(1)}, {Signature: sigFromByte(2)}, {Signature: sigFromByte(3)}},
	}}
	p := newPager(sigLister, &fakeTxFetcher{}, nil, &fakeWriter{}, &fakeWriter{}, "solana-mainnet")

	pubkey, _ := solana.PublicKeyFromBase58(raydiumAMMv4)
	sigs, err := p.pageSignatures(context.Background(), pubkey, solana.Signature{}, 2)
	if err != nil {
		t.Fatalf("pageSignatures: %v", err)
	}
	if len(sigs) != 2 {
		t.Errorf("len(sigs) = %d, want 2", len(sigs))
	}
}
