package rpcfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetTransactionSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"slot":123}}`))
	}))
	defer ts.Close()

	c := New([]string{ts.URL}, WithMinDelay(time.Millisecond))

	result, err := c.GetTransaction(context.Background(), "sig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if string(result) != `{"slot":123}` {
		t.Errorf("result = %s", result)
	}
}

func TestGetTransactionFailsOverToFallback(t *testing.T) {
	var primaryHits int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryHits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	}))
	defer fallback.Close()

	c := New([]string{primary.URL, fallback.URL}, WithMinDelay(time.Millisecond))

	result, err := c.GetTransaction(context.Background(), "sig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if string(result) != `{"ok":true}` {
		t.Errorf("result = %s", result)
	}
	if atomic.LoadInt32(&primaryHits) == 0 {
		t.Error("expected primary to be attempted at least once")
	}
}

func TestGetTransactionRateLimitedExhaustsAttempts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := New([]string{ts.URL}, WithMinDelay(time.Millisecond), WithMaxAttempts(2))

	_, err := c.GetTransaction(context.Background(), "sig123")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.Kind != ErrorKindRateLimited {
		t.Errorf("Kind = %q, want %q", fe.Kind, ErrorKindRateLimited)
	}
}

func TestGetTransactionMissingResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1}`))
	}))
	defer ts.Close()

	c := New([]string{ts.URL}, WithMinDelay(time.Millisecond), WithMaxAttempts(1))

	_, err := c.GetTransaction(context.Background(), "sig123")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	fe, ok := err.(*FetchError)
	if !ok || fe.Kind != ErrorKindMissingResult {
		t.Errorf("err = %v, want missing_result", err)
	}
}

func TestConcurrencyPermitBounds(t *testing.T) {
	var inFlight, maxSeen int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			seen := atomic.LoadInt32(&maxSeen)
			if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer ts.Close()

	c := New([]string{ts.URL}, WithConcurrency(2), WithMinDelay(0))

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			c.GetTransaction(context.Background(), "sig")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	if atomic.LoadInt32(&maxSeen) > 2 {
		t.Errorf("maxSeen in-flight = %d, want <= 2", maxSeen)
	}
}
