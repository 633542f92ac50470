// Package rpcfetch implements the decoder's rate-limited, fail-over
// getTransaction client: a bounded concurrency permit, a minimum
// inter-request delay gate, round-robin URL failover, and exponential
// backoff on retryable errors.
package rpcfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrorKind classifies a terminal fetch failure so callers (the consumer
// loop's retry/DLQ branching) can log and count it without string
// matching.
type ErrorKind string

const (
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindServerError ErrorKind = "server_error"
	ErrorKindDecodeError ErrorKind = "decode_error"
	ErrorKindMissingResult ErrorKind = "missing_result"
	ErrorKindTransport     ErrorKind = "transport"
)

// FetchError is a terminal error from Client.GetTransaction, carrying the
// Kind needed for retry/DLQ classification upstream.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("rpcfetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const (
	defaultConcurrency  = 4
	defaultMinDelay     = 250 * time.Millisecond
	defaultMaxAttempts  = 6
	defaultMaxTxVersion = 1
	defaultHTTPTimeout  = 25 * time.Second
	initialBackoff      = 250 * time.Millisecond
	maxBackoff429       = 8 * time.Second
	maxBackoffOther     = 5 * time.Second
)

// Client is a getTransaction-only JSON-RPC client with bounded
// concurrency, a minimum inter-request delay, and round-robin failover
// across one or more URLs. The zero value is not usable; construct with
// New.
type Client struct {
	urls            []string
	httpClient      *http.Client
	permit          chan struct{}
	delayGate       *rate.Limiter
	maxAttempts     int
	maxTxVersion    int

	// urlIdx is the round-robin cursor, advanced under urlMu.
	urlMu  sync.Mutex
	urlIdx int
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithConcurrency overrides the default outstanding-request permit count.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.permit = make(chan struct{}, n)
		}
	}
}

// WithMinDelay overrides the default minimum inter-request delay gate.
func WithMinDelay(d time.Duration) Option {
	return func(c *Client) { c.delayGate = rate.NewLimiter(rate.Every(d), 1) }
}

// WithMaxAttempts overrides the default retry budget per call.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithHTTPClient overrides the HTTP client (tests substitute one pointed
// at httptest.Server).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithMaxTxVersion overrides maxSupportedTransactionVersion sent with
// every getTransaction call (RPC_MAX_TX_VERSION).
func WithMaxTxVersion(v int) Option {
	return func(c *Client) { c.maxTxVersion = v }
}

// New builds a Client that fails over across urls in round-robin order,
// starting with urls[0] as primary.
func New(urls []string, opts ...Option) *Client {
	c := &Client{
		urls:         urls,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		permit:       make(chan struct{}, defaultConcurrency),
		delayGate:    rate.NewLimiter(rate.Every(defaultMinDelay), 1),
		maxAttempts:  defaultMaxAttempts,
		maxTxVersion: defaultMaxTxVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type jsonrpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonrpcError   `json:"error"`
}

// GetTransaction fetches a jsonParsed getTransaction result for signature,
// passing the configured maxSupportedTransactionVersion so v0
// transactions decode instead of erroring.
func (c *Client) GetTransaction(ctx context.Context, signature string) (json.RawMessage, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": c.maxTxVersion,
		},
	}
	return c.call(ctx, "getTransaction", params)
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	select {
	case c.permit <- struct{}{}:
		defer func() { <-c.permit }()
	case <-ctx.Done():
		return nil, &FetchError{Kind: ErrorKindTransport, Err: ctx.Err()}
	}

	backoff := initialBackoff
	var lastErr *FetchError

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		url := c.nextURL()
		if err := c.delayGate.Wait(ctx); err != nil {
			return nil, &FetchError{Kind: ErrorKindTransport, Err: err}
		}

		result, ferr := c.attempt(ctx, url, method, params)
		if ferr == nil {
			return result, nil
		}
		lastErr = ferr

		if attempt == c.maxAttempts {
			break
		}

		backoffCap := maxBackoffOther
		if ferr.Kind == ErrorKindRateLimited {
			backoffCap = maxBackoff429
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, &FetchError{Kind: ErrorKindTransport, Err: ctx.Err()}
		}
		backoff *= 2
		if backoff > backoffCap {
			backoff = backoffCap
		}
	}

	return nil, lastErr
}

func (c *Client) nextURL() string {
	c.urlMu.Lock()
	defer c.urlMu.Unlock()
	url := c.urls[c.urlIdx%len(c.urls)]
	c.urlIdx++
	return url
}

func (c *Client) attempt(ctx context.Context, url, method string, params []interface{}) (json.RawMessage, *FetchError) {
	reqBody, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, &FetchError{Kind: ErrorKindTransport, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &FetchError{Kind: ErrorKindTransport, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &FetchError{Kind: ErrorKindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &FetchError{Kind: ErrorKindRateLimited, Err: fmt.Errorf("http 429")}
	}
	if resp.StatusCode >= 500 {
		return nil, &FetchError{Kind: ErrorKindServerError, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: ErrorKindServerError, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var rpcResp jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, &FetchError{Kind: ErrorKindDecodeError, Err: err}
	}

	if rpcResp.Error != nil {
		return nil, &FetchError{Kind: ErrorKindServerError, Err: errors.New(rpcResp.Error.Message)}
	}
	if len(rpcResp.Result) == 0 {
		return nil, &FetchError{Kind: ErrorKindMissingResult, Err: errors.New("response carried no result field")}
	}

	return rpcResp.Result, nil
}
