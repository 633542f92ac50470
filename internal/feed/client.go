// Package feed is a thin Solana JSON-RPC websocket client plus a
// streamer that republishes logsSubscribe notifications as raw
// transaction envelopes, standing in for the original Geyser gRPC
// ingestion path with the websocket subscription surface this module's
// dependency stack actually provides.
package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client manages one reconnecting websocket connection to a Solana RPC
// node's subscription endpoint, dispatching per-subscription
// notifications to registered handlers.
type Client struct {
	url             string
	reconnectDelay  time.Duration
	pingInterval    time.Duration

	onConnect    func()
	onDisconnect func(error)

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   atomic.Bool
	nextID   atomic.Uint64
	pending  map[uint64]chan subscribeResult // request id -> result
	handlers map[uint64]func(json.RawMessage) // subscription id -> handler

	requestIDToSubKind map[uint64]string
}

type subscribeResult struct {
	subID uint64
	err   error
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type rpcNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription uint64          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// NewClient builds a Client for url, reconnecting after reconnectDelay
// on disconnect and pinging the connection every pingInterval.
func NewClient(url string, reconnectDelay, pingInterval time.Duration) *Client {
	return &Client{
		url:                url,
		reconnectDelay:     reconnectDelay,
		pingInterval:       pingInterval,
		pending:            make(map[uint64]chan subscribeResult),
		handlers:           make(map[uint64]func(json.RawMessage)),
		requestIDToSubKind: make(map[uint64]string),
	}
}

// SetCallbacks registers connection lifecycle hooks.
func (c *Client) SetCallbacks(onConnect func(), onDisconnect func(error)) {
	c.onConnect = onConnect
	c.onDisconnect = onDisconnect
}

// Connect dials the endpoint and starts the read/reconnect loop in the
// background, returning once the first connection attempt succeeds.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if c.onConnect != nil {
		c.onConnect()
	}

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Close terminates the connection and stops reconnecting.
func (c *Client) Close() {
	c.closed.Store(true)
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// LogsSubscribe subscribes to log notifications mentioning address
// (empty string subscribes to all votes-excluded transactions), calling
// handler for every notification until Close or Unsubscribe.
func (c *Client) LogsSubscribe(address, commitment string, handler func(json.RawMessage)) (uint64, error) {
	var filter interface{} = "all"
	var params []interface{}
	if address != "" {
		filter = map[string]interface{}{"mentions": []string{address}}
	}
	params = []interface{}{filter, map[string]interface{}{"commitment": commitment}}

	return c.subscribe("logsSubscribe", params, handler)
}

func (c *Client) subscribe(method string, params []interface{}, handler func(json.RawMessage)) (uint64, error) {
	id := c.nextID.Add(1)
	resultCh := make(chan subscribeResult, 1)

	c.mu.Lock()
	c.pending[id] = resultCh
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return 0, fmt.Errorf("not connected")
	}

	req := rpcRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: params}
	if err := conn.WriteJSON(req); err != nil {
		return 0, fmt.Errorf("write subscribe request: %w", err)
	}

	res := <-resultCh
	if res.err != nil {
		return 0, res.err
	}

	c.mu.Lock()
	c.handlers[res.subID] = handler
	c.mu.Unlock()

	return res.subID, nil
}

// Unsubscribe cancels a subscription. The unsubscribe method name
// follows the Solana RPC convention of <subscribe method>→<...>Unsubscribe.
func (c *Client) Unsubscribe(method string, subID uint64) {
	c.mu.Lock()
	delete(c.handlers, subID)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return
	}
	id := c.nextID.Add(1)
	req := rpcRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: []interface{}{subID}}
	_ = conn.WriteJSON(req)
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.onDisconnect != nil {
				c.onDisconnect(err)
			}
			c.reconnect()
			return
		}

		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(data, &resp); err == nil && resp.ID != 0 {
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			if resp.Error != nil {
				ch <- subscribeResult{err: fmt.Errorf("rpc error: %s", resp.Error.Message)}
				return
			}
			var subID uint64
			_ = json.Unmarshal(resp.Result, &subID)
			ch <- subscribeResult{subID: subID}
		}
		return
	}

	var notif rpcNotification
	if err := json.Unmarshal(data, &notif); err != nil {
		return
	}

	c.mu.Lock()
	handler, ok := c.handlers[notif.Params.Subscription]
	c.mu.Unlock()
	if ok {
		handler(notif.Params.Result)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil || c.closed.Load() {
			return
		}
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

func (c *Client) reconnect() {
	if c.closed.Load() {
		return
	}
	log.Warn().Dur("delay", c.reconnectDelay).Msg("websocket disconnected, reconnecting")
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(); err != nil {
		log.Error().Err(err).Msg("reconnect failed")
		c.reconnect()
	}
}
