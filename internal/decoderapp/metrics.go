package decoderapp

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"solana-tx-decoder/internal/schema"
)

// swapKey groups the swaps_emitted counter by venue and confidence
// bucket, matching metrics.rs's (venue, ConfidenceBucket) map key.
type swapKey struct {
	venue  string
	bucket schema.ConfidenceBucket
}

// parseFailKey groups parse_fail by venue and reason.
type parseFailKey struct {
	venue  string
	reason string
}

// Metrics is the decoder's in-process counter set. Every field that
// isn't grouped by label is a plain atomic.Uint64; grouped counters
// use a mutex-guarded map of atomic counters, following the same
// read-then-upgrade-to-write pattern as the original RwLock<HashMap>.
type Metrics struct {
	mu           sync.RWMutex
	swapsEmitted map[swapKey]*atomic.Uint64
	parseFails   map[parseFailKey]*atomic.Uint64
	gateFails    map[string]*atomic.Uint64
	dlqSent      map[string]*atomic.Uint64

	v0AltTxSeen    atomic.Uint64
	txsProcessed   atomic.Uint64
	swapsDetected  atomic.Uint64
	publishErrors  atomic.Uint64
}

// NewMetrics returns an empty Metrics ready to record.
func NewMetrics() *Metrics {
	return &Metrics{
		swapsEmitted: make(map[swapKey]*atomic.Uint64),
		parseFails:   make(map[parseFailKey]*atomic.Uint64),
		gateFails:    make(map[string]*atomic.Uint64),
		dlqSent:      make(map[string]*atomic.Uint64),
	}
}

func (m *Metrics) RecordSwapEmitted(venue string, confidence uint8) {
	key := swapKey{venue: venue, bucket: schema.BucketForConfidence(confidence)}
	m.mu.RLock()
	counter, ok := m.swapsEmitted[key]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		counter, ok = m.swapsEmitted[key]
		if !ok {
			counter = &atomic.Uint64{}
			m.swapsEmitted[key] = counter
		}
		m.mu.Unlock()
	}
	counter.Add(1)
}

func (m *Metrics) RecordParseFail(venue, reason string) {
	key := parseFailKey{venue: venue, reason: reason}
	m.mu.RLock()
	counter, ok := m.parseFails[key]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		counter, ok = m.parseFails[key]
		if !ok {
			counter = &atomic.Uint64{}
			m.parseFails[key] = counter
		}
		m.mu.Unlock()
	}
	counter.Add(1)
}

func (m *Metrics) RecordGateFail(venue string) {
	m.mu.RLock()
	counter, ok := m.gateFails[venue]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		counter, ok = m.gateFails[venue]
		if !ok {
			counter = &atomic.Uint64{}
			m.gateFails[venue] = counter
		}
		m.mu.Unlock()
	}
	counter.Add(1)
}

func (m *Metrics) RecordV0AltTx() { m.v0AltTxSeen.Add(1) }

func (m *Metrics) RecordDlqSent(reason string) {
	m.mu.RLock()
	counter, ok := m.dlqSent[reason]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		counter, ok = m.dlqSent[reason]
		if !ok {
			counter = &atomic.Uint64{}
			m.dlqSent[reason] = counter
		}
		m.mu.Unlock()
	}
	counter.Add(1)
}

func (m *Metrics) RecordTxProcessed()  { m.txsProcessed.Add(1) }
func (m *Metrics) RecordSwapDetected() { m.swapsDetected.Add(1) }
func (m *Metrics) RecordPublishError() { m.publishErrors.Add(1) }

func (m *Metrics) V0AltTxSeen() uint64   { return m.v0AltTxSeen.Load() }
func (m *Metrics) TxsProcessed() uint64  { return m.txsProcessed.Load() }
func (m *Metrics) SwapsDetected() uint64 { return m.swapsDetected.Load() }
func (m *Metrics) PublishErrors() uint64 { return m.publishErrors.Load() }

// Summary renders the counters as plain name{labels}=value tokens
// joined by single spaces on one line, the same shape the original implementation's summary() produced — not a
// Prometheus exposition format, since no Prometheus client is wired in
// this module.
func (m *Metrics) Summary() string {
	var lines []string

	lines = append(lines, fmt.Sprintf(
		"txs_processed=%d swaps_detected=%d v0_alt_seen=%d publish_errors=%d",
		m.TxsProcessed(), m.SwapsDetected(), m.V0AltTxSeen(), m.PublishErrors(),
	))

	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, counter := range m.swapsEmitted {
		if n := counter.Load(); n > 0 {
			lines = append(lines, fmt.Sprintf("swaps_emitted{venue=%s,confidence=%s}=%d", key.venue, key.bucket, n))
		}
	}
	for key, counter := range m.parseFails {
		if n := counter.Load(); n > 0 {
			lines = append(lines, fmt.Sprintf("parse_fail{venue=%s,reason=%s}=%d", key.venue, key.reason, n))
		}
	}
	for venue, counter := range m.gateFails {
		if n := counter.Load(); n > 0 {
			lines = append(lines, fmt.Sprintf("gate_fail{venue=%s}=%d", venue, n))
		}
	}
	for reason, counter := range m.dlqSent {
		if n := counter.Load(); n > 0 {
			lines = append(lines, fmt.Sprintf("dlq_sent{reason=%s}=%d", reason, n))
		}
	}

	return strings.Join(lines, " ")
}
