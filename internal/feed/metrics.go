package feed

import "sync/atomic"

// Metrics tracks the streamer's own counters, grounded on the original
// streamer's connected/tx_seen/send_ok/send_err gauges.
type Metrics struct {
	connected atomic.Uint64
	txSeen    atomic.Uint64
	sendOK    atomic.Uint64
	sendErr   atomic.Uint64
}

func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) RecordConnected()  { m.connected.Add(1) }
func (m *Metrics) RecordTxSeen()     { m.txSeen.Add(1) }
func (m *Metrics) RecordSendOK()     { m.sendOK.Add(1) }
func (m *Metrics) RecordSendErr()    { m.sendErr.Add(1) }

func (m *Metrics) Connected() uint64 { return m.connected.Load() }
func (m *Metrics) TxSeen() uint64    { return m.txSeen.Load() }
func (m *Metrics) SendOK() uint64    { return m.sendOK.Load() }
func (m *Metrics) SendErr() uint64   { return m.sendErr.Load() }
