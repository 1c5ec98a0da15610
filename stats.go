package riakpb

import (
	"sync/atomic"
	"time"
)

// ClientStats contains statistics about a client's protocol activity.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Requests, Frames, StreamItems, Errors, Connects, ConnectErrors,
//     Disconnects, Requeues
//   - Gauge: Queued
type ClientStats struct {
	Requests      uint64 // Tasks sent on the wire
	Frames        uint64 // Response frames received
	StreamItems   uint64 // Items handed to streams
	Errors        uint64 // Tasks resolved with an error
	Connects      uint64 // Successful connects
	ConnectErrors uint64 // Failed connects
	Disconnects   uint64 // Connections torn down
	Requeues      uint64 // In-flight tasks put back at the head of the queue
	Queued        int64  // Tasks waiting for dispatch
}

// PoolStats contains statistics about a client pool.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
type PoolStats struct {
	AcquireCount      uint64 // Total acquires
	AcquireWaitCount  uint64 // Acquires that had to wait for a client
	CreatedConns      uint64 // Total clients created
	DestroyedConns    uint64 // Total clients destroyed
	AcquireErrors     uint64 // Canceled acquires
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Clients in the pool (active + idle)
	IdleConns   int32 // Idle clients
	ActiveConns int32 // Clients currently acquired
}

// AcquireWaitTime returns the total time spent waiting for a client.
func (s PoolStats) AcquireWaitTime() time.Duration {
	return time.Duration(s.AcquireWaitTimeNs)
}

// clientStatsCollector provides internal methods for updating client stats.
// A pool shares one collector between its clients.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordRequest() {
	atomic.AddUint64(&c.stats.Requests, 1)
}

func (c *clientStatsCollector) recordFrame() {
	atomic.AddUint64(&c.stats.Frames, 1)
}

func (c *clientStatsCollector) recordStreamItem() {
	atomic.AddUint64(&c.stats.StreamItems, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) recordConnect(err error) {
	if err != nil {
		atomic.AddUint64(&c.stats.ConnectErrors, 1)
		return
	}
	atomic.AddUint64(&c.stats.Connects, 1)
}

func (c *clientStatsCollector) recordDisconnect() {
	atomic.AddUint64(&c.stats.Disconnects, 1)
}

func (c *clientStatsCollector) recordRequeue() {
	atomic.AddUint64(&c.stats.Requeues, 1)
}

func (c *clientStatsCollector) recordQueued(delta int64) {
	atomic.AddInt64(&c.stats.Queued, delta)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Requests:      atomic.LoadUint64(&c.stats.Requests),
		Frames:        atomic.LoadUint64(&c.stats.Frames),
		StreamItems:   atomic.LoadUint64(&c.stats.StreamItems),
		Errors:        atomic.LoadUint64(&c.stats.Errors),
		Connects:      atomic.LoadUint64(&c.stats.Connects),
		ConnectErrors: atomic.LoadUint64(&c.stats.ConnectErrors),
		Disconnects:   atomic.LoadUint64(&c.stats.Disconnects),
		Requeues:      atomic.LoadUint64(&c.stats.Requeues),
		Queued:        atomic.LoadInt64(&c.stats.Queued),
	}
}
