package metrics

import "time"

// StatsSource is implemented by cache.State (kept narrow here so the
// metrics package does not import cache — cache imports metrics to
// bump counters inline as events happen, while the periodic gauge
// snapshot instead goes through this interface to avoid an import
// cycle).
type StatsSource interface {
	DebugScan() Snapshot
}

// Snapshot is a point-in-time readout of one cache interface's
// occupancy, grounded on bplib_cache_debug_scan's stat dump.
type Snapshot struct {
	PendingListLen int
	IdleListLen    int
	HashQueues     int
	TimeQueues     int
	DestQueues     int
	EntriesIdle    int
	EntriesDACS    int
}

// Collector periodically snapshots one cache interface's occupancy
// into the package gauges.
type Collector struct {
	source StatsSource
	stopCh chan struct{}
}

// NewCollector returns a collector for source.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting on a ticker, sampling immediately first.
func (c *Collector) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	snap := c.source.DebugScan()

	PendingListLength.Set(float64(snap.PendingListLen))
	IdleListLength.Set(float64(snap.IdleListLen))
	QueuesTotal.WithLabelValues("hash").Set(float64(snap.HashQueues))
	QueuesTotal.WithLabelValues("time").Set(float64(snap.TimeQueues))
	QueuesTotal.WithLabelValues("dest").Set(float64(snap.DestQueues))
	EntriesTotal.WithLabelValues("idle", "bundle").Set(float64(snap.EntriesIdle))
	EntriesTotal.WithLabelValues("generate_dacs", "dacs").Set(float64(snap.EntriesDACS))
}
