package stats

import "sync/atomic"

// Collector counts what the pipeline does. Cheap enough to bump on
// every request, read back on /healthz for operational checks.
type Collector struct {
	served     atomic.Int64
	cacheHits  atomic.Int64
	cacheMiss  atomic.Int64
	staleServe atomic.Int64
	renders    atomic.Int64
	errors     atomic.Int64
}

type Snapshot struct {
	Served      int64 `json:"served"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	StaleServes int64 `json:"stale_serves"`
	Renders     int64 `json:"renders"`
	Errors      int64 `json:"errors"`
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Served()     { c.served.Add(1) }
func (c *Collector) CacheHit()   { c.cacheHits.Add(1) }
func (c *Collector) CacheMiss()  { c.cacheMiss.Add(1) }
func (c *Collector) StaleServe() { c.staleServe.Add(1) }
func (c *Collector) Render()     { c.renders.Add(1) }
func (c *Collector) Error()      { c.errors.Add(1) }

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Served:      c.served.Load(),
		CacheHits:   c.cacheHits.Load(),
		CacheMisses: c.cacheMiss.Load(),
		StaleServes: c.staleServe.Load(),
		Renders:     c.renders.Load(),
		Errors:      c.errors.Load(),
	}
}
