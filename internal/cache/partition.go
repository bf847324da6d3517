package cache

import (
	"slices"

	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"github.com/couchcryptid/exposure-keys-etl/internal/observability"
)

// CachedPartitioner wraps a Partitioner with an LRU keyed by the upper-cased
// request.
type CachedPartitioner struct {
	inner   domain.Partitioner
	cache   *LRU[domain.PartitionRequest, domain.Partition]
	metrics *observability.Metrics
}

// NewCachedPartitioner creates a cache decorator around a partitioner. metrics may be nil.
func NewCachedPartitioner(inner domain.Partitioner, maxEntries int, metrics *observability.Metrics) *CachedPartitioner {
	return &CachedPartitioner{
		inner:   inner,
		cache:   NewLRU[domain.PartitionRequest, domain.Partition](maxEntries),
		metrics: metrics,
	}
}

// Partition returns the cached partition for req, computing it on a miss.
// Callers get their own copy of the parts. An unresolved partition names
// the caller's own area, whatever spelling first filled the entry.
func (c *CachedPartitioner) Partition(req domain.PartitionRequest) domain.Partition {
	key := normalizeRequest(req)
	if p, ok := c.cache.Get(key); ok {
		c.observe("hit")
		p = clonePartition(p)
		if p.Reason == domain.ReasonUnresolved && len(p.Parts) == 1 {
			p.Parts[0].AreaID = req.Name
		}
		return p
	}
	c.observe("miss")

	p := c.inner.Partition(req)
	c.cache.Put(key, clonePartition(p))
	return p
}

func (c *CachedPartitioner) observe(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.PartitionCache.WithLabelValues(result).Inc()
}

func normalizeRequest(req domain.PartitionRequest) domain.PartitionRequest {
	k := domain.NewAdminKey(req.Country, req.Name, req.Peril)
	return domain.PartitionRequest{Country: k.Country, From: req.From, Name: k.Name, Peril: k.Peril, To: req.To}
}

func clonePartition(p domain.Partition) domain.Partition {
	p.Parts = slices.Clone(p.Parts)
	return p
}
