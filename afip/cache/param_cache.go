package cache

import (
	"encoding/json"
	"time"

	"github.com/resguar/go-afip-client/afip"
)

// ParamCache stores the slow-moving WSFE parameter tables (receipt types,
// points of sale) as JSON, keyed per CUIT and environment.
type ParamCache struct {
	store       Store
	prefix      string
	environment string
	enabled     bool
	ttl         time.Duration
}

func NewParamCache(store Store, cfg afip.Config) *ParamCache {
	cfg = cfg.Normalized()
	return &ParamCache{
		store:       store,
		prefix:      cfg.CachePrefix,
		environment: cfg.Environment.Name(),
		enabled:     cfg.ParamCacheEnabled,
		ttl:         cfg.ParamTTL,
	}
}

func (c *ParamCache) key(kind, cuit string) string {
	return Key(c.prefix, c.environment, kind, cuit)
}

func (c *ParamCache) Get(kind, cuit string, out any) bool {
	if !c.enabled || c.store == nil {
		return false
	}
	raw, ok := c.store.Get(c.key(kind, cuit))
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		logger.Warnf("dropping unreadable cached %s for %s: %v", kind, cuit, err)
		c.store.Delete(c.key(kind, cuit))
		return false
	}
	return true
}

func (c *ParamCache) Put(kind, cuit string, value any) {
	if !c.enabled || c.store == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.store.Put(c.key(kind, cuit), raw, c.ttl)
}

// Clear removes the parameter kinds cached for one CUIT.
func (c *ParamCache) Clear(cuit string, kinds ...string) {
	if c.store == nil {
		return
	}
	for _, kind := range kinds {
		c.store.Delete(c.key(kind, cuit))
	}
}
