package cache

import (
	"encoding/json"
	"time"

	"github.com/resguar/go-afip-client/afip"
)

// TokenCache keys WSAA tokens by (cuit, service, environment) and refuses to
// serve anything inside the safety margin of its expiration.
type TokenCache struct {
	store        Store
	prefix       string
	environment  string
	enabled      bool
	ttl          time.Duration
	safetyMargin time.Duration
}

func NewTokenCache(store Store, cfg afip.Config) *TokenCache {
	cfg = cfg.Normalized()
	return &TokenCache{
		store:        store,
		prefix:       cfg.CachePrefix,
		environment:  cfg.Environment.Name(),
		enabled:      cfg.TokenCacheEnabled,
		ttl:          cfg.TokenTTL,
		safetyMargin: cfg.TokenSafetyMargin,
	}
}

func (c *TokenCache) key(service, cuit string) string {
	return Key(c.prefix, c.environment, "token_"+service, cuit)
}

// Get returns a cached token only while it remains valid past the safety
// margin at read time. A stale entry that the store has not expired yet is
// dropped here, not served.
func (c *TokenCache) Get(service, cuit string) (*afip.Token, bool) {
	if !c.enabled || c.store == nil {
		return nil, false
	}

	raw, ok := c.store.Get(c.key(service, cuit))
	if !ok {
		return nil, false
	}

	var t afip.Token
	if err := json.Unmarshal(raw, &t); err != nil {
		logger.Warnf("dropping unreadable cached token for %s/%s: %v", service, cuit, err)
		c.store.Delete(c.key(service, cuit))
		return nil, false
	}

	now := time.Now()
	if !t.Valid(now) || t.RemainingValidity(now) <= c.safetyMargin {
		c.store.Delete(c.key(service, cuit))
		return nil, false
	}
	return &t, true
}

// Put stores the token for min(configured TTL, remaining validity - margin),
// so the store never outlives the token's usable life.
func (c *TokenCache) Put(service, cuit string, t *afip.Token) {
	if !c.enabled || c.store == nil || t == nil {
		return
	}

	ttl := t.RemainingValidity(time.Now()) - c.safetyMargin
	if ttl <= 0 {
		logger.Debugf("token for %s/%s expires within the safety margin, not caching", service, cuit)
		return
	}
	if c.ttl < ttl {
		ttl = c.ttl
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	c.store.Put(c.key(service, cuit), raw, ttl)
	logger.Debugf("cached token for %s/%s, ttl %s", service, cuit, ttl)
}

func (c *TokenCache) Delete(service, cuit string) {
	if c.store == nil {
		return
	}
	c.store.Delete(c.key(service, cuit))
}
