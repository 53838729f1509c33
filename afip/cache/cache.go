// Package cache holds the token and parameter caches over a pluggable
// key/value Store. Keys are deterministic strings of the form
// {prefix}:{environment}:{kind}:{cuit} so an external store (Redis, file)
// can be dropped in without coordination.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "afip.cache")

// Store is the external collaborator contract. Implementations must expire
// entries no later than the given TTL.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// Memory returns the in-process Store used when no external one is wired.
func Memory() Store {
	return &memoryStore{entries: make(map[string]memEntry)}
}

func (m *memoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *memoryStore) Put(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (m *memoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Key builds the deterministic cache key.
func Key(prefix, environment, kind, cuit string) string {
	return fmt.Sprintf("%s:%s:%s:%s", prefix, environment, kind, cuit)
}
