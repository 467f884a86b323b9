// Package cache provides the token→account cache consulted by the
// authentication resolver. Entries expire after a fixed TTL; expired entries
// are dropped lazily on read.
package cache

import (
	"sync"
	"time"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

type cachedAccount struct {
	account   domain.SubmissionAccount
	expiresAt time.Time
}

type TokenCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cachedAccount
}

type Option func(*TokenCache)

// WithNow overrides the clock; used by tests.
func WithNow(now func() time.Time) Option {
	return func(c *TokenCache) {
		c.now = now
	}
}

func NewTokenCache(ttl time.Duration, options ...Option) *TokenCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cache := &TokenCache{
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[string]cachedAccount),
	}
	for _, option := range options {
		option(cache)
	}
	return cache
}

func (c *TokenCache) Get(token string) (*domain.SubmissionAccount, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.After(c.now()) {
		delete(c.entries, token)
		return nil, false
	}
	account := entry.account
	return &account, true
}

func (c *TokenCache) Set(token string, account domain.SubmissionAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = cachedAccount{
		account:   account,
		expiresAt: c.now().Add(c.ttl),
	}
}
