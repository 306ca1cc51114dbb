package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weatherwise/internal/models"
)

const (
	keyPrefix = "weatherwise:"
	// memcached rejects keys over 250 bytes.
	maxKeyLen = 250
	// Relative expirations above 30 days are read as unix timestamps.
	maxRelativeExpiry = 30 * 24 * time.Hour
	fallbackExpiry    = time.Hour
	defaultServer     = "localhost:11211"
)

// MemcachedCache stores bundles as JSON in memcached.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache connects lazily to the comma-separated addrs. Addresses
// that do not resolve are reported here rather than on first use. Zero
// timeout or maxIdleConns keep the client defaults.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := splitAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{defaultServer}
	}
	var list memcache.ServerList
	if err := list.SetServers(servers...); err != nil {
		return nil, fmt.Errorf("memcached servers %v: %w", servers, err)
	}
	client := memcache.NewFromSelector(&list)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func splitAddrs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// itemKey maps a cache key into memcached's alphabet. Over-long keys are
// replaced by a digest of the original.
func itemKey(k string) string {
	escaped := keyPrefix + url.QueryEscape(k)
	if len(escaped) <= maxKeyLen {
		return escaped
	}
	sum := sha256.Sum256([]byte(k))
	return keyPrefix + "h:" + hex.EncodeToString(sum[:])
}

// expiry converts ttl into memcached's relative seconds.
func expiry(ttl time.Duration) int32 {
	if ttl < time.Second || ttl > maxRelativeExpiry {
		ttl = fallbackExpiry
	}
	return int32(ttl / time.Second)
}

// Get returns (zero, false, nil) on a miss. An entry that no longer decodes
// is deleted and reported as a miss.
func (c *MemcachedCache) Get(ctx context.Context, k string) (models.WeatherBundle, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.WeatherBundle{}, false, err
	}
	ik := itemKey(k)
	item, err := c.client.Get(ik)
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
		return models.WeatherBundle{}, false, nil
	case err != nil:
		return models.WeatherBundle{}, false, fmt.Errorf("memcached get: %w", err)
	}

	var bundle models.WeatherBundle
	if err := json.Unmarshal(item.Value, &bundle); err != nil {
		if delErr := c.client.Delete(ik); delErr != nil && !errors.Is(delErr, memcache.ErrCacheMiss) {
			return models.WeatherBundle{}, false, fmt.Errorf("memcached drop corrupt entry: %w", delErr)
		}
		return models.WeatherBundle{}, false, nil
	}
	return bundle, true, nil
}

func (c *MemcachedCache) Set(ctx context.Context, k string, value models.WeatherBundle, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := c.client.Set(&memcache.Item{Key: itemKey(k), Value: raw, Expiration: expiry(ttl)}); err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

// Ping reports whether every server answers.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
