// Package cache holds rendered charts and encoded payloads keyed by the
// parameters and seed that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	ChartCacheSizeMB int
	ChartTTL         time.Duration
	QueryCacheSize   int
}

// Manager manages the chart and payload caches.
type Manager struct {
	chartCache *bigcache.BigCache
	queryCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	chartCacheConfig := bigcache.Config{
		Shards:             64,
		LifeWindow:         cfg.ChartTTL,
		CleanWindow:        cfg.ChartTTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       64 * 1024, // typical chart PNG
		HardMaxCacheSize:   cfg.ChartCacheSizeMB,
		Verbose:            false,
	}

	chartCache, err := bigcache.New(context.Background(), chartCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart cache: %w", err)
	}

	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		chartCache.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{
		chartCache: chartCache,
		queryCache: queryCache,
	}, nil
}

// GetChart retrieves a rendered chart.
func (m *Manager) GetChart(key string) ([]byte, bool) {
	data, err := m.chartCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetChart stores a rendered chart.
func (m *Manager) SetChart(key string, data []byte) error {
	return m.chartCache.Set(key, data)
}

// GetQuery retrieves an encoded payload.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores an encoded payload.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queryCache.Add(key, data)
}

// Params are the inputs of a draw, by name.
type Params map[string]string

// digest hashes params in key order so equal maps give equal keys.
func (p Params) digest() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s;", k, p[k])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ChartKey identifies a chart by kind, parameters, seed and size.
func ChartKey(kind string, params Params, seed uint64, width, height int) string {
	base := fmt.Sprintf("chart:%s:%d:%dx%d", kind, seed, width, height)
	if d := params.digest(); d != "" {
		return base + ":" + d
	}
	return base
}

// QueryKey identifies an encoded payload by endpoint, parameters and seed.
func QueryKey(endpoint string, params Params, seed uint64) string {
	base := fmt.Sprintf("query:%s:%d", strings.Trim(endpoint, "/"), seed)
	if d := params.digest(); d != "" {
		return base + ":" + d
	}
	return base
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	stats := m.chartCache.Stats()
	return map[string]interface{}{
		"chart_cache_len":    m.chartCache.Len(),
		"chart_cache_cap":    m.chartCache.Capacity(),
		"chart_cache_hits":   stats.Hits,
		"chart_cache_misses": stats.Misses,
		"query_cache_len":    m.queryCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.chartCache.Close()
}
