package venue

import (
	"sort"
	"strings"
	"sync"
)

// GeocodeResult 一次外部地理编码的结果
type GeocodeResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Address   string  `json:"address"`
}

// GeocodeCacheEntry 缓存项，写入后不再修改
type GeocodeCacheEntry struct {
	Key    string
	Result GeocodeResult
}

// CacheStats 缓存统计
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// GeocodeCache 地理编码缓存，显式对象，由 Geocoder 持有；并发安全
type GeocodeCache struct {
	mu      sync.RWMutex
	entries map[string]GeocodeCacheEntry
}

func NewGeocodeCache() *GeocodeCache {
	return &GeocodeCache{entries: make(map[string]GeocodeCacheEntry)}
}

// CacheKey (场地名, 地址, 城市) 规范化后的签名
func CacheKey(name, address, city string) string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return norm(name) + "|" + norm(address) + "|" + norm(city)
}

func (c *GeocodeCache) Get(key string) (GeocodeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.Result, ok
}

// Put 已存在则保留旧值并返回它（缓存项不可变）
func (c *GeocodeCache) Put(key string, result GeocodeResult) GeocodeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.Result
	}
	c.entries[key] = GeocodeCacheEntry{Key: key, Result: result}
	return result
}

// Clear 清空缓存（一次运行结束或手动触发）
func (c *GeocodeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]GeocodeCacheEntry)
}

func (c *GeocodeCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return CacheStats{Size: len(keys), Keys: keys}
}
