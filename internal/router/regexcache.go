package router

import (
	"regexp"
	"sync"
)

// regexCacheMaxSize is the maximum number of entries in the regex cache.
const regexCacheMaxSize = 1000

// regexCacheEntry holds a compiled regex and its access order for LRU eviction.
type regexCacheEntry struct {
	regex       *regexp.Regexp
	accessOrder int64
}

// regexCache is a bounded LRU of compiled expressions, shared by every
// router in the process. Many routes share a host or constraint
// expression, and reloads recompile the whole table.
var (
	regexCache         = make(map[string]*regexCacheEntry)
	regexCacheMu       sync.Mutex
	regexAccessCounter int64
)

// compileRegex returns the compiled form of expr, from the cache when
// possible.
func compileRegex(expr string) (*regexp.Regexp, error) {
	metrics := getRouterMetrics()

	regexCacheMu.Lock()
	if entry, ok := regexCache[expr]; ok {
		regexAccessCounter++
		entry.accessOrder = regexAccessCounter
		regexCacheMu.Unlock()

		metrics.regexCacheHits.Inc()
		return entry.regex, nil
	}
	regexCacheMu.Unlock()

	metrics.regexCacheMisses.Inc()

	// Compile outside the lock.
	regex, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()

	// Another goroutine may have added it meanwhile.
	if existing, exists := regexCache[expr]; exists {
		regexAccessCounter++
		existing.accessOrder = regexAccessCounter
		return existing.regex, nil
	}

	if len(regexCache) >= regexCacheMaxSize {
		evictLRURegexEntry()
		metrics.regexCacheEvictions.Inc()
	}

	regexAccessCounter++
	regexCache[expr] = &regexCacheEntry{
		regex:       regex,
		accessOrder: regexAccessCounter,
	}
	metrics.regexCacheSize.Set(float64(len(regexCache)))

	return regex, nil
}

// evictLRURegexEntry removes the least recently used entry from the cache.
// Must be called with regexCacheMu held.
func evictLRURegexEntry() {
	var lruKey string
	var lruOrder int64 = -1

	for key, entry := range regexCache {
		if lruOrder == -1 || entry.accessOrder < lruOrder {
			lruOrder = entry.accessOrder
			lruKey = key
		}
	}

	if lruKey != "" {
		delete(regexCache, lruKey)
	}
}

// regexCacheLen returns the number of cached expressions.
func regexCacheLen() int {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	return len(regexCache)
}
