package main

import "time"

// FetchStrategy tells the scan how to source tweets for an account.
type FetchStrategy string

const (
	// StrategyColdFetch pulls a full recent page, used for accounts never
	// synced or whose cache aged past the expiry window.
	StrategyColdFetch FetchStrategy = "cold_fetch"
	// StrategyIncrementalFetch pulls only tweets newer than the watermark.
	StrategyIncrementalFetch FetchStrategy = "incremental_fetch"
	// StrategyUseCache skips fetching entirely, the cache is fresh enough.
	StrategyUseCache FetchStrategy = "use_cache"
)

// CachePolicy decides between a cold fetch, an incremental fetch and serving
// straight from cache. Pure function of the watermark and the clock, no I/O.
type CachePolicy struct {
	// StalenessThreshold is how old a sync may get before an incremental
	// fetch is warranted.
	StalenessThreshold time.Duration
	// CacheExpiry is the absolute age past which the cache is distrusted
	// and repopulated from scratch.
	CacheExpiry time.Duration
}

func NewCachePolicy(stalenessThreshold, cacheExpiry time.Duration) *CachePolicy {
	if stalenessThreshold <= 0 {
		stalenessThreshold = time.Duration(DEFAULT_STALENESS_MINUTES) * time.Minute
	}
	if cacheExpiry <= 0 {
		cacheExpiry = time.Duration(DEFAULT_CACHE_EXPIRY_DAYS) * 24 * time.Hour
	}
	return &CachePolicy{
		StalenessThreshold: stalenessThreshold,
		CacheExpiry:        cacheExpiry,
	}
}

// Decide picks the fetch strategy for one account. The rules, in order:
// never synced or synced before the expiry window starts means cold fetch,
// synced but older than the staleness threshold means incremental fetch,
// anything fresher means use the cache as is. A zero tweet count with a
// recent sync is still a fresh cache, only timestamps drive the decision.
func (p *CachePolicy) Decide(watermark *SyncWatermarkModel, now time.Time) FetchStrategy {
	if watermark == nil || watermark.LastSyncAt == nil {
		return StrategyColdFetch
	}

	age := now.Sub(*watermark.LastSyncAt)
	if age > p.CacheExpiry {
		return StrategyColdFetch
	}
	if age > p.StalenessThreshold {
		return StrategyIncrementalFetch
	}
	return StrategyUseCache
}
