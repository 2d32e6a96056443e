package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/repazoo/repscan/twitterapi"
)

// tweetFetcher and reputationAnalyzer are the two collaborators backed by
// external APIs, kept behind small interfaces so scan tests can fake them.
type tweetFetcher interface {
	FetchUserTweets(externalID string, sinceID string, limit int) ([]twitterapi.Tweet, error)
}

type reputationAnalyzer interface {
	Analyze(tweets []TweetModel, purpose string, customContext string) (*AnalysisVerdict, error)
}

// resultStore is what the scan needs from result persistence. An interface so
// tests can fail the best-effort cache stamp without touching the real store.
type resultStore interface {
	SaveResult(result *AnalysisResultModel) error
	GetResult(id string) (*AnalysisResultModel, error)
	GetLatestResult(accountID, purpose string) (*AnalysisResultModel, error)
	WriteCacheInfo(analysisResultID string, info CacheInfo) error
}

type ScanRequest struct {
	AccountID     string
	Purpose       string
	CustomContext string
	Source        string
}

// ScanStats is the cache accounting for one scan run.
type ScanStats struct {
	Strategy          FetchStrategy
	NewTweetsFetched  int
	NewTweetsAnalyzed int
	UsedCachedTweets  int
	CacheHit          bool
}

type ScanOutcome struct {
	Result *AnalysisResultModel
	Stats  ScanStats
}

// ScanService runs the incremental scan pipeline: decide how to source
// tweets, fetch what is missing, advance the watermark, analyze only the
// tweets no prior run of this purpose covered, and stamp cache accounting
// onto the stored result.
type ScanService struct {
	registry   *AccountRegistry
	tweets     *TweetStore
	watermarks *WatermarkTracker
	ledger     *AnalysisLedger
	results    resultStore
	fetcher    tweetFetcher
	analyzer   reputationAnalyzer
	policy     *CachePolicy
	fetchLimit int
}

func NewScanService(registry *AccountRegistry, tweets *TweetStore, watermarks *WatermarkTracker, ledger *AnalysisLedger, results resultStore, fetcher tweetFetcher, analyzer reputationAnalyzer, policy *CachePolicy, fetchLimit int) *ScanService {
	if fetchLimit <= 0 {
		fetchLimit = DEFAULT_FETCH_PAGE_SIZE
	}
	return &ScanService{
		registry:   registry,
		tweets:     tweets,
		watermarks: watermarks,
		ledger:     ledger,
		results:    results,
		fetcher:    fetcher,
		analyzer:   analyzer,
		policy:     policy,
		fetchLimit: fetchLimit,
	}
}

func (s *ScanService) Scan(ctx context.Context, request ScanRequest) (*ScanOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if request.Purpose == "" {
		request.Purpose = DEFAULT_SCAN_PURPOSE
	}

	account, err := s.registry.GetAccount(request.AccountID)
	if err != nil {
		return nil, err
	}

	watermark, err := s.watermarks.GetWatermark(account.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	strategy := s.policy.Decide(watermark, now)
	stats := ScanStats{Strategy: strategy}
	log.Printf("Scan account %s (@%s) purpose=%s strategy=%s", account.ID, account.Handle, request.Purpose, strategy)

	if strategy == StrategyUseCache {
		cached, err := s.results.GetLatestResult(account.ID, request.Purpose)
		if err == nil && now.Sub(cached.CreatedAt) <= s.policy.StalenessThreshold {
			window, err := s.tweets.GetTweetsSince(account.ID, "", s.fetchLimit)
			if err != nil {
				return nil, err
			}
			stats.CacheHit = true
			stats.UsedCachedTweets = len(window)
			log.Printf("Scan account %s: cache hit, serving result %s", account.ID, cached.ID)
			return &ScanOutcome{Result: cached, Stats: stats}, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	} else {
		fetched, err := s.fetchTweets(account, watermark, strategy)
		if err != nil {
			return nil, err
		}

		inserted, err := s.tweets.UpsertTweets(account.ID, tweetModelsFromAPI(fetched, TWEET_SOURCE_API))
		if err != nil {
			return nil, err
		}
		stats.NewTweetsFetched = inserted

		// The watermark advances after every successful fetch. A fetch that
		// found nothing new still refreshes last_sync_at so the next scan
		// within the staleness threshold serves from cache.
		err = s.watermarks.AdvanceWatermark(account.ID, newestPlatformID(fetched), time.Now(), inserted)
		if err != nil {
			return nil, err
		}
		log.Printf("Scan account %s: fetched %d tweets, %d newly cached", account.ID, len(fetched), inserted)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	window, err := s.tweets.GetTweetsSince(account.ID, "", s.fetchLimit)
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-s.policy.CacheExpiry)
	alreadyAnalyzed, err := s.ledger.GetAnalyzedTweetIDs(account.ID, request.Purpose, cutoff)
	if err != nil {
		return nil, err
	}

	delta := make([]TweetModel, 0, len(window))
	for _, tweet := range window {
		if !alreadyAnalyzed[tweet.ID] {
			delta = append(delta, tweet)
		}
	}

	if len(delta) == 0 {
		cached, err := s.results.GetLatestResult(account.ID, request.Purpose)
		if err == nil {
			stats.CacheHit = true
			stats.UsedCachedTweets = len(window)
			log.Printf("Scan account %s: nothing new to analyze, serving result %s", account.ID, cached.ID)
			return &ScanOutcome{Result: cached, Stats: stats}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// No prior result at all, run the analysis on the empty window so
		// the scan still yields a verdict for a quiet account.
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verdict, err := s.analyzer.Analyze(delta, request.Purpose, request.CustomContext)
	if err != nil {
		return nil, fmt.Errorf("analyze account %s: %w", account.ID, err)
	}

	flaggedJSON := ""
	if len(verdict.FlaggedTweetIDs) > 0 {
		data, _ := json.Marshal(verdict.FlaggedTweetIDs)
		flaggedJSON = string(data)
	}

	result := &AnalysisResultModel{
		AccountID:       account.ID,
		Purpose:         request.Purpose,
		OverallScore:    verdict.OverallScore,
		RiskLevel:       verdict.RiskLevel,
		Sentiment:       verdict.Sentiment,
		Summary:         verdict.Summary,
		FlaggedTweetIDs: flaggedJSON,
		CustomContext:   request.CustomContext,
	}
	if err := s.results.SaveResult(result); err != nil {
		return nil, err
	}

	deltaIDs := make([]string, 0, len(delta))
	for _, tweet := range delta {
		deltaIDs = append(deltaIDs, tweet.ID)
	}
	if err := s.ledger.RecordAnalyzedTweets(result.ID, request.Purpose, deltaIDs); err != nil {
		return nil, err
	}

	stats.NewTweetsAnalyzed = len(delta)
	stats.UsedCachedTweets = len(window) - len(delta)

	// Cache accounting is best effort, a failed stamp never fails the scan.
	err = s.results.WriteCacheInfo(result.ID, CacheInfo{
		NewTweetsAnalyzed: stats.NewTweetsAnalyzed,
		UsedCachedTweets:  stats.UsedCachedTweets,
		Strategy:          stats.Strategy,
	})
	if err != nil {
		log.Printf("error writing cache info for result %s: %s", result.ID, err)
	} else if stored, readErr := s.results.GetResult(result.ID); readErr == nil {
		result.CacheInfo = stored.CacheInfo
	}

	log.Printf("Scan account %s: analyzed %d new tweets, %d served from cache, score %.1f (%s)",
		account.ID, stats.NewTweetsAnalyzed, stats.UsedCachedTweets, result.OverallScore, result.RiskLevel)

	return &ScanOutcome{Result: result, Stats: stats}, nil
}

func (s *ScanService) fetchTweets(account *AccountModel, watermark *SyncWatermarkModel, strategy FetchStrategy) ([]twitterapi.Tweet, error) {
	if !account.AuthValid {
		return nil, fmt.Errorf("account %s credential marked invalid: %w", account.ID, twitterapi.ErrAuthExpired)
	}

	sinceID := ""
	if strategy == StrategyIncrementalFetch {
		sinceID = watermark.NewestTweetID
	}

	fetched, err := s.fetcher.FetchUserTweets(account.ExternalID, sinceID, s.fetchLimit)
	if err != nil {
		if errors.Is(err, twitterapi.ErrAuthExpired) {
			if markErr := s.registry.MarkAuthExpired(account.ID); markErr != nil {
				log.Printf("error marking account %s auth expired: %s", account.ID, markErr)
			}
		}
		return nil, fmt.Errorf("scan fetch for account %s: %w", account.ID, err)
	}
	return fetched, nil
}
