package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/repazoo/repscan/twitterapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeFetcher struct {
	timeline     []twitterapi.Tweet
	err          error
	ignoreSince  bool
	calls        int
	lastSinceID  string
	lastExternal string
}

func (f *fakeFetcher) FetchUserTweets(externalID string, sinceID string, limit int) ([]twitterapi.Tweet, error) {
	f.calls++
	f.lastExternal = externalID
	f.lastSinceID = sinceID
	if f.err != nil {
		return nil, f.err
	}
	var out []twitterapi.Tweet
	for _, tweet := range f.timeline {
		if !f.ignoreSince && sinceID != "" && comparePlatformIDs(tweet.Id, sinceID) <= 0 {
			continue
		}
		out = append(out, tweet)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeAnalyzer struct {
	verdict     *AnalysisVerdict
	err         error
	calls       int
	lastTweets  []TweetModel
	lastPurpose string
	lastContext string
}

func (f *fakeAnalyzer) Analyze(tweets []TweetModel, purpose string, customContext string) (*AnalysisVerdict, error) {
	f.calls++
	f.lastTweets = tweets
	f.lastPurpose = purpose
	f.lastContext = customContext
	if f.err != nil {
		return nil, f.err
	}
	verdict := *f.verdict
	return &verdict, nil
}

type scanFixture struct {
	db         *gorm.DB
	registry   *AccountRegistry
	tweets     *TweetStore
	watermarks *WatermarkTracker
	ledger     *AnalysisLedger
	results    *ResultStore
	fetcher    *fakeFetcher
	analyzer   *fakeAnalyzer
	policy     *CachePolicy
	service    *ScanService
	account    *AccountModel
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &scanFixture{
		db:         db,
		registry:   NewAccountRegistry(db),
		tweets:     NewTweetStore(db),
		watermarks: NewWatermarkTracker(db),
		ledger:     NewAnalysisLedger(db),
		results:    NewResultStore(db),
		fetcher:    &fakeFetcher{},
		analyzer: &fakeAnalyzer{verdict: &AnalysisVerdict{
			OverallScore: 82,
			RiskLevel:    RISK_LEVEL_LOW,
			Sentiment:    SENTIMENT_NEUTRAL,
			Summary:      "nothing remarkable",
		}},
		policy: NewCachePolicy(15*time.Minute, 30*24*time.Hour),
	}
	f.service = NewScanService(f.registry, f.tweets, f.watermarks, f.ledger, f.results, f.fetcher, f.analyzer, f.policy, 100)
	f.account = createTestAccount(t, db, "scan_user")
	return f
}

func apiTweet(id string) twitterapi.Tweet {
	return twitterapi.Tweet{
		Id:        id,
		Text:      "tweet " + id,
		CreatedAt: "Mon Aug 24 10:00:00 +0000 2026",
	}
}

func apiTimeline(newestFirst ...string) []twitterapi.Tweet {
	tweets := make([]twitterapi.Tweet, 0, len(newestFirst))
	for _, id := range newestFirst {
		tweets = append(tweets, apiTweet(id))
	}
	return tweets
}

// backdateSync ages the watermark's last_sync_at so the next decision sees a
// stale cache.
func backdateSync(t *testing.T, db *gorm.DB, accountID string, age time.Duration) {
	t.Helper()
	err := db.Model(&SyncWatermarkModel{}).Where("account_id = ?", accountID).
		Update("last_sync_at", time.Now().Add(-age)).Error
	require.NoError(t, err)
}

func TestScanColdFetchFirstRun(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110", "109", "108", "107", "106")

	outcome, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	assert.Equal(t, StrategyColdFetch, outcome.Stats.Strategy)
	assert.Equal(t, 5, outcome.Stats.NewTweetsFetched)
	assert.Equal(t, 5, outcome.Stats.NewTweetsAnalyzed)
	assert.Equal(t, 0, outcome.Stats.UsedCachedTweets)
	assert.False(t, outcome.Stats.CacheHit)
	assert.Equal(t, "", f.fetcher.lastSinceID)
	assert.Equal(t, f.account.ExternalID, f.fetcher.lastExternal)

	require.NotNil(t, outcome.Result)
	assert.Equal(t, 82.0, outcome.Result.OverallScore)
	assert.Equal(t, "general", outcome.Result.Purpose)

	watermark, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "110", watermark.NewestTweetID)
	assert.Equal(t, int64(5), watermark.TotalTweetsCached)
	require.NotNil(t, watermark.LastSyncAt)

	links, err := f.ledger.GetLinkCount(outcome.Result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), links)

	info, err := f.results.ReadCacheInfo(outcome.Result.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, info.NewTweetsAnalyzed)
	assert.Equal(t, 0, info.UsedCachedTweets)
	assert.Equal(t, StrategyColdFetch, info.Strategy)
}

func TestScanSecondRunIsCacheHit(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110", "109", "108")

	first, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)
	fetchCalls := f.fetcher.calls
	analyzeCalls := f.analyzer.calls

	second, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	assert.Equal(t, StrategyUseCache, second.Stats.Strategy)
	assert.True(t, second.Stats.CacheHit)
	assert.Equal(t, 0, second.Stats.NewTweetsFetched)
	assert.Equal(t, 0, second.Stats.NewTweetsAnalyzed)
	assert.Equal(t, 3, second.Stats.UsedCachedTweets)
	assert.Equal(t, first.Result.ID, second.Result.ID)
	assert.Equal(t, fetchCalls, f.fetcher.calls)
	assert.Equal(t, analyzeCalls, f.analyzer.calls)
}

func TestScanIncrementalFetchAnalyzesOnlyDelta(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110", "109", "108", "107", "106")

	first, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	// Twenty minutes later three new tweets exist.
	backdateSync(t, f.db, f.account.ID, 20*time.Minute)
	f.fetcher.timeline = apiTimeline("113", "112", "111", "110", "109", "108", "107", "106")

	second, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	assert.Equal(t, StrategyIncrementalFetch, second.Stats.Strategy)
	assert.Equal(t, "110", f.fetcher.lastSinceID)
	assert.Equal(t, 3, second.Stats.NewTweetsFetched)
	assert.Equal(t, 3, second.Stats.NewTweetsAnalyzed)
	assert.Equal(t, 5, second.Stats.UsedCachedTweets)
	assert.NotEqual(t, first.Result.ID, second.Result.ID)

	// The analyzer saw exactly the three new tweets.
	require.Len(t, f.analyzer.lastTweets, 3)
	seen := map[string]bool{}
	for _, tweet := range f.analyzer.lastTweets {
		seen[tweet.PlatformTweetID] = true
	}
	assert.True(t, seen["111"] && seen["112"] && seen["113"])

	watermark, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "113", watermark.NewestTweetID)
	assert.Equal(t, int64(8), watermark.TotalTweetsCached)

	count, err := f.tweets.GetTweetCount(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), count)
}

func TestScanCountsInsertedNotFetched(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110", "109", "108")

	_, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.NoError(t, err)

	// A backend that ignores sinceId re-sends the whole timeline. Dedup in
	// the store keeps the counts honest.
	backdateSync(t, f.db, f.account.ID, 20*time.Minute)
	f.fetcher.ignoreSince = true
	f.fetcher.timeline = apiTimeline("112", "111", "110", "109", "108")

	outcome, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Stats.NewTweetsFetched)
	assert.Equal(t, 2, outcome.Stats.NewTweetsAnalyzed)

	watermark, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), watermark.TotalTweetsCached)
}

func TestScanIncrementalNothingNewServesPriorResult(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110", "109")

	first, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	backdateSync(t, f.db, f.account.ID, 20*time.Minute)
	before, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)

	outcome, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	assert.Equal(t, StrategyIncrementalFetch, outcome.Stats.Strategy)
	assert.Equal(t, 0, outcome.Stats.NewTweetsFetched)
	assert.True(t, outcome.Stats.CacheHit)
	assert.Equal(t, 2, outcome.Stats.UsedCachedTweets)
	assert.Equal(t, first.Result.ID, outcome.Result.ID)

	// The empty fetch still refreshed the sync time without moving the cursor.
	after, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, before.NewestTweetID, after.NewestTweetID)
	assert.Equal(t, before.TotalTweetsCached, after.TotalTweetsCached)
	assert.True(t, after.LastSyncAt.After(*before.LastSyncAt))
}

func TestScanRateLimitedLeavesWatermarkUntouched(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110")

	_, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.NoError(t, err)

	backdateSync(t, f.db, f.account.ID, 20*time.Minute)
	before, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)

	f.fetcher.err = fmt.Errorf("error last user tweets: %w", twitterapi.ErrRateLimited)
	_, err = f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, twitterapi.ErrRateLimited))

	after, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, before.NewestTweetID, after.NewestTweetID)
	require.NotNil(t, after.LastSyncAt)
	assert.WithinDuration(t, *before.LastSyncAt, *after.LastSyncAt, time.Second)
}

func TestScanAuthExpiredMarksAccount(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.err = fmt.Errorf("error last user tweets: %w", twitterapi.ErrAuthExpired)

	_, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, twitterapi.ErrAuthExpired))

	account, err := f.registry.GetAccount(f.account.ID)
	require.NoError(t, err)
	assert.False(t, account.AuthValid)

	// With the credential already marked bad the next scan fails fast.
	calls := f.fetcher.calls
	_, err = f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, twitterapi.ErrAuthExpired))
	assert.Equal(t, calls, f.fetcher.calls)
}

func TestScanUnknownAccount(t *testing.T) {
	f := newScanFixture(t)
	_, err := f.service.Scan(context.Background(), ScanRequest{AccountID: "no-such-account"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestScanZeroTweetAccount(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = nil
	f.analyzer.verdict = &AnalysisVerdict{
		OverallScore: 50,
		RiskLevel:    RISK_LEVEL_MEDIUM,
		Sentiment:    SENTIMENT_NEUTRAL,
		Summary:      "no content to analyze",
	}

	outcome, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Stats.NewTweetsFetched)
	assert.Equal(t, 0, outcome.Stats.NewTweetsAnalyzed)
	require.NotNil(t, outcome.Result)

	// The empty fetch counts as a sync: watermark fresh, next run hits cache.
	watermark, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, watermark.LastSyncAt)
	assert.Empty(t, watermark.NewestTweetID)

	second, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.NoError(t, err)
	assert.Equal(t, StrategyUseCache, second.Stats.Strategy)
	assert.True(t, second.Stats.CacheHit)
	assert.Equal(t, outcome.Result.ID, second.Result.ID)
}

func TestScanUseCacheWithoutPriorResultAnalyzesWindow(t *testing.T) {
	f := newScanFixture(t)

	// Tweets arrived through the CSV importer moments ago, no result yet.
	_, err := f.tweets.UpsertTweets(f.account.ID, makeTestTweets(4, 500, time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	require.NoError(t, f.watermarks.AdvanceWatermark(f.account.ID, "503", time.Now(), 4))

	outcome, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	assert.Equal(t, StrategyUseCache, outcome.Stats.Strategy)
	assert.Equal(t, 0, f.fetcher.calls)
	assert.Equal(t, 1, f.analyzer.calls)
	assert.Equal(t, 0, outcome.Stats.NewTweetsFetched)
	assert.Equal(t, 4, outcome.Stats.NewTweetsAnalyzed)
	assert.False(t, outcome.Stats.CacheHit)
	require.NotNil(t, outcome.Result)
}

func TestScanPurposesAreIndependent(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110", "109", "108")

	general, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID, Purpose: "general"})
	require.NoError(t, err)

	employment, err := f.service.Scan(context.Background(), ScanRequest{
		AccountID:     f.account.ID,
		Purpose:       "employment",
		CustomContext: "hiring check",
	})
	require.NoError(t, err)

	assert.NotEqual(t, general.Result.ID, employment.Result.ID)
	assert.Equal(t, "employment", f.analyzer.lastPurpose)
	assert.Equal(t, "hiring check", f.analyzer.lastContext)
	// Cache was fresh, so the employment run fetched nothing but analyzed
	// the full window for its own purpose.
	assert.Equal(t, StrategyUseCache, employment.Stats.Strategy)
	assert.Equal(t, 3, employment.Stats.NewTweetsAnalyzed)

	latestGeneral, err := f.results.GetLatestResult(f.account.ID, "general")
	require.NoError(t, err)
	assert.Equal(t, general.Result.ID, latestGeneral.ID)
}

type flakyCacheInfoStore struct {
	*ResultStore
}

func (s *flakyCacheInfoStore) WriteCacheInfo(analysisResultID string, info CacheInfo) error {
	return fmt.Errorf("write cache info for result %s: %w", analysisResultID, errors.Join(ErrStorage, errors.New("disk full")))
}

func TestScanCacheInfoFailureDoesNotFailScan(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110", "109")
	f.service = NewScanService(f.registry, f.tweets, f.watermarks, f.ledger,
		&flakyCacheInfoStore{f.results}, f.fetcher, f.analyzer, f.policy, 100)

	outcome, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 2, outcome.Stats.NewTweetsAnalyzed)

	// The result landed, only the stamp is missing.
	stored, err := f.results.GetResult(outcome.Result.ID)
	require.NoError(t, err)
	assert.Equal(t, "{}", stored.CacheInfo)
}

func TestScanAnalyzerFailure(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110")
	f.analyzer.err = errors.New("model overloaded")

	_, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")

	// Fetched tweets stay cached and the watermark stays advanced, the retry
	// will analyze them without refetching.
	count, err := f.tweets.GetTweetCount(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	watermark, err := f.watermarks.GetWatermark(f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, watermark.LastSyncAt)
}

func TestScanCanceledContext(t *testing.T) {
	f := newScanFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Scan(ctx, ScanRequest{AccountID: f.account.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, f.fetcher.calls)
}

func TestScanDefaultsPurpose(t *testing.T) {
	f := newScanFixture(t)
	f.fetcher.timeline = apiTimeline("110")

	outcome, err := f.service.Scan(context.Background(), ScanRequest{AccountID: f.account.ID})
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_SCAN_PURPOSE, outcome.Result.Purpose)
	assert.Equal(t, DEFAULT_SCAN_PURPOSE, f.analyzer.lastPurpose)
}
