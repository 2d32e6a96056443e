package main

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStoreSaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewResultStore(db)
	account := createTestAccount(t, db, "result_user")

	result := &AnalysisResultModel{
		AccountID:    account.ID,
		Purpose:      "general",
		OverallScore: 71.0,
		RiskLevel:    RISK_LEVEL_MEDIUM,
		Sentiment:    SENTIMENT_MIXED,
		Summary:      "a few heated replies",
	}
	require.NoError(t, store.SaveResult(result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "{}", result.CacheInfo)

	found, err := store.GetResult(result.ID)
	require.NoError(t, err)
	assert.Equal(t, 71.0, found.OverallScore)
	assert.Equal(t, RISK_LEVEL_MEDIUM, found.RiskLevel)

	_, err = store.GetResult("no-such-result")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResultStoreGetLatest(t *testing.T) {
	db := setupTestDB(t)
	store := NewResultStore(db)
	account := createTestAccount(t, db, "latest_user")

	older := &AnalysisResultModel{
		AccountID: account.ID,
		Purpose:   "general",
		RiskLevel: RISK_LEVEL_LOW,
		Summary:   "older run",
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.SaveResult(older))

	newer := &AnalysisResultModel{
		AccountID: account.ID,
		Purpose:   "general",
		RiskLevel: RISK_LEVEL_LOW,
		Summary:   "newer run",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveResult(newer))

	otherPurpose := &AnalysisResultModel{
		AccountID: account.ID,
		Purpose:   "employment",
		RiskLevel: RISK_LEVEL_LOW,
		Summary:   "employment run",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveResult(otherPurpose))

	latest, err := store.GetLatestResult(account.ID, "general")
	require.NoError(t, err)
	assert.Equal(t, "newer run", latest.Summary)

	latest, err = store.GetLatestResult(account.ID, "employment")
	require.NoError(t, err)
	assert.Equal(t, "employment run", latest.Summary)

	_, err = store.GetLatestResult(account.ID, "political")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	recent, err := store.GetRecentResults(account.ID, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestResultStoreWriteCacheInfo(t *testing.T) {
	db := setupTestDB(t)
	store := NewResultStore(db)
	account := createTestAccount(t, db, "cacheinfo_user")

	t.Run("MergePreservesForeignKeys", func(t *testing.T) {
		result := &AnalysisResultModel{
			AccountID: account.ID,
			Purpose:   "general",
			RiskLevel: RISK_LEVEL_LOW,
			CacheInfo: `{"model_version":"v3","pipeline":"batch"}`,
		}
		require.NoError(t, store.SaveResult(result))

		err := store.WriteCacheInfo(result.ID, CacheInfo{
			NewTweetsAnalyzed: 12,
			UsedCachedTweets:  88,
			Strategy:          StrategyIncrementalFetch,
		})
		require.NoError(t, err)

		stored, err := store.GetResult(result.ID)
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(stored.CacheInfo), &raw))
		assert.Equal(t, "v3", raw["model_version"])
		assert.Equal(t, "batch", raw["pipeline"])
		assert.Equal(t, float64(12), raw["new_tweets_analyzed"])
		assert.Equal(t, float64(88), raw["used_cached_tweets"])
		assert.Equal(t, "incremental_fetch", raw["strategy"])

		info, err := store.ReadCacheInfo(result.ID)
		require.NoError(t, err)
		assert.Equal(t, 12, info.NewTweetsAnalyzed)
		assert.Equal(t, 88, info.UsedCachedTweets)
		assert.Equal(t, StrategyIncrementalFetch, info.Strategy)
	})

	t.Run("RepeatedWriteOverwritesOwnKeys", func(t *testing.T) {
		result := &AnalysisResultModel{AccountID: account.ID, Purpose: "general", RiskLevel: RISK_LEVEL_LOW}
		require.NoError(t, store.SaveResult(result))

		require.NoError(t, store.WriteCacheInfo(result.ID, CacheInfo{NewTweetsAnalyzed: 5, Strategy: StrategyColdFetch}))
		require.NoError(t, store.WriteCacheInfo(result.ID, CacheInfo{NewTweetsAnalyzed: 0, UsedCachedTweets: 5, Strategy: StrategyUseCache}))

		info, err := store.ReadCacheInfo(result.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, info.NewTweetsAnalyzed)
		assert.Equal(t, 5, info.UsedCachedTweets)
		assert.Equal(t, StrategyUseCache, info.Strategy)
	})

	t.Run("CorruptDocumentIsReplaced", func(t *testing.T) {
		result := &AnalysisResultModel{AccountID: account.ID, Purpose: "general", RiskLevel: RISK_LEVEL_LOW}
		require.NoError(t, store.SaveResult(result))

		err := db.Model(&AnalysisResultModel{}).Where("id = ?", result.ID).
			Update("cache_info", "{not json").Error
		require.NoError(t, err)

		require.NoError(t, store.WriteCacheInfo(result.ID, CacheInfo{NewTweetsAnalyzed: 3, Strategy: StrategyColdFetch}))

		info, err := store.ReadCacheInfo(result.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, info.NewTweetsAnalyzed)
	})

	t.Run("UnknownResult", func(t *testing.T) {
		err := store.WriteCacheInfo("no-such-result", CacheInfo{Strategy: StrategyUseCache})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
