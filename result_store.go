package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CacheInfo is the per-run cache accounting stamped onto an analysis result.
// It lives inside the result's cache_info JSON document next to whatever
// other subsystems write there.
type CacheInfo struct {
	NewTweetsAnalyzed int           `json:"new_tweets_analyzed"`
	UsedCachedTweets  int           `json:"used_cached_tweets"`
	Strategy          FetchStrategy `json:"strategy"`
}

// ResultStore persists analysis results and their cache metadata.
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(db *gorm.DB) *ResultStore {
	return &ResultStore{db: db}
}

// SaveResult persists a new analysis result, assigning an ID when missing.
func (s *ResultStore) SaveResult(result *AnalysisResultModel) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CacheInfo == "" {
		result.CacheInfo = "{}"
	}
	if err := s.db.Create(result).Error; err != nil {
		return fmt.Errorf("save analysis result for account %s: %w", result.AccountID, errors.Join(ErrStorage, err))
	}
	return nil
}

// GetResult retrieves an analysis result by ID.
func (s *ResultStore) GetResult(id string) (*AnalysisResultModel, error) {
	var result AnalysisResultModel
	err := s.db.Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("analysis result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis result %s: %w", id, errors.Join(ErrStorage, err))
	}
	return &result, nil
}

// GetLatestResult returns the most recent analysis result for an account and
// purpose, or ErrNotFound when the pair was never analyzed.
func (s *ResultStore) GetLatestResult(accountID, purpose string) (*AnalysisResultModel, error) {
	var result AnalysisResultModel
	err := s.db.Where("account_id = ? AND purpose = ?", accountID, purpose).
		Order("created_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("latest analysis result for account %s purpose %s: %w", accountID, purpose, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest analysis result for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	return &result, nil
}

// GetRecentResults returns up to limit results for an account, newest first.
func (s *ResultStore) GetRecentResults(accountID string, limit int) ([]AnalysisResultModel, error) {
	var results []AnalysisResultModel
	query := s.db.Where("account_id = ?", accountID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("get recent results for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	return results, nil
}

// WriteCacheInfo merges the run's cache accounting into the result's
// cache_info document. Keys written by other writers survive the merge. An
// unreadable existing document is replaced rather than failing the write.
func (s *ResultStore) WriteCacheInfo(analysisResultID string, info CacheInfo) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var result AnalysisResultModel
		err := tx.Where("id = ?", analysisResultID).First(&result).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("analysis result %s: %w", analysisResultID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get analysis result %s: %w", analysisResultID, errors.Join(ErrStorage, err))
		}

		merged := map[string]interface{}{}
		if result.CacheInfo != "" {
			if err := json.Unmarshal([]byte(result.CacheInfo), &merged); err != nil {
				merged = map[string]interface{}{}
			}
		}
		merged["new_tweets_analyzed"] = info.NewTweetsAnalyzed
		merged["used_cached_tweets"] = info.UsedCachedTweets
		merged["strategy"] = string(info.Strategy)

		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("marshal cache info for result %s: %w", analysisResultID, err)
		}

		err = tx.Model(&AnalysisResultModel{}).
			Where("id = ?", analysisResultID).
			Update("cache_info", string(data)).Error
		if err != nil {
			return fmt.Errorf("write cache info for result %s: %w", analysisResultID, errors.Join(ErrStorage, err))
		}
		return nil
	})
}

// ReadCacheInfo decodes the run accounting back out of a result.
func (s *ResultStore) ReadCacheInfo(analysisResultID string) (*CacheInfo, error) {
	result, err := s.GetResult(analysisResultID)
	if err != nil {
		return nil, err
	}
	var info CacheInfo
	if result.CacheInfo != "" {
		if err := json.Unmarshal([]byte(result.CacheInfo), &info); err != nil {
			return nil, fmt.Errorf("decode cache info for result %s: %w", analysisResultID, err)
		}
	}
	return &info, nil
}
