package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TweetStore is the durable, deduplicated tweet cache. Captured tweets are
// immutable, conflicting upserts leave the stored row untouched.
type TweetStore struct {
	db *gorm.DB
}

func NewTweetStore(db *gorm.DB) *TweetStore {
	return &TweetStore{db: db}
}

// UpsertTweets inserts tweets for an account, deduplicating on
// (account_id, platform_tweet_id). Returns the number of rows actually
// inserted, which can be less than len(tweets) when some were cached before.
func (s *TweetStore) UpsertTweets(accountID string, tweets []TweetModel) (int, error) {
	if err := s.ensureAccount(accountID); err != nil {
		return 0, err
	}
	if len(tweets) == 0 {
		return 0, nil
	}

	now := time.Now()
	for i := range tweets {
		if tweets[i].ID == "" {
			tweets[i].ID = uuid.New().String()
		}
		tweets[i].AccountID = accountID
		if tweets[i].FetchedAt.IsZero() {
			tweets[i].FetchedAt = now
		}
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "platform_tweet_id"}},
		DoNothing: true,
	}).CreateInBatches(&tweets, 200)
	if result.Error != nil {
		return 0, fmt.Errorf("upsert tweets for account %s: %w", accountID, errors.Join(ErrStorage, result.Error))
	}

	return int(result.RowsAffected), nil
}

// GetTweetsSince returns cached tweets with a platform ID newer than
// sincePlatformID, newest first. An empty sincePlatformID returns up to
// limit most recent tweets, the cold start case.
func (s *TweetStore) GetTweetsSince(accountID string, sincePlatformID string, limit int) ([]TweetModel, error) {
	if err := s.ensureAccount(accountID); err != nil {
		return nil, err
	}

	query := s.db.Where("account_id = ?", accountID)
	if sincePlatformID != "" {
		query = query.Where("CAST(platform_tweet_id AS INTEGER) > CAST(? AS INTEGER)", sincePlatformID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var tweets []TweetModel
	err := query.Order("CAST(platform_tweet_id AS INTEGER) DESC").Find(&tweets).Error
	if err != nil {
		return nil, fmt.Errorf("get tweets for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	return tweets, nil
}

// GetTweet retrieves a cached tweet by internal ID.
func (s *TweetStore) GetTweet(id string) (*TweetModel, error) {
	var tweet TweetModel
	err := s.db.Where("id = ?", id).First(&tweet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tweet %s: %w", id, errors.Join(ErrStorage, err))
	}
	return &tweet, nil
}

// GetTweetByPlatformID retrieves a cached tweet by its platform ID within
// one account, the natural key of the cache.
func (s *TweetStore) GetTweetByPlatformID(accountID, platformTweetID string) (*TweetModel, error) {
	var tweet TweetModel
	err := s.db.Where("account_id = ? AND platform_tweet_id = ?", accountID, platformTweetID).First(&tweet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("tweet %s for account %s: %w", platformTweetID, accountID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tweet %s for account %s: %w", platformTweetID, accountID, errors.Join(ErrStorage, err))
	}
	return &tweet, nil
}

// TweetExists checks whether a platform tweet is already cached for the account.
func (s *TweetStore) TweetExists(accountID, platformTweetID string) bool {
	var count int64
	s.db.Model(&TweetModel{}).
		Where("account_id = ? AND platform_tweet_id = ?", accountID, platformTweetID).
		Count(&count)
	return count > 0
}

// GetTweetCount returns the number of cached tweets for one account.
func (s *TweetStore) GetTweetCount(accountID string) (int64, error) {
	var count int64
	err := s.db.Model(&TweetModel{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

func (s *TweetStore) ensureAccount(accountID string) error {
	var count int64
	err := s.db.Model(&AccountModel{}).Where("id = ?", accountID).Count(&count).Error
	if err != nil {
		return fmt.Errorf("check account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	if count == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}
