package main

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatermarkTracker maintains the per-account sync cursor: the newest platform
// tweet ID seen, the last successful sync time and a running count of cached
// tweets. The cursor only moves forward, concurrent advances lose nothing.
type WatermarkTracker struct {
	db *gorm.DB
}

func NewWatermarkTracker(db *gorm.DB) *WatermarkTracker {
	return &WatermarkTracker{db: db}
}

// GetWatermark returns the sync cursor for an account. An account that was
// never synced yields a zero watermark (nil LastSyncAt, empty NewestTweetID,
// zero count) rather than an error.
func (t *WatermarkTracker) GetWatermark(accountID string) (*SyncWatermarkModel, error) {
	if err := t.ensureAccount(accountID); err != nil {
		return nil, err
	}

	var watermark SyncWatermarkModel
	err := t.db.Where("account_id = ?", accountID).First(&watermark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &SyncWatermarkModel{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watermark for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	return &watermark, nil
}

// AdvanceWatermark records a completed sync. newestTweetID only replaces the
// stored cursor when it is numerically larger, newlyCached is added to the
// running total and last_sync_at is always set. Both happen in one UPDATE so
// concurrent advances on the same account keep the larger ID and the sum of
// both counts. An empty newestTweetID (fetch returned nothing new) still
// refreshes last_sync_at.
func (t *WatermarkTracker) AdvanceWatermark(accountID string, newestTweetID string, syncedAt time.Time, newlyCached int) error {
	if err := t.ensureAccount(accountID); err != nil {
		return err
	}

	err := t.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&SyncWatermarkModel{AccountID: accountID}).Error
	if err != nil {
		return fmt.Errorf("init watermark for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}

	updates := map[string]interface{}{
		"last_sync_at":        syncedAt,
		"total_tweets_cached": gorm.Expr("total_tweets_cached + ?", newlyCached),
		"updated_at":          time.Now(),
	}
	if newestTweetID != "" {
		updates["newest_tweet_id"] = gorm.Expr(
			"CASE WHEN newest_tweet_id IS NULL OR newest_tweet_id = '' OR CAST(? AS INTEGER) > CAST(newest_tweet_id AS INTEGER) THEN ? ELSE newest_tweet_id END",
			newestTweetID, newestTweetID,
		)
	}

	err = t.db.Model(&SyncWatermarkModel{}).Where("account_id = ?", accountID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("advance watermark for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	return nil
}

// ResetWatermark clears the cursor back to the never-synced state. Used when
// an account is disconnected and later reconnected.
func (t *WatermarkTracker) ResetWatermark(accountID string) error {
	if err := t.ensureAccount(accountID); err != nil {
		return err
	}

	err := t.db.Model(&SyncWatermarkModel{}).Where("account_id = ?", accountID).Updates(map[string]interface{}{
		"newest_tweet_id":     "",
		"last_sync_at":        nil,
		"total_tweets_cached": 0,
		"updated_at":          time.Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("reset watermark for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	return nil
}

func (t *WatermarkTracker) ensureAccount(accountID string) error {
	var count int64
	err := t.db.Model(&AccountModel{}).Where("id = ?", accountID).Count(&count).Error
	if err != nil {
		return fmt.Errorf("check account %s: %w", accountID, errors.Join(ErrStorage, err))
	}
	if count == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}
