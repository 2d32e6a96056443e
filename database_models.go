package main

import (
	"time"
)

// AccountModel is a connected Twitter/X account owned by a Repazoo user.
type AccountModel struct {
	ID          string    `gorm:"primaryKey;column:id" json:"id"`
	ExternalID  string    `gorm:"column:external_id;uniqueIndex" json:"external_id"` // Platform user ID
	Handle      string    `gorm:"column:handle;index" json:"handle"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	AuthValid   bool      `gorm:"column:auth_valid;default:true" json:"auth_valid"`
	AutoScan    bool      `gorm:"column:auto_scan;default:false" json:"auto_scan"`
	ScanPurpose string    `gorm:"column:scan_purpose" json:"scan_purpose"` // Purpose used by scheduled scans
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

// TweetModel is a captured tweet. Rows are immutable once stored, dedup
// runs on (account_id, platform_tweet_id).
type TweetModel struct {
	ID              string        `gorm:"primaryKey;column:id" json:"id"`
	AccountID       string        `gorm:"column:account_id;index;uniqueIndex:idx_account_platform_tweet,priority:1" json:"account_id"`
	PlatformTweetID string        `gorm:"column:platform_tweet_id;uniqueIndex:idx_account_platform_tweet,priority:2" json:"platform_tweet_id"`
	Content         string        `gorm:"column:content" json:"content"`
	LikeCount       int           `gorm:"column:like_count" json:"like_count"`
	ReplyCount      int           `gorm:"column:reply_count" json:"reply_count"`
	RetweetCount    int           `gorm:"column:retweet_count" json:"retweet_count"`
	Source          string        `gorm:"column:source;index" json:"source"` // "api_fetch" or "csv_import"
	CreatedAt       time.Time     `gorm:"column:created_at" json:"created_at"` // Platform timestamp
	FetchedAt       time.Time     `gorm:"column:fetched_at" json:"fetched_at"` // Local capture timestamp
	Account         *AccountModel `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (TweetModel) TableName() string {
	return "tweets"
}

// SyncWatermarkModel is the per-account fetch cursor. One row per account,
// created implicitly on the first sync attempt. Nil LastSyncAt means the
// account was never synced.
type SyncWatermarkModel struct {
	AccountID         string        `gorm:"primaryKey;column:account_id" json:"account_id"`
	NewestTweetID     string        `gorm:"column:newest_tweet_id" json:"newest_tweet_id"`
	LastSyncAt        *time.Time    `gorm:"column:last_sync_at" json:"last_sync_at"`
	TotalTweetsCached int64         `gorm:"column:total_tweets_cached;default:0" json:"total_tweets_cached"`
	CreatedAt         time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"column:updated_at" json:"updated_at"`
	Account           *AccountModel `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SyncWatermarkModel) TableName() string {
	return "sync_watermarks"
}

// AnalysisResultModel is the stored outcome of one reputation analysis run.
// CacheInfo is a JSON object the cache layer merges effectiveness stats into.
type AnalysisResultModel struct {
	ID              string        `gorm:"primaryKey;column:id" json:"id"`
	AccountID       string        `gorm:"column:account_id;index" json:"account_id"`
	Purpose         string        `gorm:"column:purpose;index" json:"purpose"`
	OverallScore    float64       `gorm:"column:overall_score" json:"overall_score"` // 0-100, higher is safer
	RiskLevel       string        `gorm:"column:risk_level;index" json:"risk_level"`
	Sentiment       string        `gorm:"column:sentiment" json:"sentiment"`
	Summary         string        `gorm:"column:summary" json:"summary"`
	FlaggedTweetIDs string        `gorm:"column:flagged_tweet_ids" json:"flagged_tweet_ids,omitempty"` // JSON array of platform tweet ids
	CustomContext   string        `gorm:"column:custom_context" json:"custom_context,omitempty"`
	CacheInfo       string        `gorm:"column:cache_info" json:"cache_info"`
	CreatedAt       time.Time     `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"column:updated_at" json:"updated_at"`
	Account         *AccountModel `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AnalysisResultModel) TableName() string {
	return "analysis_results"
}

// TweetAnalysisModel links a tweet to an analysis run it was included in.
// A tweet may appear in many analyses but at most once per analysis result.
// Purpose is denormalized from the parent result for query convenience.
type TweetAnalysisModel struct {
	ID               uint                 `gorm:"primaryKey;autoIncrement" json:"id"`
	TweetID          string               `gorm:"column:tweet_id;index;uniqueIndex:idx_tweet_analysis,priority:1" json:"tweet_id"`
	AnalysisResultID string               `gorm:"column:analysis_result_id;index;uniqueIndex:idx_tweet_analysis,priority:2" json:"analysis_result_id"`
	Purpose          string               `gorm:"column:purpose;index" json:"purpose"`
	AnalyzedAt       time.Time            `gorm:"column:analyzed_at;index" json:"analyzed_at"`
	CreatedAt        time.Time            `gorm:"column:created_at" json:"created_at"`
	Tweet            *TweetModel          `gorm:"foreignKey:TweetID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	AnalysisResult   *AnalysisResultModel `gorm:"foreignKey:AnalysisResultID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (TweetAnalysisModel) TableName() string {
	return "tweet_analyses"
}
