package main

import (
	"time"
)

// ScanRunLogModel tracks every scan run lifecycle
type ScanRunLogModel struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	RunUUID           string     `gorm:"column:run_uuid;uniqueIndex" json:"run_uuid"`
	AccountID         string     `gorm:"column:account_id;index" json:"account_id"`
	Handle            string     `gorm:"column:handle;index" json:"handle"`
	Purpose           string     `gorm:"column:purpose;index" json:"purpose"`
	Source            string     `gorm:"column:source;index" json:"source"` // "manual", "scheduled", "import"
	Strategy          string     `gorm:"column:strategy" json:"strategy"`   // "cold_fetch", "incremental_fetch", "use_cache"
	Status            string     `gorm:"column:status;index" json:"status"` // "started", "completed", "failed"
	NewTweetsFetched  int        `gorm:"column:new_tweets_fetched" json:"new_tweets_fetched"`
	NewTweetsAnalyzed int        `gorm:"column:new_tweets_analyzed" json:"new_tweets_analyzed"`
	UsedCachedTweets  int        `gorm:"column:used_cached_tweets" json:"used_cached_tweets"`
	CacheHit          bool       `gorm:"column:cache_hit" json:"cache_hit"`
	ResultID          string     `gorm:"column:result_id" json:"result_id,omitempty"`
	ErrorMessage      string     `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt         time.Time  `gorm:"column:started_at;index" json:"started_at"`
	CompletedAt       *time.Time `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	DurationMs        int        `gorm:"column:duration_ms" json:"duration_ms"` // milliseconds
	CreatedAt         time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (ScanRunLogModel) TableName() string {
	return "scan_run_logs"
}

// APICallLogModel tracks outbound calls to external providers
type APICallLogModel struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunUUID      string    `gorm:"column:run_uuid;index" json:"run_uuid"`
	AccountID    string    `gorm:"column:account_id;index" json:"account_id"`
	Provider     string    `gorm:"column:provider;index" json:"provider"` // "twitter", "claude"
	Operation    string    `gorm:"column:operation;index" json:"operation"`
	StatusCode   int       `gorm:"column:status_code" json:"status_code"`
	DurationMs   int       `gorm:"column:duration_ms" json:"duration_ms"` // milliseconds
	IsSuccess    bool      `gorm:"column:is_success" json:"is_success"`
	ErrorMessage string    `gorm:"column:error_message" json:"error_message,omitempty"`
	CalledAt     time.Time `gorm:"column:called_at;index" json:"called_at"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (APICallLogModel) TableName() string {
	return "api_call_logs"
}

// Run status constants for scan run logging
const (
	RUN_STATUS_STARTED   = "started"
	RUN_STATUS_COMPLETED = "completed"
	RUN_STATUS_FAILED    = "failed"
)

// Provider constants for API call logging
const (
	PROVIDER_TWITTER = "twitter"
	PROVIDER_CLAUDE  = "claude"
)
