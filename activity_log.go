package main

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ActivityLog writes scan run and API call history to its own sqlite
// database so operational records never contend with the cache database.
type ActivityLog struct {
	db *gorm.DB
}

// NewActivityLog creates a new activity log instance
func NewActivityLog(dbPath string) (*ActivityLog, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to activity database: %w", err)
	}

	activityLog := &ActivityLog{
		db: db,
	}

	// Run migrations
	if err := activityLog.runMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run activity migrations: %w", err)
	}

	return activityLog, nil
}

// runMigrations runs database migrations for activity tables
func (a *ActivityLog) runMigrations() error {
	return a.db.AutoMigrate(
		&ScanRunLogModel{},
		&APICallLogModel{},
	)
}

// Scan Run Logging Methods

// LogScanStarted opens a run record for a scan picked up by a worker
func (a *ActivityLog) LogScanStarted(runUUID, accountID, handle, purpose, source string) error {
	runLog := ScanRunLogModel{
		RunUUID:   runUUID,
		AccountID: accountID,
		Handle:    handle,
		Purpose:   purpose,
		Source:    source,
		Status:    RUN_STATUS_STARTED,
		StartedAt: time.Now(),
	}
	return a.db.Create(&runLog).Error
}

// LogScanCompleted closes a run record with the scan outcome
func (a *ActivityLog) LogScanCompleted(runUUID string, outcome *ScanOutcome) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       RUN_STATUS_COMPLETED,
		"completed_at": &now,
	}

	if outcome != nil {
		updates["strategy"] = string(outcome.Stats.Strategy)
		updates["new_tweets_fetched"] = outcome.Stats.NewTweetsFetched
		updates["new_tweets_analyzed"] = outcome.Stats.NewTweetsAnalyzed
		updates["used_cached_tweets"] = outcome.Stats.UsedCachedTweets
		updates["cache_hit"] = outcome.Stats.CacheHit
		if outcome.Result != nil {
			updates["result_id"] = outcome.Result.ID
		}
	}

	var existing ScanRunLogModel
	if err := a.db.Where("run_uuid = ?", runUUID).First(&existing).Error; err == nil {
		updates["duration_ms"] = int(now.Sub(existing.StartedAt).Milliseconds())
	}

	return a.db.Model(&ScanRunLogModel{}).
		Where("run_uuid = ?", runUUID).
		Updates(updates).Error
}

// LogScanFailed closes a run record with an error message
func (a *ActivityLog) LogScanFailed(runUUID, errorMessage string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        RUN_STATUS_FAILED,
		"error_message": errorMessage,
		"completed_at":  &now,
	}

	var existing ScanRunLogModel
	if err := a.db.Where("run_uuid = ?", runUUID).First(&existing).Error; err == nil {
		updates["duration_ms"] = int(now.Sub(existing.StartedAt).Milliseconds())
	}

	return a.db.Model(&ScanRunLogModel{}).
		Where("run_uuid = ?", runUUID).
		Updates(updates).Error
}

// GetRunByUUID returns the run record for a specific UUID
func (a *ActivityLog) GetRunByUUID(runUUID string) (*ScanRunLogModel, error) {
	var runLog ScanRunLogModel
	err := a.db.Where("run_uuid = ?", runUUID).First(&runLog).Error
	return &runLog, err
}

// GetRecentRuns returns the most recent runs, newest first
func (a *ActivityLog) GetRecentRuns(limit int) ([]ScanRunLogModel, error) {
	var runs []ScanRunLogModel
	err := a.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// GetRunsByAccount returns all runs for an account, newest first
func (a *ActivityLog) GetRunsByAccount(accountID string, limit int) ([]ScanRunLogModel, error) {
	var runs []ScanRunLogModel
	err := a.db.Where("account_id = ?", accountID).
		Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// GetRunCountByDay returns run count for a specific day
func (a *ActivityLog) GetRunCountByDay(date time.Time) (int64, error) {
	var count int64
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	err := a.db.Model(&ScanRunLogModel{}).
		Where("started_at >= ? AND started_at < ?", startOfDay, endOfDay).
		Count(&count).Error

	return count, err
}

// GetDailyRunStats returns daily run statistics for last 30 days
func (a *ActivityLog) GetDailyRunStats() ([]map[string]interface{}, error) {
	var results []map[string]interface{}
	now := time.Now()

	for i := 29; i >= 0; i-- {
		dayStart := now.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		count, err := a.GetRunCountByDay(dayStart)
		if err != nil {
			return nil, err
		}

		results = append(results, map[string]interface{}{
			"date":  dayStart.Format("2006-01-02"),
			"count": count,
		})
	}

	return results, nil
}

// GetRunStats returns run statistics for the last N days
func (a *ActivityLog) GetRunStats(days int) (map[string]interface{}, error) {
	startDate := time.Now().AddDate(0, 0, -days)

	var totalRuns int64
	var completedRuns int64
	var failedRuns int64
	var cacheHits int64
	var avgDuration float64

	err := a.db.Model(&ScanRunLogModel{}).
		Where("started_at >= ?", startDate).
		Count(&totalRuns).Error
	if err != nil {
		return nil, err
	}

	err = a.db.Model(&ScanRunLogModel{}).
		Where("started_at >= ? AND status = ?", startDate, RUN_STATUS_COMPLETED).
		Count(&completedRuns).Error
	if err != nil {
		return nil, err
	}

	err = a.db.Model(&ScanRunLogModel{}).
		Where("started_at >= ? AND status = ?", startDate, RUN_STATUS_FAILED).
		Count(&failedRuns).Error
	if err != nil {
		return nil, err
	}

	err = a.db.Model(&ScanRunLogModel{}).
		Where("started_at >= ? AND cache_hit = ?", startDate, true).
		Count(&cacheHits).Error
	if err != nil {
		return nil, err
	}

	err = a.db.Model(&ScanRunLogModel{}).
		Where("started_at >= ? AND status = ?", startDate, RUN_STATUS_COMPLETED).
		Select("COALESCE(AVG(duration_ms), 0)").
		Scan(&avgDuration).Error
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"total_runs":      totalRuns,
		"completed_runs":  completedRuns,
		"failed_runs":     failedRuns,
		"cache_hits":      cacheHits,
		"avg_duration_ms": avgDuration,
	}
	if totalRuns > 0 {
		stats["success_rate"] = float64(completedRuns) / float64(totalRuns) * 100
	}

	return stats, nil
}

// API Call Logging Methods

// LogAPICall logs one outbound provider call
func (a *ActivityLog) LogAPICall(runUUID, accountID, provider, operation string, statusCode, durationMs int, isSuccess bool, errorMessage string) error {
	callLog := APICallLogModel{
		RunUUID:      runUUID,
		AccountID:    accountID,
		Provider:     provider,
		Operation:    operation,
		StatusCode:   statusCode,
		DurationMs:   durationMs,
		IsSuccess:    isSuccess,
		ErrorMessage: errorMessage,
		CalledAt:     time.Now(),
	}

	return a.db.Create(&callLog).Error
}

// GetAPICallsByRun returns all provider calls made during a run
func (a *ActivityLog) GetAPICallsByRun(runUUID string) ([]APICallLogModel, error) {
	var calls []APICallLogModel
	err := a.db.Where("run_uuid = ?", runUUID).Order("called_at ASC").Find(&calls).Error
	return calls, err
}

// Cleanup Methods

// CleanupOldRuns removes activity records older than specified days
func (a *ActivityLog) CleanupOldRuns(days int) error {
	cutoffDate := time.Now().AddDate(0, 0, -days)

	log.Printf("🧹 Cleaning up activity database records older than %d days (before %s)", days, cutoffDate.Format("2006-01-02"))

	// Clean up scan run logs
	result := a.db.Where("created_at < ?", cutoffDate).Delete(&ScanRunLogModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup scan run logs: %w", result.Error)
	}
	log.Printf("🧹 Cleaned up %d scan run log records", result.RowsAffected)

	// Clean up API call logs
	result = a.db.Where("created_at < ?", cutoffDate).Delete(&APICallLogModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup api call logs: %w", result.Error)
	}
	log.Printf("🧹 Cleaned up %d api call log records", result.RowsAffected)

	return nil
}

// VacuumDatabase runs VACUUM command to reclaim space
func (a *ActivityLog) VacuumDatabase() error {
	log.Printf("🧹 Running VACUUM on activity database to reclaim space...")
	err := a.db.Exec("VACUUM").Error
	if err != nil {
		return fmt.Errorf("failed to vacuum activity database: %w", err)
	}
	log.Printf("✅ VACUUM completed successfully")
	return nil
}

// GetDatabaseStats returns database statistics
func (a *ActivityLog) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var runCount int64
	a.db.Model(&ScanRunLogModel{}).Count(&runCount)
	stats["scan_run_logs"] = runCount

	var callCount int64
	a.db.Model(&APICallLogModel{}).Count(&callCount)
	stats["api_call_logs"] = callCount

	var oldestRun ScanRunLogModel
	a.db.Order("created_at ASC").First(&oldestRun)
	if oldestRun.ID != 0 {
		stats["oldest_record"] = oldestRun.CreatedAt.Format("2006-01-02 15:04:05")
	}

	var newestRun ScanRunLogModel
	a.db.Order("created_at DESC").First(&newestRun)
	if newestRun.ID != 0 {
		stats["newest_record"] = newestRun.CreatedAt.Format("2006-01-02 15:04:05")
	}

	return stats, nil
}

// Close closes the activity database connection
func (a *ActivityLog) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
