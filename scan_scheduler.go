package main

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ScanScheduler periodically enqueues scans for every auto-scan account and
// keeps the activity database trimmed with a nightly cleanup job.
type ScanScheduler struct {
	scheduler gocron.Scheduler
	registry  *AccountRegistry
	pool      *ScanWorkerPool
	activity  *ActivityLog
	interval  time.Duration
}

func NewScanScheduler(registry *AccountRegistry, pool *ScanWorkerPool, activity *ActivityLog, interval time.Duration) (*ScanScheduler, error) {
	if interval <= 0 {
		interval = DEFAULT_AUTO_SCAN_INTERVAL_MINUTES * time.Minute
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &ScanScheduler{
		scheduler: scheduler,
		registry:  registry,
		pool:      pool,
		activity:  activity,
		interval:  interval,
	}, nil
}

func (ss *ScanScheduler) Start() error {
	_, err := ss.scheduler.NewJob(
		gocron.DurationJob(ss.interval),
		gocron.NewTask(ss.runAutoScan),
		gocron.WithName("auto_scan"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule auto scan job: %w", err)
	}

	_, err = ss.scheduler.NewJob(
		gocron.CronJob("0 3 * * *", false),
		gocron.NewTask(ss.runCleanup),
		gocron.WithName("activity_cleanup"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}

	ss.scheduler.Start()
	log.Printf("Scheduler started: auto scan every %s, activity cleanup daily at 03:00 UTC", ss.interval)
	return nil
}

func (ss *ScanScheduler) Stop() error {
	log.Println("Stopping scheduler")
	return ss.scheduler.Shutdown()
}

func (ss *ScanScheduler) runAutoScan() {
	accounts, err := ss.registry.ListAutoScanAccounts()
	if err != nil {
		log.Printf("❌ Auto scan: failed to list accounts: %v", err)
		return
	}
	if len(accounts) == 0 {
		log.Println("Auto scan: no accounts enabled")
		return
	}

	queued := 0
	for _, account := range accounts {
		if ss.pool.Enqueue(ScanRequest{AccountID: account.ID, Source: SCAN_SOURCE_SCHEDULED}) {
			queued++
		}
	}
	log.Printf("Auto scan: queued %d of %d accounts", queued, len(accounts))
}

func (ss *ScanScheduler) runCleanup() {
	log.Printf("🧹 Starting scheduled cleanup of old activity records")

	err := ss.activity.CleanupOldRuns(ACTIVITY_RETENTION_DAYS)
	if err != nil {
		log.Printf("❌ Error during cleanup: %v", err)
		return
	}

	err = ss.activity.VacuumDatabase()
	if err != nil {
		log.Printf("❌ Error during VACUUM: %v", err)
		return
	}

	stats, err := ss.activity.GetDatabaseStats()
	if err != nil {
		log.Printf("❌ Error getting database stats: %v", err)
		return
	}

	log.Printf("✅ Cleanup completed successfully")
	log.Printf("📊 Activity database stats after cleanup: %+v", stats)
}

// RunCleanupNow triggers the nightly cleanup outside its schedule.
func (ss *ScanScheduler) RunCleanupNow() {
	log.Printf("🧹 Running manual cleanup")
	ss.runCleanup()
}
