package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/repazoo/repscan/twitterapi"
	"gorm.io/gorm"
)

type Application struct {
	config        *Config
	channels      *Channels
	db            *gorm.DB
	registry      *AccountRegistry
	twitterAPI    *twitterapi.TwitterAPIService
	importer      *CSVImporter
	statusManager *ScanStatusManager
	activityLog   *ActivityLog
	notifier      *TelegramNotifier
	workerPool    *ScanWorkerPool
	scheduler     *ScanScheduler
}

func NewApplication(
	config *Config,
	channels *Channels,
	db *gorm.DB,
	registry *AccountRegistry,
	twitterAPI *twitterapi.TwitterAPIService,
	importer *CSVImporter,
	statusManager *ScanStatusManager,
	activityLog *ActivityLog,
	notifier *TelegramNotifier,
	workerPool *ScanWorkerPool,
	scheduler *ScanScheduler,
) (*Application, error) {
	return &Application{
		config:        config,
		channels:      channels,
		db:            db,
		registry:      registry,
		twitterAPI:    twitterAPI,
		importer:      importer,
		statusManager: statusManager,
		activityLog:   activityLog,
		notifier:      notifier,
		workerPool:    workerPool,
		scheduler:     scheduler,
	}, nil
}

func (app *Application) Initialize() error {
	log.Println("Database initialized successfully")
	log.Println("Activity log initialized successfully")

	app.statusManager.StartPeriodicSave()

	if err := app.ensureConfiguredAccounts(); err != nil {
		return err
	}
	app.importArchiveIfConfigured()

	if err := app.scheduler.Start(); err != nil {
		return err
	}

	return nil
}

func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(app.channels.NotificationCh)
		if err := app.workerPool.Run(ctx); err != nil {
			log.Printf("Scan worker pool stopped with error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		NotificationHandler(app.channels.NotificationCh, app.notifier)
	}()

	log.Println("Repscan is running, press Ctrl+C to stop")
	wg.Wait()
	return nil
}

func (app *Application) Shutdown() {
	log.Println("Shutting down application...")

	if err := app.scheduler.Stop(); err != nil {
		log.Printf("Error stopping scheduler: %v", err)
	}
	app.statusManager.StopPeriodicSave()

	if err := app.activityLog.Close(); err != nil {
		log.Printf("Error closing activity log: %v", err)
	}
	if err := CloseDatabase(app.db); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Application shutdown completed")
}

// ensureConfiguredAccounts registers the handles listed in scan_accounts and
// flags them for auto scanning. Handles already in the registry skip the
// profile lookup so restarts stay cheap.
func (app *Application) ensureConfiguredAccounts() error {
	raw := os.Getenv(ENV_SCAN_ACCOUNTS)
	if raw == "" {
		return nil
	}

	for _, entry := range strings.Split(raw, ",") {
		handle := strings.TrimPrefix(strings.TrimSpace(entry), "@")
		if handle == "" {
			continue
		}

		existing, err := app.registry.GetAccountByHandle(handle)
		if err == nil {
			if err := app.registry.SetAutoScan(existing.ID, true); err != nil {
				return err
			}
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		info, err := app.twitterAPI.GetUserInfo(handle)
		if err != nil {
			log.Printf("Error resolving configured account @%s: %v", handle, err)
			continue
		}

		account, err := app.registry.EnsureAccount(info.Data.Id, info.Data.UserName, info.Data.Name)
		if err != nil {
			return err
		}
		if err := app.registry.SetAutoScan(account.ID, true); err != nil {
			return err
		}
		log.Printf("Registered account @%s for auto scan", account.Handle)
	}

	return nil
}

// importArchiveIfConfigured backfills one account's tweet archive on startup
// when import_csv_path is set. Import failures are logged, the daemon still
// starts and scans fetch what the archive would have provided.
func (app *Application) importArchiveIfConfigured() {
	csvPath := os.Getenv(ENV_IMPORT_CSV_PATH)
	if csvPath == "" {
		return
	}

	handle := strings.TrimPrefix(strings.TrimSpace(os.Getenv(ENV_IMPORT_CSV_ACCOUNT)), "@")
	if handle == "" {
		log.Printf("CSV import path set but %s is empty, skipping import", ENV_IMPORT_CSV_ACCOUNT)
		return
	}

	account, err := app.registry.GetAccountByHandle(handle)
	if err != nil {
		log.Printf("CSV import skipped, account @%s not registered: %v", handle, err)
		return
	}

	log.Printf("Importing CSV archive %s for @%s", csvPath, handle)
	result, err := app.importer.ImportCSV(csvPath, account.ID)
	if err != nil {
		log.Printf("CSV import failed: %v", err)
		return
	}
	log.Printf("CSV import successful: %s", result.String())
}
