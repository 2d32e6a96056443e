package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/repazoo/repscan/claude"
	"github.com/repazoo/repscan/twitterapi"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

type Config struct {
	TwitterAPIKey        string
	TwitterAPIBaseURL    string
	ProxyDSN             string
	ClaudeAPIKey         string
	ProxyClaudeDSN       string
	ClaudeModel          string
	TelegramAPIKey       string
	TelegramChatID       string
	DatabaseName         string
	ActivityDatabasePath string
	AnalysisPromptPath   string
	ScanWorkers          int
	FetchPageSize        int
	StalenessThreshold   time.Duration
	CacheExpiry          time.Duration
	AutoScanInterval     time.Duration
}

type Channels struct {
	ScanRequestCh  chan ScanRequest
	NotificationCh chan ScanNotification
}

func ProvideConfig() (*Config, error) {
	twitterKey := os.Getenv(ENV_TWITTER_API_KEY)
	if twitterKey == "" {
		return nil, fmt.Errorf("twitter api key should be set in .env: %s", ENV_TWITTER_API_KEY)
	}

	claudeKey := os.Getenv(ENV_CLAUDE_API_KEY)
	if claudeKey == "" {
		return nil, fmt.Errorf("claude api key should be set in .env: %s", ENV_CLAUDE_API_KEY)
	}

	dbName := os.Getenv(ENV_DATABASE_NAME)
	if dbName == "" {
		dbName = DEFAULT_DATABASE_NAME
	}

	activityDBPath := os.Getenv(ENV_ACTIVITY_DATABASE_PATH)
	if activityDBPath == "" {
		activityDBPath = DEFAULT_ACTIVITY_DATABASE_PATH
	}

	claudeModel := os.Getenv(ENV_CLAUDE_MODEL)
	if claudeModel == "" {
		claudeModel = claude.CLAUDE_MODEL
	}

	return &Config{
		TwitterAPIKey:        twitterKey,
		TwitterAPIBaseURL:    os.Getenv(ENV_TWITTER_API_BASE_URL),
		ProxyDSN:             os.Getenv(ENV_PROXY_DSN),
		ClaudeAPIKey:         claudeKey,
		ProxyClaudeDSN:       os.Getenv(ENV_PROXY_CLAUDE_DSN),
		ClaudeModel:          claudeModel,
		TelegramAPIKey:       os.Getenv(ENV_TELEGRAM_API_KEY),
		TelegramChatID:       os.Getenv(ENV_TELEGRAM_CHAT_ID),
		DatabaseName:         dbName,
		ActivityDatabasePath: activityDBPath,
		AnalysisPromptPath:   os.Getenv(ENV_ANALYSIS_PROMPT_PATH),
		ScanWorkers:          intFromEnv(ENV_SCAN_WORKERS, DEFAULT_SCAN_WORKERS),
		FetchPageSize:        intFromEnv(ENV_FETCH_PAGE_SIZE, DEFAULT_FETCH_PAGE_SIZE),
		StalenessThreshold:   minutesFromEnv(ENV_SCAN_STALENESS_MINUTES, DEFAULT_STALENESS_MINUTES),
		CacheExpiry:          time.Duration(intFromEnv(ENV_CACHE_EXPIRY_DAYS, DEFAULT_CACHE_EXPIRY_DAYS)) * 24 * time.Hour,
		AutoScanInterval:     minutesFromEnv(ENV_AUTO_SCAN_INTERVAL_MINUTES, DEFAULT_AUTO_SCAN_INTERVAL_MINUTES),
	}, nil
}

// intFromEnv reads a positive integer knob, falling back on the default when
// the variable is unset or unusable.
func intFromEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("Warning: invalid %s=%q, using default %d", name, raw, fallback)
		return fallback
	}
	return value
}

func minutesFromEnv(name string, fallbackMinutes int) time.Duration {
	return time.Duration(intFromEnv(name, fallbackMinutes)) * time.Minute
}

func ProvideChannels() *Channels {
	return &Channels{
		ScanRequestCh:  make(chan ScanRequest, 30),
		NotificationCh: make(chan ScanNotification, 30),
	}
}

func ProvideDatabase(config *Config) (*gorm.DB, error) {
	return OpenDatabase(config.DatabaseName)
}

func ProvideAccountRegistry(db *gorm.DB) *AccountRegistry {
	return NewAccountRegistry(db)
}

func ProvideTweetStore(db *gorm.DB) *TweetStore {
	return NewTweetStore(db)
}

func ProvideWatermarkTracker(db *gorm.DB) *WatermarkTracker {
	return NewWatermarkTracker(db)
}

func ProvideAnalysisLedger(db *gorm.DB) *AnalysisLedger {
	return NewAnalysisLedger(db)
}

func ProvideResultStore(db *gorm.DB) *ResultStore {
	return NewResultStore(db)
}

func ProvideCachePolicy(config *Config) *CachePolicy {
	return NewCachePolicy(config.StalenessThreshold, config.CacheExpiry)
}

func ProvideTwitterAPI(config *Config) *twitterapi.TwitterAPIService {
	return twitterapi.NewTwitterAPIService(config.TwitterAPIKey, config.TwitterAPIBaseURL, config.ProxyDSN)
}

func ProvideTwitterFetcher(config *Config, api *twitterapi.TwitterAPIService) *TwitterFetcher {
	return NewTwitterFetcher(api, config.FetchPageSize)
}

func ProvideClaudeAPI(config *Config) (*claude.ClaudeApi, error) {
	return claude.NewClaudeClient(config.ClaudeAPIKey, "", config.ProxyClaudeDSN, config.ClaudeModel)
}

func ProvideReputationAnalyzer(config *Config, claudeApi *claude.ClaudeApi) (*ReputationAnalyzer, error) {
	var systemPrompt []byte
	if config.AnalysisPromptPath != "" {
		data, err := os.ReadFile(config.AnalysisPromptPath)
		if err != nil {
			return nil, fmt.Errorf("read analysis prompt %s: %w", config.AnalysisPromptPath, err)
		}
		systemPrompt = data
	}
	return NewReputationAnalyzer(claudeApi, systemPrompt), nil
}

func ProvideScanService(registry *AccountRegistry, tweets *TweetStore, watermarks *WatermarkTracker, ledger *AnalysisLedger, results *ResultStore, fetcher *TwitterFetcher, analyzer *ReputationAnalyzer, policy *CachePolicy, config *Config) *ScanService {
	return NewScanService(registry, tweets, watermarks, ledger, results, fetcher, analyzer, policy, config.FetchPageSize)
}

func ProvideScanStatusManager() *ScanStatusManager {
	return NewScanStatusManager(SCAN_STATUS_FILE)
}

func ProvideActivityLog(config *Config) (*ActivityLog, error) {
	return NewActivityLog(config.ActivityDatabasePath)
}

func ProvideNotificationFormatter() *NotificationFormatter {
	return NewNotificationFormatter()
}

func ProvideTelegramNotifier(config *Config, formatter *NotificationFormatter) (*TelegramNotifier, error) {
	return NewTelegramNotifier(config.TelegramAPIKey, config.TelegramChatID, formatter)
}

func ProvideScanWorkerPool(scanService *ScanService, registry *AccountRegistry, status *ScanStatusManager, activity *ActivityLog, channels *Channels, config *Config) *ScanWorkerPool {
	return NewScanWorkerPool(scanService, registry, status, activity, channels.ScanRequestCh, channels.NotificationCh, config.ScanWorkers)
}

func ProvideScanScheduler(registry *AccountRegistry, pool *ScanWorkerPool, activity *ActivityLog, config *Config) (*ScanScheduler, error) {
	return NewScanScheduler(registry, pool, activity, config.AutoScanInterval)
}

func ProvideCSVImporter(store *TweetStore, watermarks *WatermarkTracker) *CSVImporter {
	return NewCSVImporter(store, watermarks)
}

func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(ProvideConfig); err != nil {
		return nil, fmt.Errorf("failed to provide config: %w", err)
	}

	if err := container.Provide(ProvideChannels); err != nil {
		return nil, fmt.Errorf("failed to provide channels: %w", err)
	}

	if err := container.Provide(ProvideDatabase); err != nil {
		return nil, fmt.Errorf("failed to provide database: %w", err)
	}

	if err := container.Provide(ProvideAccountRegistry); err != nil {
		return nil, fmt.Errorf("failed to provide account registry: %w", err)
	}

	if err := container.Provide(ProvideTweetStore); err != nil {
		return nil, fmt.Errorf("failed to provide tweet store: %w", err)
	}

	if err := container.Provide(ProvideWatermarkTracker); err != nil {
		return nil, fmt.Errorf("failed to provide watermark tracker: %w", err)
	}

	if err := container.Provide(ProvideAnalysisLedger); err != nil {
		return nil, fmt.Errorf("failed to provide analysis ledger: %w", err)
	}

	if err := container.Provide(ProvideResultStore); err != nil {
		return nil, fmt.Errorf("failed to provide result store: %w", err)
	}

	if err := container.Provide(ProvideCachePolicy); err != nil {
		return nil, fmt.Errorf("failed to provide cache policy: %w", err)
	}

	if err := container.Provide(ProvideTwitterAPI); err != nil {
		return nil, fmt.Errorf("failed to provide Twitter API: %w", err)
	}

	if err := container.Provide(ProvideTwitterFetcher); err != nil {
		return nil, fmt.Errorf("failed to provide Twitter fetcher: %w", err)
	}

	if err := container.Provide(ProvideClaudeAPI); err != nil {
		return nil, fmt.Errorf("failed to provide Claude API: %w", err)
	}

	if err := container.Provide(ProvideReputationAnalyzer); err != nil {
		return nil, fmt.Errorf("failed to provide reputation analyzer: %w", err)
	}

	if err := container.Provide(ProvideScanService); err != nil {
		return nil, fmt.Errorf("failed to provide scan service: %w", err)
	}

	if err := container.Provide(ProvideScanStatusManager); err != nil {
		return nil, fmt.Errorf("failed to provide scan status manager: %w", err)
	}

	if err := container.Provide(ProvideActivityLog); err != nil {
		return nil, fmt.Errorf("failed to provide activity log: %w", err)
	}

	if err := container.Provide(ProvideNotificationFormatter); err != nil {
		return nil, fmt.Errorf("failed to provide notification formatter: %w", err)
	}

	if err := container.Provide(ProvideTelegramNotifier); err != nil {
		return nil, fmt.Errorf("failed to provide Telegram notifier: %w", err)
	}

	if err := container.Provide(ProvideScanWorkerPool); err != nil {
		return nil, fmt.Errorf("failed to provide scan worker pool: %w", err)
	}

	if err := container.Provide(ProvideScanScheduler); err != nil {
		return nil, fmt.Errorf("failed to provide scan scheduler: %w", err)
	}

	if err := container.Provide(ProvideCSVImporter); err != nil {
		return nil, fmt.Errorf("failed to provide CSV importer: %w", err)
	}

	if err := container.Provide(NewApplication); err != nil {
		return nil, fmt.Errorf("failed to provide application: %w", err)
	}

	return container, nil
}
