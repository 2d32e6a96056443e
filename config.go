package main

const ENV_TWITTER_API_KEY = "twitter_api_key"
const ENV_TWITTER_API_BASE_URL = "twitter_api_base_url"
const ENV_PROXY_DSN = "proxy_dsn"
const ENV_PROXY_CLAUDE_DSN = "proxy_claude_dsn"
const ENV_CLAUDE_API_KEY = "claude_api_key"
const ENV_CLAUDE_MODEL = "claude_model"
const ENV_TELEGRAM_API_KEY = "telegram_api_key"
const ENV_TELEGRAM_CHAT_ID = "tg_chat_id"
const ENV_DATABASE_NAME = "database_name"
const ENV_ACTIVITY_DATABASE_PATH = "activity_database_path"
const ENV_SCAN_ACCOUNTS = "scan_accounts"
const ENV_SCAN_PURPOSE = "scan_purpose"
const ENV_SCAN_WORKERS = "scan_workers"
const ENV_SCAN_STALENESS_MINUTES = "scan_staleness_minutes"
const ENV_CACHE_EXPIRY_DAYS = "cache_expiry_days"
const ENV_FETCH_PAGE_SIZE = "fetch_page_size"
const ENV_AUTO_SCAN_INTERVAL_MINUTES = "auto_scan_interval_minutes"
const ENV_ANALYSIS_PROMPT_PATH = "analysis_prompt_path"
const ENV_IMPORT_CSV_PATH = "import_csv_path"
const ENV_IMPORT_CSV_ACCOUNT = "import_csv_account"

// Scan request source constants
const SCAN_SOURCE_MANUAL = "manual"       // Scan triggered from CLI or API
const SCAN_SOURCE_SCHEDULED = "scheduled" // Scan enqueued by the auto-scan scheduler
const SCAN_SOURCE_IMPORT = "import"       // Backfill through the CSV importer

// Tweet source constants
const TWEET_SOURCE_API = "api_fetch"  // Tweet captured from the fetch API
const TWEET_SOURCE_CSV = "csv_import" // Tweet backfilled from a CSV export

// Risk level constants, ordered by severity
const RISK_LEVEL_LOW = "low"
const RISK_LEVEL_MEDIUM = "medium"
const RISK_LEVEL_HIGH = "high"
const RISK_LEVEL_CRITICAL = "critical"

// Sentiment constants
const SENTIMENT_POSITIVE = "positive"
const SENTIMENT_NEUTRAL = "neutral"
const SENTIMENT_NEGATIVE = "negative"
const SENTIMENT_MIXED = "mixed"

// Defaults for optional knobs
const DEFAULT_DATABASE_NAME = "repazoo.db"
const DEFAULT_ACTIVITY_DATABASE_PATH = "activity.db"
const DEFAULT_SCAN_PURPOSE = "general"
const DEFAULT_SCAN_WORKERS = 4
const DEFAULT_STALENESS_MINUTES = 15
const DEFAULT_CACHE_EXPIRY_DAYS = 30
const DEFAULT_FETCH_PAGE_SIZE = 100
const DEFAULT_AUTO_SCAN_INTERVAL_MINUTES = 30
const ACTIVITY_RETENTION_DAYS = 30
