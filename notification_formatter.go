package main

import (
	"fmt"
	"strings"
	"time"
)

type NotificationFormatter struct{}

// ScanNotification carries the outcome of one scan run to the
// notification channel. Err is set when the run failed.
type ScanNotification struct {
	RunUUID   string
	AccountID string
	Handle    string
	Purpose   string
	Outcome   *ScanOutcome
	Err       error
}

func NewNotificationFormatter() *NotificationFormatter {
	return &NotificationFormatter{}
}

func (nf *NotificationFormatter) FormatScanCompleted(notification ScanNotification) string {
	result := notification.Outcome.Result
	stats := notification.Outcome.Stats

	riskEmoji := nf.getRiskEmoji(result.RiskLevel)

	cacheLine := ""
	if stats.CacheHit {
		cacheLine = "\n♻️ <b>Served from cache</b>"
	}

	flaggedLine := ""
	if flagged := nf.countFlaggedTweets(result.FlaggedTweetIDs); flagged > 0 {
		flaggedLine = fmt.Sprintf("\n🚩 <b>Flagged Tweets:</b> %d", flagged)
	}

	message := fmt.Sprintf(`%s <b>SCAN COMPLETE - %s RISK</b>

🎯 <b>Account:</b> @%s
🏷️ <b>Purpose:</b> %s
📊 <b>Score:</b> %.1f/100
💬 <b>Sentiment:</b> %s
⚙️ <b>Strategy:</b> %s%s

📈 <b>Tweets:</b> %d fetched | %d analyzed | %d from cache%s

📝 <b>Summary:</b>
<i>%s</i>

🔗 <a href="https://twitter.com/%s">Profile</a>
⏰ %s`,
		riskEmoji, strings.ToUpper(result.RiskLevel),
		notification.Handle,
		notification.Purpose,
		result.OverallScore,
		result.Sentiment,
		nf.formatStrategy(stats.Strategy),
		cacheLine,
		stats.NewTweetsFetched, stats.NewTweetsAnalyzed, stats.UsedCachedTweets,
		flaggedLine,
		nf.truncateText(result.Summary, 200),
		notification.Handle,
		time.Now().Format("2006-01-02 15:04:05 UTC"))

	return message
}

func (nf *NotificationFormatter) FormatScanFailed(notification ScanNotification) string {
	errorText := ""
	if notification.Err != nil {
		errorText = notification.Err.Error()
	}

	message := fmt.Sprintf(`🚨 <b>SCAN FAILED</b>

🎯 <b>Account:</b> @%s
🏷️ <b>Purpose:</b> %s
🆔 <b>Run:</b> %s

❌ <b>Error:</b>
<i>%s</i>

⏰ %s`,
		notification.Handle,
		notification.Purpose,
		notification.RunUUID,
		nf.truncateText(errorText, 300),
		time.Now().Format("2006-01-02 15:04:05 UTC"))

	return message
}

func (nf *NotificationFormatter) getRiskEmoji(riskLevel string) string {
	switch strings.ToLower(riskLevel) {
	case RISK_LEVEL_CRITICAL:
		return "🚨🔥"
	case RISK_LEVEL_HIGH:
		return "🚨"
	case RISK_LEVEL_MEDIUM:
		return "⚠️"
	case RISK_LEVEL_LOW:
		return "✅"
	default:
		return "❓"
	}
}

func (nf *NotificationFormatter) formatStrategy(strategy FetchStrategy) string {
	switch strategy {
	case StrategyColdFetch:
		return "Cold Fetch"
	case StrategyIncrementalFetch:
		return "Incremental Fetch"
	case StrategyUseCache:
		return "Cached"
	default:
		return string(strategy)
	}
}

func (nf *NotificationFormatter) countFlaggedTweets(flaggedJSON string) int {
	if flaggedJSON == "" || flaggedJSON == "[]" {
		return 0
	}
	return strings.Count(flaggedJSON, ",") + 1
}

func (nf *NotificationFormatter) truncateText(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength-3] + "..."
}
