package main

import (
	"log"
)

// NotificationHandler drains the notification channel and delivers scan
// outcomes to Telegram. With no notifier configured it only logs.
func NotificationHandler(notificationCh chan ScanNotification, notifier *TelegramNotifier) {
	for notification := range notificationCh {
		if notification.Err != nil {
			log.Printf("Scan failed: @%s purpose=%s run=%s err=%v",
				notification.Handle, notification.Purpose, notification.RunUUID, notification.Err)

			if notifier == nil {
				continue
			}
			if err := notifier.NotifyScanFailed(notification); err != nil {
				log.Printf("Failed to send Telegram notification: %v", err)
			}
			continue
		}

		result := notification.Outcome.Result
		log.Printf("Scan completed: @%s purpose=%s score=%.1f risk=%s strategy=%s",
			notification.Handle, notification.Purpose, result.OverallScore, result.RiskLevel, notification.Outcome.Stats.Strategy)

		if notifier == nil {
			continue
		}
		if err := notifier.NotifyScanCompleted(notification); err != nil {
			log.Printf("Failed to send Telegram notification: %v", err)
		}
	}
}
