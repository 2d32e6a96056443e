package main

import (
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier pushes scan outcomes to a single operator chat.
type TelegramNotifier struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	formatter *NotificationFormatter
}

// NewTelegramNotifier returns nil when no token or chat id is configured,
// notifications then stay log-only.
func NewTelegramNotifier(apiKey string, chatID string, formatter *NotificationFormatter) (*TelegramNotifier, error) {
	if apiKey == "" || chatID == "" {
		log.Println("Telegram notifications disabled, no api key or chat id configured")
		return nil, nil
	}

	parsedChatID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id must be numeric: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(apiKey)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init error: %w", err)
	}
	log.Printf("Telegram notifier authorized as @%s", bot.Self.UserName)

	return &TelegramNotifier{
		bot:       bot,
		chatID:    parsedChatID,
		formatter: formatter,
	}, nil
}

func (t *TelegramNotifier) NotifyScanCompleted(notification ScanNotification) error {
	return t.send(t.formatter.FormatScanCompleted(notification))
}

func (t *TelegramNotifier) NotifyScanFailed(notification ScanNotification) error {
	return t.send(t.formatter.FormatScanFailed(notification))
}

func (t *TelegramNotifier) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	_, err := t.bot.Send(msg)
	if err != nil {
		// HTML parse failures must not lose the alert, retry as plain text
		retryMsg := tgbotapi.NewMessage(t.chatID, text)
		_, retryErr := t.bot.Send(retryMsg)
		if retryErr != nil {
			return fmt.Errorf("telegram send failed: %v, plain retry failed: %w", err, retryErr)
		}
	}
	return nil
}
