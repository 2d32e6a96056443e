package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVImporter backfills an account's tweet cache from a CSV export, for
// example a Twitter archive. Imported rows go through the same dedup as API
// fetches and advance the sync watermark so later scans only fetch newer
// tweets.
type CSVImporter struct {
	store      *TweetStore
	watermarks *WatermarkTracker
}

type CSVTweetData struct {
	TweetID      string
	Date         string
	Text         string
	LikeCount    int
	ReplyCount   int
	RetweetCount int
}

func NewCSVImporter(store *TweetStore, watermarks *WatermarkTracker) *CSVImporter {
	return &CSVImporter{
		store:      store,
		watermarks: watermarks,
	}
}

func (c *CSVImporter) ImportCSV(csvFilePath string, accountID string) (*ImportResult, error) {
	if _, err := os.Stat(csvFilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("CSV file not found: %s", csvFilePath)
	}

	file, err := os.Open(csvFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Archive exports are often ragged, short rows are skipped below
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	header := records[0]
	columnMap := c.mapColumns(header)

	if err := c.validateColumns(columnMap); err != nil {
		return nil, fmt.Errorf("CSV validation failed: %w", err)
	}

	result := &ImportResult{}

	tweetsData := []CSVTweetData{}
	for i, record := range records[1:] {
		if len(record) < len(header) {
			result.Skipped++
			continue
		}

		tweetData := CSVTweetData{
			TweetID: strings.TrimSpace(record[columnMap["tweet_id"]]),
			Date:    record[columnMap["date"]],
			Text:    record[columnMap["text"]],
		}
		if tweetData.TweetID == "" {
			result.Skipped++
			continue
		}

		if idx, exists := columnMap["like_count"]; exists {
			tweetData.LikeCount, _ = strconv.Atoi(record[idx])
		}
		if idx, exists := columnMap["reply_count"]; exists {
			tweetData.ReplyCount, _ = strconv.Atoi(record[idx])
		}
		if idx, exists := columnMap["retweet_count"]; exists {
			tweetData.RetweetCount, _ = strconv.Atoi(record[idx])
		}

		tweetsData = append(tweetsData, tweetData)

		if (i+1)%1000 == 0 {
			fmt.Printf("Parsed %d rows...\n", i+1)
		}
	}

	fmt.Printf("Found %d tweets to import\n", len(tweetsData))
	result.ParsedRows = len(tweetsData)

	if len(tweetsData) == 0 {
		return result, nil
	}

	importedAt := time.Now()
	tweets := make([]TweetModel, 0, len(tweetsData))
	newestID := ""
	newestCreatedAt := time.Time{}

	for _, tweetData := range tweetsData {
		createdAt, err := c.parseDate(tweetData.Date)
		if err != nil {
			fmt.Printf("Error parsing date %s: %v\n", tweetData.Date, err)
			createdAt = importedAt
		}

		tweets = append(tweets, TweetModel{
			PlatformTweetID: tweetData.TweetID,
			Content:         tweetData.Text,
			LikeCount:       tweetData.LikeCount,
			ReplyCount:      tweetData.ReplyCount,
			RetweetCount:    tweetData.RetweetCount,
			Source:          TWEET_SOURCE_CSV,
			CreatedAt:       createdAt,
			FetchedAt:       importedAt,
		})

		if newestID == "" || comparePlatformIDs(tweetData.TweetID, newestID) > 0 {
			newestID = tweetData.TweetID
			newestCreatedAt = createdAt
		}
	}

	inserted, err := c.store.UpsertTweets(accountID, tweets)
	if err != nil {
		return nil, fmt.Errorf("failed to import tweets: %w", err)
	}

	result.Inserted = inserted
	result.Duplicates = result.ParsedRows - inserted
	result.NewestTweetID = newestID

	// The newest tweet's own timestamp becomes the sync time. An archive of
	// old tweets must still look stale to the cache policy.
	if err := c.watermarks.AdvanceWatermark(accountID, newestID, newestCreatedAt, inserted); err != nil {
		return nil, fmt.Errorf("failed to advance watermark after import: %w", err)
	}

	return result, nil
}

func (c *CSVImporter) mapColumns(header []string) map[string]int {
	columnMap := make(map[string]int)

	for i, col := range header {
		col = strings.TrimSpace(strings.ToLower(col))
		switch col {
		case "tweet_id", "id":
			columnMap["tweet_id"] = i
		case "date", "created_at":
			columnMap["date"] = i
		case "text", "content":
			columnMap["text"] = i
		case "like_count", "likes", "favorite_count":
			columnMap["like_count"] = i
		case "reply_count", "replies":
			columnMap["reply_count"] = i
		case "retweet_count", "retweets":
			columnMap["retweet_count"] = i
		}
	}

	return columnMap
}

func (c *CSVImporter) validateColumns(columnMap map[string]int) error {
	required := []string{"tweet_id", "date", "text"}

	for _, field := range required {
		if _, exists := columnMap[field]; !exists {
			return fmt.Errorf("required column not found: %s", field)
		}
	}

	return nil
}

func (c *CSVImporter) parseDate(dateStr string) (time.Time, error) {
	formats := []string{
		"Mon Jan 02 15:04:05 -0700 2006", // Twitter format
		"2006-01-02 15:04:05",            // SQL format
		"2006-01-02T15:04:05Z",           // ISO format
		"2006-01-02",                     // Date only
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

type ImportResult struct {
	ParsedRows    int
	Inserted      int
	Duplicates    int
	Skipped       int
	NewestTweetID string
}

func (r *ImportResult) String() string {
	return fmt.Sprintf("Import Result:\n  Parsed rows: %d\n  Inserted: %d\n  Duplicates: %d\n  Skipped: %d\n  Newest tweet id: %s",
		r.ParsedRows, r.Inserted, r.Duplicates, r.Skipped, r.NewestTweetID)
}
