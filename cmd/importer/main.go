package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/repazoo/repscan/twitterapi"
)

// Exports a user's timeline into the CSV archive format the daemon ingests
// through import_csv_path (tweet_id, date, text and the engagement counts).
func main() {
	handle := flag.String("user", "", "Handle of the account to export (without @)")
	output := flag.String("out", "", "Output CSV path (default: <handle>_tweets.csv)")
	maxPages := flag.Int("pages", 10, "Maximum timeline pages to fetch")
	flag.Parse()

	if *handle == "" {
		fmt.Println("Usage: importer -user <handle> [-out tweets.csv] [-pages 10]")
		os.Exit(1)
	}

	godotenv.Load()
	api := twitterapi.NewTwitterAPIService(os.Getenv("twitter_api_key"), os.Getenv("twitter_api_base_url"), os.Getenv("proxy_dsn"))

	username := strings.TrimPrefix(*handle, "@")
	fmt.Printf("🔍 Resolving @%s...\n", username)
	info, err := api.GetUserInfo(username)
	panicErr(err)
	fmt.Printf("👤 %s (@%s): %d tweets on profile\n", info.Data.Name, info.Data.UserName, info.Data.StatusesCount)

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("%s_tweets.csv", username)
	}

	os.RemoveAll(filename)
	file, err := os.Create(filename)
	panicErr(err)
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := []string{
		"tweet_id",
		"date",
		"text",
		"like_count",
		"reply_count",
		"retweet_count",
	}
	err = writer.Write(headers)
	panicErr(err)
	writer.Flush()

	fmt.Printf("🚀 Starting timeline export for @%s\n", username)
	startTime := time.Now()

	cursor := ""
	totalTweets := 0
	pageCount := 0

	for pageCount < *maxPages {
		pageCount++
		pageStartTime := time.Now()

		var resp *twitterapi.UserLastTweetsResponse
		err := retryRequest(func() error {
			var requestErr error
			resp, requestErr = api.GetUserLastTweets(twitterapi.UserLastTweetsRequest{
				UserId: info.Data.Id,
				Cursor: cursor,
			})
			return requestErr
		}, fmt.Sprintf("getting page %d of @%s timeline", pageCount, username))
		panicErr(err)

		tweetsInPage := len(resp.Data.Tweets)
		totalTweets += tweetsInPage
		fmt.Printf("📄 Page %d: got %d tweets in %v\n", pageCount, tweetsInPage, time.Since(pageStartTime))

		for _, tweet := range resp.Data.Tweets {
			record := []string{
				tweet.Id,
				tweet.CreatedAt,
				tweet.Text,
				fmt.Sprintf("%d", tweet.LikeCount),
				fmt.Sprintf("%d", tweet.ReplyCount),
				fmt.Sprintf("%d", tweet.RetweetCount),
			}
			err = writer.Write(record)
			panicErr(err)
		}
		writer.Flush()

		if !resp.HasNextPage || resp.NextCursor == "" {
			fmt.Println("📋 Reached end of timeline")
			break
		}
		cursor = resp.NextCursor
	}

	totalDuration := time.Since(startTime)
	fmt.Printf("🎉 Export completed!\n")
	fmt.Printf("📈 Final statistics:\n")
	fmt.Printf("   - Processed pages: %d\n", pageCount)
	fmt.Printf("   - Total tweets: %d\n", totalTweets)
	fmt.Printf("   - Total runtime: %v\n", totalDuration)
	fmt.Printf("💾 Data saved to %s\n", filename)
	fmt.Printf("   Import it with: import_csv_path=%s import_csv_account=%s\n", filename, username)
}

func retryRequest(requestFunc func() error, description string) error {
	maxRetries := 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		startTime := time.Now()
		err := requestFunc()
		duration := time.Since(startTime)

		if err == nil {
			if attempt > 1 {
				fmt.Printf("✅ Request successful on attempt %d in %v: %s\n", attempt, duration, description)
			}
			return nil
		}

		fmt.Printf("❌ Attempt %d/%d failed in %v for %s: %v\n", attempt, maxRetries, duration, description, err)

		if attempt < maxRetries {
			waitTime := time.Duration(attempt*2) * time.Second
			fmt.Printf("⏳ Waiting %v before next attempt...\n", waitTime)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("all %d attempts failed for %s", maxRetries, description)
}

func panicErr(err error) {
	if err != nil {
		panic(err)
	}
}
