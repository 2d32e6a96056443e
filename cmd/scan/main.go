package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/repazoo/repscan/claude"
	"github.com/repazoo/repscan/twitterapi"
)

const MAX_PAGES = 5

const SPOT_CHECK_PROMPT = `You are a social media reputation analyst. You receive a batch of tweets from one account plus the purpose of the check (for example "general", "employment", "political").

Score how safe this account's public presence is for the stated purpose:
- overall_score: 0-100, higher is safer
- risk_level: one of "low", "medium", "high", "critical"
- sentiment: one of "positive", "neutral", "negative", "mixed"
- flagged_tweet_ids: ids of tweets that materially lowered the score
- summary: 2-3 sentences on what drove the verdict

Respond with a single JSON object containing exactly those five fields and nothing else.`

// Verdict mirrors the JSON shape the prompt asks for.
type Verdict struct {
	OverallScore    float64  `json:"overall_score"`
	RiskLevel       string   `json:"risk_level"`
	Sentiment       string   `json:"sentiment"`
	FlaggedTweetIDs []string `json:"flagged_tweet_ids"`
	Summary         string   `json:"summary"`
}

type scanTweet struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	PostedAt string `json:"posted_at"`
	Likes    int    `json:"likes"`
	Replies  int    `json:"replies"`
	Retweets int    `json:"retweets"`
}

// Standalone spot check: fetches a user's recent tweets and analyzes them in
// one pass, without the daemon's cache or database.
func main() {
	handle := flag.String("user", "", "Handle of the account to scan (without @)")
	purpose := flag.String("purpose", "general", "Scan purpose (general, employment, political, ...)")
	customContext := flag.String("context", "", "Extra context for the analyst")
	limit := flag.Int("limit", 100, "Maximum number of tweets to analyze")
	flag.Parse()

	if *handle == "" {
		fmt.Println("Usage: scan -user <handle> [-purpose general] [-context \"...\"] [-limit 100]")
		os.Exit(1)
	}

	godotenv.Load()

	api := twitterapi.NewTwitterAPIService(os.Getenv("twitter_api_key"), os.Getenv("twitter_api_base_url"), os.Getenv("proxy_dsn"))

	model := os.Getenv("claude_model")
	if model == "" {
		model = claude.CLAUDE_MODEL
	}
	claudeApi, err := claude.NewClaudeClient(os.Getenv("claude_api_key"), "", os.Getenv("proxy_claude_dsn"), model)
	panicErr(err)

	username := strings.TrimPrefix(*handle, "@")
	fmt.Printf("🔍 Resolving @%s...\n", username)
	info, err := api.GetUserInfo(username)
	panicErr(err)
	fmt.Printf("👤 %s (@%s): %d tweets, %d followers\n", info.Data.Name, info.Data.UserName, info.Data.StatusesCount, info.Data.FollowersCount)

	fmt.Printf("📥 Fetching up to %d tweets...\n", *limit)
	tweets, err := fetchRecentTweets(api, info.Data.Id, *limit)
	panicErr(err)

	if len(tweets) == 0 {
		fmt.Println("📋 No tweets found, nothing to analyze")
		return
	}
	fmt.Printf("📄 Got %d tweets, newest from %s\n", len(tweets), tweets[0].CreatedAt)

	startTime := time.Now()
	verdict, err := analyzeTweets(claudeApi, tweets, *purpose, *customContext)
	panicErr(err)

	fmt.Printf("🎉 Analysis completed in %v\n", time.Since(startTime))
	fmt.Printf("📈 Verdict for @%s (purpose: %s):\n", info.Data.UserName, *purpose)
	fmt.Printf("   - Score: %.1f/100\n", verdict.OverallScore)
	fmt.Printf("   - Risk level: %s\n", verdict.RiskLevel)
	fmt.Printf("   - Sentiment: %s\n", verdict.Sentiment)
	if len(verdict.FlaggedTweetIDs) > 0 {
		fmt.Printf("   - Flagged tweets: %s\n", strings.Join(verdict.FlaggedTweetIDs, ", "))
	}
	fmt.Printf("   - Summary: %s\n", verdict.Summary)
}

func fetchRecentTweets(api *twitterapi.TwitterAPIService, userID string, limit int) ([]twitterapi.Tweet, error) {
	var collected []twitterapi.Tweet
	cursor := ""

	for page := 0; page < MAX_PAGES; page++ {
		resp, err := api.GetUserLastTweets(twitterapi.UserLastTweetsRequest{
			UserId: userID,
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}

		collected = append(collected, resp.Data.Tweets...)
		if len(collected) >= limit {
			return collected[:limit], nil
		}
		if !resp.HasNextPage || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return collected, nil
}

func analyzeTweets(claudeApi *claude.ClaudeApi, tweets []twitterapi.Tweet, purpose string, customContext string) (*Verdict, error) {
	batch := make([]scanTweet, 0, len(tweets))
	for _, tweet := range tweets {
		batch = append(batch, scanTweet{
			ID:       tweet.Id,
			Text:     tweet.Text,
			PostedAt: tweet.CreatedAt,
			Likes:    tweet.LikeCount,
			Replies:  tweet.ReplyCount,
			Retweets: tweet.RetweetCount,
		})
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	prompt := SPOT_CHECK_PROMPT
	if promptPath := os.Getenv("analysis_prompt_path"); promptPath != "" {
		content, err := os.ReadFile(promptPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read prompt %s: %w", promptPath, err)
		}
		prompt = string(content)
	}

	messages := claude.ClaudeMessages{
		{Role: claude.ROLE_USER, Content: "analysis purpose: " + purpose},
	}
	if customContext != "" {
		messages = append(messages, claude.ClaudeMessage{Role: claude.ROLE_USER, Content: "additional context from the requester: " + customContext})
	}
	messages = append(messages, claude.ClaudeMessage{Role: claude.ROLE_USER, Content: "tweets to analyze: " + string(data)})
	messages = append(messages, claude.ClaudeMessage{Role: claude.ROLE_ASSISTANT, Content: "{"})

	resp, err := claudeApi.SendMessage(messages, prompt)
	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response from analysis")
	}

	verdict := Verdict{}
	if err := json.Unmarshal([]byte("{"+resp.Content[0].Text), &verdict); err != nil {
		return nil, fmt.Errorf("cannot parse verdict: %w, raw: %s", err, resp.Content[0].Text)
	}
	return &verdict, nil
}

func panicErr(err error) {
	if err != nil {
		panic(err)
	}
}
