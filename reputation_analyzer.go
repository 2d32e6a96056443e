package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/repazoo/repscan/claude"
)

const DEFAULT_ANALYSIS_PROMPT = `You are a social media reputation analyst. You receive a batch of tweets from one account plus the purpose of the check (for example "general", "employment", "political").

Score how safe this account's public presence is for the stated purpose:
- overall_score: 0-100, higher is safer
- risk_level: one of "low", "medium", "high", "critical"
- sentiment: one of "positive", "neutral", "negative", "mixed"
- flagged_tweet_ids: ids of tweets that materially lowered the score
- summary: 2-3 sentences on what drove the verdict

If the batch is empty, return a neutral verdict with a summary saying there was no content to analyze.

Respond with a single JSON object containing exactly those five fields and nothing else.`

// AnalysisVerdict is the parsed judgment for one batch of tweets.
type AnalysisVerdict struct {
	OverallScore    float64  `json:"overall_score"`
	RiskLevel       string   `json:"risk_level"`
	Sentiment       string   `json:"sentiment"`
	FlaggedTweetIDs []string `json:"flagged_tweet_ids"`
	Summary         string   `json:"summary"`
}

type analyzerTweet struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	PostedAt string `json:"posted_at"`
	Likes    int    `json:"likes"`
	Replies  int    `json:"replies"`
	Retweets int    `json:"retweets"`
}

// ReputationAnalyzer turns a tweet batch into an AnalysisVerdict via the
// Claude messages API.
type ReputationAnalyzer struct {
	claudeApi    *claude.ClaudeApi
	systemPrompt string
}

func NewReputationAnalyzer(claudeApi *claude.ClaudeApi, systemPrompt []byte) *ReputationAnalyzer {
	prompt := string(systemPrompt)
	if strings.TrimSpace(prompt) == "" {
		prompt = DEFAULT_ANALYSIS_PROMPT
	}
	return &ReputationAnalyzer{
		claudeApi:    claudeApi,
		systemPrompt: prompt,
	}
}

func (a *ReputationAnalyzer) Analyze(tweets []TweetModel, purpose string, customContext string) (*AnalysisVerdict, error) {
	batch := make([]analyzerTweet, 0, len(tweets))
	for _, tweet := range tweets {
		batch = append(batch, analyzerTweet{
			ID:       tweet.PlatformTweetID,
			Text:     tweet.Content,
			PostedAt: tweet.CreatedAt.Format("2006-01-02 15:04"),
			Likes:    tweet.LikeCount,
			Replies:  tweet.ReplyCount,
			Retweets: tweet.RetweetCount,
		})
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal tweets for analysis: %w", err)
	}

	messages := claude.ClaudeMessages{}
	messages = append(messages, claude.ClaudeMessage{Role: claude.ROLE_USER, Content: "analysis purpose: " + purpose})
	if customContext != "" {
		messages = append(messages, claude.ClaudeMessage{Role: claude.ROLE_USER, Content: "additional context from the requester: " + customContext})
	}
	messages = append(messages, claude.ClaudeMessage{Role: claude.ROLE_USER, Content: "tweets to analyze: " + string(payload)})
	messages = append(messages, claude.ClaudeMessage{Role: claude.ROLE_ASSISTANT, Content: "{"})

	resp, err := a.claudeApi.SendMessage(messages, a.systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("claude analysis: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("claude analysis: empty response content")
	}

	raw := "{" + resp.Content[0].Text
	verdict := AnalysisVerdict{}
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		log.Printf("error unmarshaling claude verdict: %s; extracting fields from raw response", err)
		verdict = extractVerdictFields(raw)
	}

	normalizeVerdict(&verdict)
	return &verdict, nil
}

// extractVerdictFields pulls the verdict fields one by one, surviving the
// trailing commentary and half-broken JSON the model sometimes produces.
func extractVerdictFields(raw string) AnalysisVerdict {
	data := []byte(raw)
	verdict := AnalysisVerdict{}
	if score, err := jsonparser.GetFloat(data, "overall_score"); err == nil {
		verdict.OverallScore = score
	}
	if riskLevel, err := jsonparser.GetString(data, "risk_level"); err == nil {
		verdict.RiskLevel = riskLevel
	}
	if sentiment, err := jsonparser.GetString(data, "sentiment"); err == nil {
		verdict.Sentiment = sentiment
	}
	if summary, err := jsonparser.GetString(data, "summary"); err == nil {
		verdict.Summary = summary
	}
	jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if dataType == jsonparser.String {
			verdict.FlaggedTweetIDs = append(verdict.FlaggedTweetIDs, string(value))
		}
	}, "flagged_tweet_ids")
	return verdict
}

func normalizeVerdict(verdict *AnalysisVerdict) {
	if verdict.OverallScore < 0 {
		verdict.OverallScore = 0
	}
	if verdict.OverallScore > 100 {
		verdict.OverallScore = 100
	}
	switch verdict.RiskLevel {
	case RISK_LEVEL_LOW, RISK_LEVEL_MEDIUM, RISK_LEVEL_HIGH, RISK_LEVEL_CRITICAL:
	default:
		verdict.RiskLevel = riskLevelForScore(verdict.OverallScore)
	}
	switch verdict.Sentiment {
	case SENTIMENT_POSITIVE, SENTIMENT_NEUTRAL, SENTIMENT_NEGATIVE, SENTIMENT_MIXED:
	default:
		verdict.Sentiment = SENTIMENT_NEUTRAL
	}
}

func riskLevelForScore(score float64) string {
	switch {
	case score >= 80:
		return RISK_LEVEL_LOW
	case score >= 60:
		return RISK_LEVEL_MEDIUM
	case score >= 40:
		return RISK_LEVEL_HIGH
	default:
		return RISK_LEVEL_CRITICAL
	}
}
