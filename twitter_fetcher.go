package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/repazoo/repscan/twitterapi"
)

const MAX_FETCH_PAGES = 10

// TwitterFetcher pulls a user's timeline through the paged last_tweets
// endpoint and cuts the stream at the caller's watermark.
type TwitterFetcher struct {
	api      *twitterapi.TwitterAPIService
	pageSize int
}

func NewTwitterFetcher(api *twitterapi.TwitterAPIService, pageSize int) *TwitterFetcher {
	if pageSize <= 0 {
		pageSize = DEFAULT_FETCH_PAGE_SIZE
	}
	return &TwitterFetcher{api: api, pageSize: pageSize}
}

// FetchUserTweets collects tweets newest first, following cursors until limit
// tweets are gathered, the watermark is crossed or pages run out. An empty
// sinceID means a cold pull of the most recent tweets. The sinceID filter is
// applied locally as well because some backends ignore the query parameter.
func (f *TwitterFetcher) FetchUserTweets(externalID string, sinceID string, limit int) ([]twitterapi.Tweet, error) {
	if limit <= 0 {
		limit = f.pageSize
	}

	var collected []twitterapi.Tweet
	cursor := ""
	for page := 0; page < MAX_FETCH_PAGES; page++ {
		resp, err := f.api.GetUserLastTweets(twitterapi.UserLastTweetsRequest{
			UserId:  externalID,
			SinceId: sinceID,
			Cursor:  cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch tweets for user %s: %w", externalID, err)
		}

		crossedWatermark := false
		for _, tweet := range resp.Data.Tweets {
			if sinceID != "" && comparePlatformIDs(tweet.Id, sinceID) <= 0 {
				crossedWatermark = true
				continue
			}
			collected = append(collected, tweet)
			if len(collected) >= limit {
				return collected, nil
			}
		}

		if crossedWatermark || !resp.HasNextPage || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return collected, nil
}

// tweetModelsFromAPI converts fetched tweets into cache rows. FetchedAt is
// stamped by the store on insert.
func tweetModelsFromAPI(tweets []twitterapi.Tweet, source string) []TweetModel {
	models := make([]TweetModel, 0, len(tweets))
	for _, tweet := range tweets {
		createdAt, _ := twitterapi.ParseTweetTime(tweet.CreatedAt)
		models = append(models, TweetModel{
			PlatformTweetID: tweet.Id,
			Content:         tweet.Text,
			LikeCount:       tweet.LikeCount,
			ReplyCount:      tweet.ReplyCount,
			RetweetCount:    tweet.RetweetCount,
			Source:          source,
			CreatedAt:       createdAt,
		})
	}
	return models
}

// comparePlatformIDs orders snowflake IDs numerically: -1, 0 or 1. IDs too
// large for int64 fall back to length-then-lexicographic order, which matches
// numeric order for decimal strings.
func comparePlatformIDs(a, b string) int {
	aNum, aErr := strconv.ParseInt(a, 10, 64)
	bNum, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// newestPlatformID returns the largest tweet ID in the batch, empty for an
// empty batch.
func newestPlatformID(tweets []twitterapi.Tweet) string {
	newest := ""
	for _, tweet := range tweets {
		if newest == "" || comparePlatformIDs(tweet.Id, newest) > 0 {
			newest = tweet.Id
		}
	}
	return newest
}
