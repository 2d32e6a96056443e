package main

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testDatabaseFile = "test_repscan.db"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	os.Remove(testDatabaseFile)
	db, err := OpenDatabase(testDatabaseFile)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		CloseDatabase(db)
		os.Remove(testDatabaseFile)
	})
	return db
}

func createTestAccount(t *testing.T, db *gorm.DB, handle string) *AccountModel {
	t.Helper()
	registry := NewAccountRegistry(db)
	account, err := registry.CreateAccount(AccountModel{
		ExternalID:  "ext_" + handle,
		Handle:      handle,
		DisplayName: handle,
	})
	require.NoError(t, err, "failed to create test account")
	return account
}

func makeTestTweets(count int, startID int64, postedAt time.Time) []TweetModel {
	tweets := make([]TweetModel, 0, count)
	for i := 0; i < count; i++ {
		id := startID + int64(i)
		tweets = append(tweets, TweetModel{
			PlatformTweetID: fmt.Sprintf("%d", id),
			Content:         fmt.Sprintf("tweet number %d", id),
			Source:          TWEET_SOURCE_API,
			CreatedAt:       postedAt.Add(time.Duration(i) * time.Minute),
		})
	}
	return tweets
}
