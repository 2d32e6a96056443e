package main

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalysisLedger records which cached tweets were included in which analysis
// run. The (tweet_id, analysis_result_id) pair is unique, re-recording the
// same link is a no-op, so a scan can be retried without double bookkeeping.
type AnalysisLedger struct {
	db *gorm.DB
}

func NewAnalysisLedger(db *gorm.DB) *AnalysisLedger {
	return &AnalysisLedger{db: db}
}

// RecordAnalyzedTweets links every tweet ID to the analysis result. The
// purpose must match the parent result's purpose, links carry it denormalized
// so delta queries skip the join to analysis_results. Duplicate links are
// silently ignored.
func (l *AnalysisLedger) RecordAnalyzedTweets(analysisResultID, purpose string, tweetIDs []string) error {
	if len(tweetIDs) == 0 {
		return nil
	}

	return l.db.Transaction(func(tx *gorm.DB) error {
		var result AnalysisResultModel
		err := tx.Where("id = ?", analysisResultID).First(&result).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("analysis result %s: %w", analysisResultID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get analysis result %s: %w", analysisResultID, errors.Join(ErrStorage, err))
		}
		if result.Purpose != purpose {
			return fmt.Errorf("purpose %q does not match analysis result purpose %q", purpose, result.Purpose)
		}

		now := time.Now()
		links := make([]TweetAnalysisModel, 0, len(tweetIDs))
		for _, tweetID := range tweetIDs {
			links = append(links, TweetAnalysisModel{
				TweetID:          tweetID,
				AnalysisResultID: analysisResultID,
				Purpose:          purpose,
				AnalyzedAt:       now,
			})
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tweet_id"}, {Name: "analysis_result_id"}},
			DoNothing: true,
		}).CreateInBatches(&links, 200).Error
		if err != nil {
			return fmt.Errorf("record analyzed tweets for result %s: %w", analysisResultID, errors.Join(ErrStorage, err))
		}
		return nil
	})
}

// GetAnalyzedTweetIDs returns the set of the account's tweet IDs already
// covered by an analysis of this purpose since the cutoff. The scan subtracts
// this set from its window to find what still needs analyzing.
func (l *AnalysisLedger) GetAnalyzedTweetIDs(accountID, purpose string, since time.Time) (map[string]bool, error) {
	var tweetIDs []string
	err := l.db.Model(&TweetAnalysisModel{}).
		Joins("JOIN tweets ON tweets.id = tweet_analyses.tweet_id").
		Where("tweets.account_id = ? AND tweet_analyses.purpose = ? AND tweet_analyses.analyzed_at >= ?", accountID, purpose, since).
		Pluck("tweet_analyses.tweet_id", &tweetIDs).Error
	if err != nil {
		return nil, fmt.Errorf("get analyzed tweet ids for account %s: %w", accountID, errors.Join(ErrStorage, err))
	}

	analyzed := make(map[string]bool, len(tweetIDs))
	for _, id := range tweetIDs {
		analyzed[id] = true
	}
	return analyzed, nil
}

// GetLinkCount returns the number of ledger links for one analysis result.
func (l *AnalysisLedger) GetLinkCount(analysisResultID string) (int64, error) {
	var count int64
	err := l.db.Model(&TweetAnalysisModel{}).
		Where("analysis_result_id = ?", analysisResultID).
		Count(&count).Error
	return count, err
}
