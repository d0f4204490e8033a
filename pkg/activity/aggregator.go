// Package activity folds fetched posts and comments into per-author
// statistics and ranks the authors for reporting.
package activity

import (
	"leadscout/pkg/models"
)

// Aggregator accumulates AuthorActivity across any number of listings
type Aggregator struct {
	authors map[string]*models.AuthorActivity
	skipped int
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{authors: make(map[string]*models.AuthorActivity)}
}

// Add folds items into the running statistics. Items by deleted authors
// are ignored.
func (a *Aggregator) Add(items ...models.ContentItem) {
	for _, item := range items {
		if item.IsDeleted() {
			a.skipped++
			continue
		}

		author, ok := a.authors[item.AuthorName]
		if !ok {
			author = models.NewAuthorActivity(item.AuthorName)
			a.authors[item.AuthorName] = author
		}

		if item.Kind == models.KindComment {
			author.CommentCount++
		} else {
			author.PostCount++
		}
		author.KarmaSum += item.Score
		if item.Subreddit != "" {
			author.AddSubreddit(item.Subreddit)
		}
	}
}

// Authors returns the accumulated mapping keyed by username
func (a *Aggregator) Authors() map[string]*models.AuthorActivity {
	return a.authors
}

// Len is the number of distinct authors seen
func (a *Aggregator) Len() int {
	return len(a.authors)
}

// Skipped counts items dropped for having no usable author
func (a *Aggregator) Skipped() int {
	return a.skipped
}

// Aggregate is a single pass fold of items into per-author statistics
func Aggregate(items []models.ContentItem) map[string]*models.AuthorActivity {
	agg := NewAggregator()
	agg.Add(items...)
	return agg.Authors()
}
