package activity

import (
	"testing"

	"leadscout/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioItems() []models.ContentItem {
	return []models.ContentItem{
		{ID: "p1", Kind: models.KindPost, AuthorName: "alice", Score: 10, Subreddit: "startups"},
		{ID: "p2", Kind: models.KindPost, AuthorName: models.DeletedAuthor, Score: 5, Subreddit: "startups"},
		{ID: "p3", Kind: models.KindPost, AuthorName: "alice", Score: 3, Subreddit: "sales"},
	}
}

func TestAggregateScenario(t *testing.T) {
	authors := Aggregate(scenarioItems())

	require.Len(t, authors, 1)
	alice := authors["alice"]
	require.NotNil(t, alice)
	assert.Equal(t, 2, alice.PostCount)
	assert.Equal(t, 0, alice.CommentCount)
	assert.Equal(t, 13, alice.KarmaSum)
	assert.Equal(t, []string{"startups", "sales"}, alice.Subreddits)
	assert.NotContains(t, authors, models.DeletedAuthor)
}

func TestRankScenarioWithThresholds(t *testing.T) {
	ranked := Rank(Aggregate(scenarioItems()), RankOptions{MinPosts: 2, MinKarma: 10, By: ByKarma})

	require.Len(t, ranked, 1)
	assert.Equal(t, models.RankedUser{
		Username:      "alice",
		Posts:         2,
		TotalActivity: 2,
		Karma:         13,
		Subreddits:    []string{"startups", "sales"},
	}, ranked[0])
}

func TestDeletedAuthorsNeverAggregated(t *testing.T) {
	agg := NewAggregator()
	agg.Add(
		models.ContentItem{ID: "x", AuthorName: models.DeletedAuthor, Score: 100},
		models.ContentItem{ID: "y", AuthorName: "", Score: 100},
		models.ContentItem{ID: "z", Kind: models.KindComment, AuthorName: models.DeletedAuthor},
	)
	assert.Zero(t, agg.Len())
	assert.Equal(t, 3, agg.Skipped())
}

func TestCommentsCountedSeparately(t *testing.T) {
	agg := NewAggregator()
	agg.Add(
		models.ContentItem{ID: "p", Kind: models.KindPost, AuthorName: "bob", Score: 2, Subreddit: "SaaS"},
		models.ContentItem{ID: "c1", Kind: models.KindComment, AuthorName: "bob", Score: 1, Subreddit: "saas"},
		models.ContentItem{ID: "c2", Kind: models.KindComment, AuthorName: "bob", Score: 4, Subreddit: "startups"},
	)

	bob := agg.Authors()["bob"]
	require.NotNil(t, bob)
	assert.Equal(t, 1, bob.PostCount)
	assert.Equal(t, 2, bob.CommentCount)
	assert.Equal(t, 3, bob.TotalActivity())
	assert.Equal(t, 7, bob.KarmaSum)
	assert.Equal(t, []string{"SaaS", "startups"}, bob.Subreddits, "subreddit names compare case-insensitively")
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	items := scenarioItems()
	reversed := []models.ContentItem{items[2], items[1], items[0]}

	a := Aggregate(items)["alice"]
	b := Aggregate(reversed)["alice"]
	assert.Equal(t, a.PostCount, b.PostCount)
	assert.Equal(t, a.KarmaSum, b.KarmaSum)
	assert.ElementsMatch(t, a.Subreddits, b.Subreddits)
}

func TestRankOrderingAndTieBreak(t *testing.T) {
	items := []models.ContentItem{
		{AuthorName: "carol", Score: 50, Subreddit: "a"},
		{AuthorName: "dave", Score: 50, Subreddit: "a"},
		{AuthorName: "erin", Score: 20, Subreddit: "a"},
		{AuthorName: "erin", Score: 30, Subreddit: "b"},
		{AuthorName: "frank", Score: 10, Subreddit: "a"},
		{AuthorName: "frank", Kind: models.KindComment, Score: 1, Subreddit: "a"},
		{AuthorName: "frank", Kind: models.KindComment, Score: 1, Subreddit: "a"},
	}
	authors := Aggregate(items)

	tests := []struct {
		name     string
		opts     RankOptions
		expected []string
	}{
		{
			name:     "by karma, ties broken by activity then name",
			opts:     RankOptions{By: ByKarma},
			expected: []string{"erin", "carol", "dave", "frank"},
		},
		{
			name:     "by activity, ties broken by karma then name",
			opts:     RankOptions{By: ByActivity},
			expected: []string{"frank", "erin", "carol", "dave"},
		},
		{
			name:     "truncated",
			opts:     RankOptions{By: ByKarma, Limit: 2},
			expected: []string{"erin", "carol"},
		},
		{
			name:     "min posts filter",
			opts:     RankOptions{By: ByKarma, MinPosts: 2},
			expected: []string{"erin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := Rank(authors, tt.opts)
			names := make([]string, len(ranked))
			for i, u := range ranked {
				names[i] = u.Username
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestRankIsDeterministic(t *testing.T) {
	var items []models.ContentItem
	for _, name := range []string{"zed", "amy", "kim", "bo", "lee", "ann"} {
		items = append(items, models.ContentItem{AuthorName: name, Score: 7, Subreddit: "x"})
	}

	first := Rank(Aggregate(items), RankOptions{By: ByKarma, Limit: 4})
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Rank(Aggregate(items), RankOptions{By: ByKarma, Limit: 4}))
	}
	assert.Equal(t, "amy", first[0].Username)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, RankOptions{}))
}

func TestParseRankKey(t *testing.T) {
	k, err := ParseRankKey("karma")
	require.NoError(t, err)
	assert.Equal(t, ByKarma, k)

	k, err = ParseRankKey("")
	require.NoError(t, err)
	assert.Equal(t, ByActivity, k)

	_, err = ParseRankKey("followers")
	assert.Error(t, err)
}
