package models

import (
	"strings"
	"time"
)

// DeletedAuthor is the author name Reddit reports for removed accounts
const DeletedAuthor = "[deleted]"

// ItemKind distinguishes submissions from comments
type ItemKind string

const (
	KindPost    ItemKind = "post"
	KindComment ItemKind = "comment"
)

// ListingKind selects which listing of a subreddit to read
type ListingKind string

const (
	ListingNew           ListingKind = "new"
	ListingTop           ListingKind = "top"
	ListingHot           ListingKind = "hot"
	ListingControversial ListingKind = "controversial"
	ListingComments      ListingKind = "comments"
)

// ListingQuery describes one listing request
type ListingQuery struct {
	Kind   ListingKind `json:"kind"`
	Period string      `json:"period,omitempty"` // only for top and controversial
	Limit  int         `json:"limit"`
}

// UsesPeriod reports whether the listing accepts a time period
func (q ListingQuery) UsesPeriod() bool {
	return q.Kind == ListingTop || q.Kind == ListingControversial
}

// ContentItem is a single fetched post or comment
type ContentItem struct {
	ID         string    `json:"id"`
	Kind       ItemKind  `json:"kind"`
	AuthorName string    `json:"author"`
	Subreddit  string    `json:"subreddit"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body,omitempty"`
	URL        string    `json:"url"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsDeleted reports whether the author is the deleted-account sentinel
func (c ContentItem) IsDeleted() bool {
	return c.AuthorName == "" || c.AuthorName == DeletedAuthor
}

// AuthorActivity accumulates per-author statistics within one run
type AuthorActivity struct {
	Username     string
	PostCount    int
	CommentCount int
	KarmaSum     int
	// Subreddits in first-seen order; seen guards membership
	Subreddits []string
	seen       map[string]struct{}
}

// NewAuthorActivity creates an empty activity record
func NewAuthorActivity(username string) *AuthorActivity {
	return &AuthorActivity{Username: username, seen: make(map[string]struct{})}
}

// AddSubreddit records a subreddit once, preserving discovery order
func (a *AuthorActivity) AddSubreddit(name string) {
	if a.seen == nil {
		a.seen = make(map[string]struct{})
	}
	key := strings.ToLower(name)
	if _, ok := a.seen[key]; ok {
		return
	}
	a.seen[key] = struct{}{}
	a.Subreddits = append(a.Subreddits, name)
}

// HasSubreddit reports whether the author was seen in the subreddit
func (a *AuthorActivity) HasSubreddit(name string) bool {
	_, ok := a.seen[strings.ToLower(name)]
	return ok
}

// TotalActivity is posts plus comments
func (a *AuthorActivity) TotalActivity() int {
	return a.PostCount + a.CommentCount
}

// RankedUser is the reporting view of an author, persisted in the snapshot
type RankedUser struct {
	Username      string   `json:"username"`
	Posts         int      `json:"posts"`
	Comments      int      `json:"comments"`
	TotalActivity int      `json:"totalActivity"`
	Karma         int      `json:"karma"`
	Subreddits    []string `json:"subreddits"`
}

// ProfileURL links to the author's Reddit profile
func (r RankedUser) ProfileURL() string {
	return "https://reddit.com/user/" + r.Username
}

// QualificationResult is the classifier's decision for one item
type QualificationResult struct {
	IsQualified bool   `json:"isQualified"`
	Analysis    string `json:"analysis"`
	Reason      string `json:"reason"`
}
