package reddit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"leadscout/pkg/models"
)

const (
	// DefaultBaseURL serves authenticated API requests
	DefaultBaseURL = "https://oauth.reddit.com"

	// DefaultAuthURL issues OAuth tokens
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"

	// DefaultFeedURL serves public RSS feeds
	DefaultFeedURL = "https://www.reddit.com"

	// WebURL prefixes permalinks
	WebURL = "https://www.reddit.com"

	// MaxListingLimit is the largest page Reddit returns
	MaxListingLimit = 100

	// DefaultListingLimit is used when a query does not set a limit
	DefaultListingLimit = 25
)

// ListingPath returns the path of a subreddit listing, relative to the API root
func ListingPath(subreddit string, kind models.ListingKind) string {
	if kind == "" {
		kind = models.ListingNew
	}
	return fmt.Sprintf("/r/%s/%s", url.PathEscape(SanitizeSubreddit(subreddit)), kind)
}

// ListingURL constructs the JSON API URL for a listing query
func ListingURL(baseURL, subreddit string, q models.ListingQuery) string {
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), ListingPath(subreddit, q.Kind), listingParams(q, true).Encode())
}

// FeedURL constructs the public RSS URL for a listing query
func FeedURL(baseURL, subreddit string, q models.ListingQuery) string {
	return fmt.Sprintf("%s%s/.rss?%s", strings.TrimRight(baseURL, "/"), ListingPath(subreddit, q.Kind), listingParams(q, false).Encode())
}

// SubmissionURL constructs the API URL for a single post
func SubmissionURL(baseURL, id string) string {
	return fmt.Sprintf("%s/by_id/%s?raw_json=1", strings.TrimRight(baseURL, "/"), Fullname("t3", id))
}

func listingParams(q models.ListingQuery, rawJSON bool) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(ClampLimit(q.Limit)))
	if q.UsesPeriod() && q.Period != "" {
		params.Set("t", q.Period)
	}
	if rawJSON {
		params.Set("raw_json", "1")
	}
	return params
}

// ClampLimit keeps a listing size inside what Reddit accepts
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListingLimit
	}
	if limit > MaxListingLimit {
		return MaxListingLimit
	}
	return limit
}

// Fullname prefixes an id with its thing kind, e.g. t3_abc123
func Fullname(kind, id string) string {
	if strings.HasPrefix(id, kind+"_") {
		return id
	}
	return kind + "_" + id
}

// StripFullname removes a t1_/t3_ style prefix
func StripFullname(id string) string {
	if len(id) > 3 && id[0] == 't' && id[2] == '_' {
		return id[3:]
	}
	return id
}

// Permalink turns a relative permalink into an absolute URL
func Permalink(path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return WebURL + path
}

// SanitizeSubreddit trims whitespace, slashes and an r/ prefix
func SanitizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "/")
	name = strings.TrimPrefix(name, "r/")
	return name
}

// SanitizeUsername trims a /u/ or u/ prefix from a feed author
func SanitizeUsername(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "u/")
	name = strings.TrimPrefix(name, "user/")
	return name
}

// IsValidSubreddit checks the name against Reddit's subreddit naming rules
func IsValidSubreddit(name string) bool {
	if len(name) < 2 || len(name) > 21 {
		return false
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}
