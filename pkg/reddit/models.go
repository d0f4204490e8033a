package reddit

import (
	"time"

	"leadscout/pkg/models"
)

// listingResponse is the envelope of every Reddit listing
type listingResponse struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

// thing is a single child of a listing; t3 is a post, t1 a comment
type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

type thingData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Body       string  `json:"body"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	LinkTitle  string  `json:"link_title"`
	Stickied   bool    `json:"stickied"`
}

// tokenResponse is returned by the OAuth token endpoint. Reddit answers
// bad credentials with 200 and an error field.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

// toContentItem converts a listing child into the pipeline's item type
func (t thing) toContentItem() (models.ContentItem, bool) {
	d := t.Data
	item := models.ContentItem{
		ID:         d.ID,
		AuthorName: d.Author,
		Subreddit:  d.Subreddit,
		Score:      d.Score,
		CreatedAt:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
	}

	switch t.Kind {
	case "t3":
		item.Kind = models.KindPost
		item.Title = d.Title
		item.Body = d.Selftext
		item.URL = d.URL
		if item.URL == "" {
			item.URL = Permalink(d.Permalink)
		}
	case "t1":
		item.Kind = models.KindComment
		item.Title = d.LinkTitle
		item.Body = d.Body
		item.URL = Permalink(d.Permalink)
	default:
		return models.ContentItem{}, false
	}

	if item.ID == "" {
		item.ID = StripFullname(d.Name)
	}
	return item, item.ID != ""
}
