package reddit

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"leadscout/pkg/config"
	errs "leadscout/pkg/errors"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
)

// FeedSource reads public subreddit RSS feeds without OAuth credentials.
// Feeds carry no score, so Score is always zero.
type FeedSource struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	baseURL    string
	userAgent  string
	logger     logger.Logger
}

// NewFeedSource creates an RSS backed source
func NewFeedSource(cfg config.RedditConfig, log logger.Logger) *FeedSource {
	if log == nil {
		log = logger.GetLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedSource{
		httpClient: &http.Client{Timeout: timeout},
		parser:     gofeed.NewParser(),
		baseURL:    cmp.Or(cfg.FeedURL, DefaultFeedURL),
		userAgent:  cmp.Or(cfg.UserAgent, DefaultUserAgent),
		logger:     logger.ForComponent(log, "reddit-feed"),
	}
}

// Listing fetches and parses a subreddit feed
func (f *FeedSource) Listing(ctx context.Context, subreddit string, q models.ListingQuery) ([]models.ContentItem, error) {
	target := FeedURL(f.baseURL, subreddit, q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/atom+xml, application/rss+xml, application/xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.WarnWithFields("feed request failed", map[string]interface{}{
			"subreddit": subreddit,
			"status":    resp.StatusCode,
		})
		return nil, errs.FromStatusCode(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read feed: %v", err)
	}

	feed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse feed: %v", err)
	}

	kind := models.KindPost
	if q.Kind == models.ListingComments {
		kind = models.KindComment
	}

	items := make([]models.ContentItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := f.normalizeItem(entry, subreddit, kind)
		if !ok {
			continue
		}
		items = append(items, item)
		if q.Limit > 0 && len(items) >= q.Limit {
			break
		}
	}

	f.logger.DebugWithFields("parsed feed", map[string]interface{}{
		"subreddit": subreddit,
		"items":     len(items),
	})
	return items, nil
}

func (f *FeedSource) normalizeItem(entry *gofeed.Item, subreddit string, kind models.ItemKind) (models.ContentItem, bool) {
	id := cmp.Or(entry.GUID, entry.Link)
	if id == "" {
		return models.ContentItem{}, false
	}

	item := models.ContentItem{
		ID:        StripFullname(id),
		Kind:      kind,
		Subreddit: SanitizeSubreddit(subreddit),
		Title:     strings.TrimSpace(entry.Title),
		URL:       entry.Link,
	}

	if entry.PublishedParsed != nil {
		item.CreatedAt = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		item.CreatedAt = entry.UpdatedParsed.UTC()
	}

	html := cmp.Or(entry.Content, entry.Description)
	body, linkedAuthor := extractContent(html)
	item.Body = body
	item.AuthorName = cmp.Or(extractAuthor(entry), linkedAuthor)

	return item, true
}

func extractAuthor(entry *gofeed.Item) string {
	for _, author := range entry.Authors {
		if author != nil && author.Name != "" {
			return SanitizeUsername(author.Name)
		}
	}
	if entry.Author != nil && entry.Author.Name != "" {
		return SanitizeUsername(entry.Author.Name)
	}
	return ""
}

// extractContent pulls the markdown body text and the submitter link out of
// a feed entry's HTML
func extractContent(html string) (string, string) {
	if strings.TrimSpace(html) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	text := strings.TrimSpace(doc.Find(".md").First().Text())
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}

	var author string
	doc.Find(`a[href*="/user/"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		idx := strings.Index(href, "/user/")
		name := strings.Trim(href[idx+len("/user/"):], "/")
		if name != "" {
			author = name
			return false
		}
		return true
	})
	return text, author
}

var _ Source = (*FeedSource)(nil)
