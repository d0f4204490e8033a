package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"leadscout/pkg/config"
	errs "leadscout/pkg/errors"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingFixture = `{
  "kind": "Listing",
  "data": {
    "after": "t3_c",
    "children": [
      {"kind": "t3", "data": {"id": "a", "author": "alice", "subreddit": "SaaS", "title": "Need a tool",
        "selftext": "looking for help", "url": "https://example.com/a", "score": 12, "created_utc": 1700000000.0}},
      {"kind": "t3", "data": {"id": "b", "author": "[deleted]", "subreddit": "SaaS", "title": "gone",
        "permalink": "/r/SaaS/comments/b/gone/", "score": 1, "created_utc": 1700000100.0}},
      {"kind": "more", "data": {"id": "zzz"}}
    ]
  }
}`

const commentFixture = `{
  "kind": "Listing",
  "data": {
    "children": [
      {"kind": "t1", "data": {"id": "c1", "author": "bob", "subreddit": "startups", "body": "same here",
        "link_title": "Launch thread", "permalink": "/r/startups/comments/x/launch/c1/", "score": 4, "created_utc": 1700000200.0}}
    ]
  }
}`

type fakeReddit struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	lastAuth    atomic.Value
	lastQuery   atomic.Value
	listingCode int
	tokenBody   string
}

func newFakeReddit(t *testing.T) *fakeReddit {
	t.Helper()
	f := &fakeReddit{
		listingCode: http.StatusOK,
		tokenBody:   `{"access_token":"tok-1","token_type":"bearer","expires_in":3600,"scope":"*"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(f.tokenBody))
	})
	mux.HandleFunc("/r/SaaS/new", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		f.lastQuery.Store(r.URL.RawQuery)
		w.Header().Set("X-Ratelimit-Remaining", "598.0")
		if f.listingCode != http.StatusOK {
			w.WriteHeader(f.listingCode)
			_, _ = w.Write([]byte(`{"message":"Too Many Requests","error":429}`))
			return
		}
		_, _ = w.Write([]byte(listingFixture))
	})
	mux.HandleFunc("/r/startups/comments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(commentFixture))
	})
	mux.HandleFunc("/by_id/t3_a", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingFixture))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeReddit) client(log logger.Logger) *Client {
	return NewClient(config.RedditConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		Username:     "user",
		Password:     "pass",
		UserAgent:    "leadscout-test/1.0",
		BaseURL:      f.server.URL,
		AuthURL:      f.server.URL + "/api/v1/access_token",
		Timeout:      5 * time.Second,
	}, log)
}

func TestClientListingPosts(t *testing.T) {
	fake := newFakeReddit(t)
	client := fake.client(logger.NewTestLogger())

	items, err := client.Listing(context.Background(), "SaaS", models.ListingQuery{Kind: models.ListingNew, Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 2, "non t1/t3 children are skipped")

	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, models.KindPost, items[0].Kind)
	assert.Equal(t, "alice", items[0].AuthorName)
	assert.Equal(t, "Need a tool", items[0].Title)
	assert.Equal(t, "looking for help", items[0].Body)
	assert.Equal(t, "https://example.com/a", items[0].URL)
	assert.Equal(t, 12, items[0].Score)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), items[0].CreatedAt)

	assert.True(t, items[1].IsDeleted())
	assert.Equal(t, "https://www.reddit.com/r/SaaS/comments/b/gone/", items[1].URL)

	assert.Equal(t, "Bearer tok-1", fake.lastAuth.Load())
	assert.Equal(t, "limit=50&raw_json=1", fake.lastQuery.Load())
	assert.Equal(t, 598.0, client.RateLimitRemaining())
}

func TestClientListingComments(t *testing.T) {
	fake := newFakeReddit(t)
	client := fake.client(logger.NewTestLogger())

	items, err := client.Listing(context.Background(), "startups", models.ListingQuery{Kind: models.ListingComments, Limit: 100})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, models.KindComment, items[0].Kind)
	assert.Equal(t, "bob", items[0].AuthorName)
	assert.Equal(t, "same here", items[0].Body)
	assert.Equal(t, "Launch thread", items[0].Title)
	assert.Equal(t, "https://www.reddit.com/r/startups/comments/x/launch/c1/", items[0].URL)
}

func TestClientCachesToken(t *testing.T) {
	fake := newFakeReddit(t)
	client := fake.client(logger.NewTestLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.Listing(ctx, "SaaS", models.ListingQuery{Kind: models.ListingNew})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fake.tokenCalls.Load())

	client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := client.Listing(ctx, "SaaS", models.ListingQuery{Kind: models.ListingNew})
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.tokenCalls.Load(), "expired token is renewed")
}

func TestClientRateLimitedListing(t *testing.T) {
	fake := newFakeReddit(t)
	fake.listingCode = http.StatusTooManyRequests
	log := logger.NewTestLogger()
	client := fake.client(log)

	_, err := client.Listing(context.Background(), "SaaS", models.ListingQuery{Kind: models.ListingNew})
	require.Error(t, err)
	assert.True(t, errs.IsRateLimited(err))
	assert.Equal(t, errs.ErrorTypeRateLimit, errs.TypeOf(err))
	assert.True(t, log.HasMessage("rate limit exceeded"))
}

func TestClientTokenErrors(t *testing.T) {
	t.Run("error field on 200", func(t *testing.T) {
		fake := newFakeReddit(t)
		fake.tokenBody = `{"error":"invalid_grant"}`
		client := fake.client(logger.NewTestLogger())

		_, err := client.Listing(context.Background(), "SaaS", models.ListingQuery{})
		require.Error(t, err)
		assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
		assert.Contains(t, err.Error(), "invalid_grant")
	})

	t.Run("bad client credentials", func(t *testing.T) {
		fake := newFakeReddit(t)
		client := fake.client(logger.NewTestLogger())
		client.creds.ClientSecret = "wrong"

		_, err := client.Listing(context.Background(), "SaaS", models.ListingQuery{})
		require.Error(t, err)
		assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	})

	t.Run("missing credentials", func(t *testing.T) {
		client := NewClient(config.RedditConfig{}, logger.NewTestLogger())
		_, err := client.Listing(context.Background(), "SaaS", models.ListingQuery{})
		require.Error(t, err)
		assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	})
}

func TestClientSubmission(t *testing.T) {
	fake := newFakeReddit(t)
	client := fake.client(logger.NewTestLogger())

	item, err := client.Submission(context.Background(), "t3_a")
	require.NoError(t, err)
	assert.Equal(t, "a", item.ID)
	assert.Equal(t, "alice", item.AuthorName)
}

func TestClientContextCancelled(t *testing.T) {
	fake := newFakeReddit(t)
	client := fake.client(logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Listing(ctx, "SaaS", models.ListingQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThingConversion(t *testing.T) {
	var th thing
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"t3","data":{"name":"t3_q1","author":"x","title":"t","permalink":"/r/a/comments/q1/t/"}}`), &th))

	item, ok := th.toContentItem()
	require.True(t, ok)
	assert.Equal(t, "q1", item.ID, "id falls back to the fullname")
	assert.Equal(t, "https://www.reddit.com/r/a/comments/q1/t/", item.URL)
}
