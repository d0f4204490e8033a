package pipeline

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"leadscout/pkg/activity"
	"leadscout/pkg/classifier"
	"leadscout/pkg/config"
	"leadscout/pkg/dedup"
	errs "leadscout/pkg/errors"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
	"leadscout/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	listings map[string][]models.ContentItem
	comments map[string][]models.ContentItem
	failures map[string]error
	fetched  []string
	paces    int
	latency  time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, subreddit string, q models.ListingQuery) ([]models.ContentItem, error) {
	f.fetched = append(f.fetched, subreddit+"/"+string(q.Kind))
	time.Sleep(f.latency)
	if err := f.failures[subreddit]; err != nil {
		return nil, err
	}
	if q.Kind == models.ListingComments {
		return f.comments[subreddit], nil
	}
	return f.listings[subreddit], nil
}

func (f *fakeFetcher) Pace(ctx context.Context) error {
	f.paces++
	return ctx.Err()
}

// memStore is an in-memory dedup store that can be told to fail
type memStore struct {
	posts    []string
	users    []string
	flushes  int
	flushErr error
	loadErr  error
}

func (m *memStore) Load(ctx context.Context) (*dedup.State, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return dedup.NewStateFrom(m.posts, m.users), nil
}

func (m *memStore) Flush(ctx context.Context, s *dedup.State) error {
	if m.flushErr != nil {
		return m.flushErr
	}
	m.flushes++
	m.posts, m.users = s.PostIDs(), s.Usernames()
	return nil
}

func (m *memStore) Close() error { return nil }

// scriptedClassifier qualifies the listed post ids
type scriptedClassifier struct {
	qualified map[string]bool
	seen      []string
}

func (c *scriptedClassifier) Classify(ctx context.Context, item models.ContentItem) models.QualificationResult {
	c.seen = append(c.seen, item.ID)
	if c.qualified[item.ID] {
		return models.QualificationResult{IsQualified: true, Analysis: "fit", Reason: "budget"}
	}
	return models.QualificationResult{IsQualified: false, Analysis: "no", Reason: "no budget"}
}

type sleepLog struct{ delays []time.Duration }

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func post(id, author, sub string, score int) models.ContentItem {
	return models.ContentItem{
		ID:         id,
		Kind:       models.KindPost,
		AuthorName: author,
		Subreddit:  sub,
		Score:      score,
		URL:        "https://reddit.com/r/" + sub + "/comments/" + id,
	}
}

func leadOpts(subs ...string) LeadOptions {
	return LeadOptions{
		Subreddits: subs,
		Query:      models.ListingQuery{Kind: models.ListingNew, Limit: 100},
		Policy:     config.DedupByBoth,
		ItemDelay:  1500 * time.Millisecond,
	}
}

func TestLeadPipelineNotifiesOnlyUnseenPosts(t *testing.T) {
	dir := t.TempDir()
	store := dedup.NewFileStore(filepath.Join(dir, "posts.json"), filepath.Join(dir, "users.json"), nil)
	seed := dedup.NewStateFrom([]string{"p1"}, nil)
	require.NoError(t, store.Flush(context.Background(), seed))

	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"startups": {post("p1", "alice", "startups", 10), post("p2", "bob", "startups", 3)},
	}}
	rec := &notify.Recorder{}
	p := NewLeadPipeline(f, classifier.AlwaysQualify{}, store, rec, leadOpts("startups"), logger.NewTestLogger(), (&sleepLog{}).sleep)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.Messages(), 1)
	assert.Contains(t, rec.Messages()[0], "👤 Username: bob")
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 1, report.Skipped)

	reloaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, reloaded.PostIDs())
	assert.Equal(t, []string{"bob"}, reloaded.Usernames())
}

func TestLeadPipelineSecondRunIsQuiet(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"sales": {post("p1", "alice", "sales", 1)},
	}}
	rec := &notify.Recorder{}
	p := NewLeadPipeline(f, classifier.AlwaysQualify{}, store, rec, leadOpts("sales"), nil, (&sleepLog{}).sleep)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, rec.Messages(), 1)
	assert.Equal(t, 1, store.flushes)
}

func TestLeadPipelineClassifierGate(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"startups": {
			post("p1", "alice", "startups", 1),
			post("p2", models.DeletedAuthor, "startups", 1),
			post("p3", "carol", "startups", 1),
		},
	}}
	cls := &scriptedClassifier{qualified: map[string]bool{"p3": true}}
	rec := &notify.Recorder{}
	sleeps := &sleepLog{}
	p := NewLeadPipeline(f, cls, store, rec, leadOpts("startups"), logger.NewTestLogger(), sleeps.sleep)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p3"}, cls.seen, "deleted authors are never classified")
	assert.Equal(t, 1, report.Qualified)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, []string{"p3"}, store.posts, "rejected posts are not recorded by default")
	assert.Len(t, sleeps.delays, 1, "item delay between classified posts")
}

func TestLeadPipelineRememberRejected(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"startups": {post("p1", "alice", "startups", 1)},
	}}
	opts := leadOpts("startups")
	opts.RememberRejected = true
	p := NewLeadPipeline(f, &scriptedClassifier{}, store, &notify.Recorder{}, opts, nil, (&sleepLog{}).sleep)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, store.posts)
	assert.Empty(t, store.users)
}

func TestLeadPipelineSameAuthorTwiceInOneRun(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"startups": {post("p1", "alice", "startups", 1)},
		"sales":    {post("p9", "alice", "sales", 1)},
	}}
	rec := &notify.Recorder{}
	p := NewLeadPipeline(f, classifier.AlwaysQualify{}, store, rec, leadOpts("startups", "sales"), nil, (&sleepLog{}).sleep)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.Messages(), 1)
}

func TestLeadPipelinePostOnlyPolicy(t *testing.T) {
	store := &memStore{users: []string{"alice"}}
	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"startups": {post("p1", "alice", "startups", 1)},
	}}
	opts := leadOpts("startups")
	opts.Policy = config.DedupByPost
	rec := &notify.Recorder{}
	p := NewLeadPipeline(f, classifier.AlwaysQualify{}, store, rec, opts, nil, (&sleepLog{}).sleep)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.Messages(), 1, "seen users do not gate under the post policy")
}

func TestLeadPipelineSubredditFailureIsIsolated(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{
		listings: map[string][]models.ContentItem{"sales": {post("p1", "alice", "sales", 1)}},
		failures: map[string]error{"startups": errs.ErrTooManyRetries},
	}
	rec := &notify.Recorder{}
	log := logger.NewTestLogger()
	p := NewLeadPipeline(f, classifier.AlwaysQualify{}, store, rec, leadOpts("startups", "sales"), log, (&sleepLog{}).sleep)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Subreddits)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, rec.Messages(), 1)
	assert.Equal(t, 2, f.paces)
	assert.True(t, log.HasMessage("Error processing subreddit"))
}

func TestLeadPipelineNotifierFailureDoesNotRecord(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"startups": {post("p1", "alice", "startups", 1)},
	}}
	rec := &notify.Recorder{Err: errs.FromStatusCode(http.StatusBadGateway, "bad gateway")}
	p := NewLeadPipeline(f, classifier.AlwaysQualify{}, store, rec, leadOpts("startups"), logger.NewTestLogger(), (&sleepLog{}).sleep)

	report, err := p.Run(context.Background())
	require.NoError(t, err, "delivery failures never abort the run")
	assert.Zero(t, report.Notified)
	assert.Empty(t, store.posts)
}

func TestLeadPipelinePersistenceFailureIsFatal(t *testing.T) {
	store := &memStore{flushErr: errors.New("disk full")}
	f := &fakeFetcher{listings: map[string][]models.ContentItem{
		"startups": {post("p1", "alice", "startups", 1), post("p2", "bob", "startups", 1)},
	}}
	rec := &notify.Recorder{}
	p := NewLeadPipeline(f, classifier.AlwaysQualify{}, store, rec, leadOpts("startups", "sales"), nil, (&sleepLog{}).sleep)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, rec.Messages(), 1, "run stops at the first failed flush")
	assert.NotContains(t, f.fetched, "sales/new")

	_, err = NewLeadPipeline(f, classifier.AlwaysQualify{}, &memStore{loadErr: errors.New("corrupt")}, rec, leadOpts("startups"), nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestLeadPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewLeadPipeline(&fakeFetcher{}, classifier.AlwaysQualify{}, &memStore{}, &notify.Recorder{}, leadOpts("startups"), nil, nil)

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func activityOpts(subs ...string) ActivityOptions {
	return ActivityOptions{
		Subreddits:      subs,
		PostQuery:       models.ListingQuery{Kind: models.ListingNew, Limit: 100},
		CommentQuery:    models.ListingQuery{Kind: models.ListingComments, Limit: 100},
		IncludeComments: true,
		Rank:            activity.RankOptions{By: activity.ByActivity, Limit: 50},
		NotifyTop:       2,
		NotifyDelay:     time.Second,
		Summary:         true,
		Pitch:           "Post Content",
	}
}

func activityFixture() *fakeFetcher {
	comment := func(id, author, sub string) models.ContentItem {
		return models.ContentItem{ID: id, Kind: models.KindComment, AuthorName: author, Subreddit: sub}
	}
	return &fakeFetcher{
		listings: map[string][]models.ContentItem{
			"startups": {post("p1", "alice", "startups", 10), post("p2", models.DeletedAuthor, "startups", 5)},
			"sales":    {post("p3", "alice", "sales", 3), post("p4", "bob", "", 1)},
		},
		comments: map[string][]models.ContentItem{
			"startups": {comment("c1", "carol", "startups"), comment("c2", "bob", "startups")},
			"sales":    {comment("c3", "alice", "sales")},
		},
	}
}

func TestActivityPipelineRun(t *testing.T) {
	snapshotPath := filepath.Join(t.TempDir(), "active_users.json")
	rec := &notify.Recorder{}
	sleeps := &sleepLog{}
	f := activityFixture()
	p := NewActivityPipeline(f, &memStore{}, dedup.NewSnapshotWriter(snapshotPath), rec, activityOpts("startups", "sales"), logger.NewTestLogger(), sleeps.sleep)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"startups/new", "startups/comments", "sales/new", "sales/comments"}, f.fetched)
	assert.Equal(t, 7, report.Fetched)
	assert.Equal(t, 1, report.Skipped, "deleted author")
	assert.Equal(t, 3, report.Qualified)
	assert.Equal(t, 2, report.Notified)

	snapshot, err := dedup.ReadSnapshot(snapshotPath)
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.Equal(t, "alice", snapshot[0].Username)
	assert.Equal(t, 3, snapshot[0].TotalActivity)
	assert.Equal(t, []string{"startups", "sales"}, snapshot[0].Subreddits)
	assert.Equal(t, "bob", snapshot[1].Username)
	assert.Equal(t, []string{"startups", "sales"}, snapshot[1].Subreddits, "missing subreddit falls back to the listing name")

	msgs := rec.Messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0], "👤 Username: alice")
	assert.Contains(t, msgs[1], "👤 Username: bob")
	assert.Equal(t, notify.FormatSummaryMessage(3, 2, 2, snapshotPath), msgs[2])
	assert.Len(t, sleeps.delays, 2, "one second between notifications")
}

func TestActivityPipelineSkipsSeenUsers(t *testing.T) {
	store := &memStore{users: []string{"alice"}}
	rec := &notify.Recorder{}
	opts := activityOpts("startups", "sales")
	opts.SkipSeenUsers = true
	opts.Summary = false
	p := NewActivityPipeline(activityFixture(), store, dedup.NewSnapshotWriter(filepath.Join(t.TempDir(), "s.json")), rec, opts, nil, (&sleepLog{}).sleep)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "bob")
	assert.Contains(t, msgs[1], "carol")
	assert.Equal(t, []string{"alice", "bob", "carol"}, store.users)
	assert.Equal(t, 2, store.flushes)
	assert.Equal(t, 2, report.Notified)
}

func TestActivityPipelineNothingFound(t *testing.T) {
	rec := &notify.Recorder{}
	f := &fakeFetcher{failures: map[string]error{"startups": errors.New("forbidden")}}
	path := filepath.Join(t.TempDir(), "s.json")
	p := NewActivityPipeline(f, &memStore{}, dedup.NewSnapshotWriter(path), rec, activityOpts("startups"), nil, nil)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, rec.Messages(), "no summary without users")

	snapshot, err := dedup.ReadSnapshot(path)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestActivityPipelineSnapshotFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, dedup.NewSnapshotWriter(blocker).Write(nil))

	p := NewActivityPipeline(activityFixture(), &memStore{}, dedup.NewSnapshotWriter(filepath.Join(blocker, "s.json")), &notify.Recorder{}, activityOpts("startups"), nil, nil)
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	lead := LeadOptionsFromConfig(cfg)
	assert.Equal(t, models.ListingNew, lead.Query.Kind)
	assert.Equal(t, 100, lead.Query.Limit)
	assert.Equal(t, config.DedupByBoth, lead.Policy)
	assert.Equal(t, 1500*time.Millisecond, lead.ItemDelay)

	act, err := ActivityOptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, models.ListingComments, act.CommentQuery.Kind)
	assert.Equal(t, 50, act.Rank.Limit)
	assert.Equal(t, 5, act.NotifyTop)

	cfg.Activity.RankBy = "followers"
	_, err = ActivityOptionsFromConfig(cfg)
	assert.Error(t, err)
}

func TestRunReportsDuration(t *testing.T) {
	listings := map[string][]models.ContentItem{
		"startups": {post("p1", "alice", "startups", 10)},
		"sales":    {post("p2", "bob", "sales", 4)},
	}

	lead := NewLeadPipeline(&fakeFetcher{listings: listings, latency: 20 * time.Millisecond},
		classifier.AlwaysQualify{}, &memStore{}, &notify.Recorder{}, leadOpts("startups", "sales"), nil, (&sleepLog{}).sleep)
	report, err := lead.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Duration, 40*time.Millisecond)
	assert.Equal(t, report.Duration.Milliseconds(), report.Fields()["duration_ms"])

	dir := t.TempDir()
	users := NewActivityPipeline(&fakeFetcher{listings: listings, latency: 20 * time.Millisecond},
		&memStore{}, dedup.NewSnapshotWriter(filepath.Join(dir, "active_users.json")), &notify.Recorder{},
		activityOpts("startups", "sales"), nil, (&sleepLog{}).sleep)
	report, err = users.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Duration, 40*time.Millisecond)
}
