// Package reddit provides the upstream content sources for leadscout.
//
// Client uses the OAuth JSON API with a script app's password grant and
// caches the bearer token until shortly before it expires. FeedSource reads
// the public RSS feeds and needs no credentials, at the cost of scores.
//
// Both implement Source, which returns one page of a subreddit listing.
// Throttling and retries live in the fetcher package, not here.
package reddit
