// Package ratelimit provides the two throughput controls used against the
// Reddit API: a token bucket for the per-minute request quota and a Pacer for
// fixed cooperative gaps between subreddits and between notifications.
//
// Both block without spinning and return early with ctx.Err() when the
// caller's context is cancelled, so a scheduler tick is never starved.
package ratelimit
