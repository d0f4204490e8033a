package activity

import (
	"fmt"
	"sort"

	"leadscout/pkg/models"
)

// RankKey selects the primary sort key
type RankKey string

const (
	ByKarma    RankKey = "karma"
	ByActivity RankKey = "activity"
)

// RankOptions filters and orders the ranked view. Zero values disable the
// corresponding filter or cap.
type RankOptions struct {
	MinPosts int
	MinKarma int
	By       RankKey
	Limit    int
}

// ParseRankKey validates a configured ranking key
func ParseRankKey(s string) (RankKey, error) {
	switch RankKey(s) {
	case ByKarma, ByActivity:
		return RankKey(s), nil
	case "":
		return ByActivity, nil
	default:
		return "", fmt.Errorf("unknown rank key %q", s)
	}
}

// Rank converts the activity mapping into a sorted, filtered and truncated
// list. Ties on the primary key fall back to the other key, then to the
// username so the order never depends on map iteration.
func Rank(authors map[string]*models.AuthorActivity, opts RankOptions) []models.RankedUser {
	ranked := make([]models.RankedUser, 0, len(authors))
	for _, a := range authors {
		if a.PostCount < opts.MinPosts || a.KarmaSum < opts.MinKarma {
			continue
		}
		ranked = append(ranked, models.RankedUser{
			Username:      a.Username,
			Posts:         a.PostCount,
			Comments:      a.CommentCount,
			TotalActivity: a.TotalActivity(),
			Karma:         a.KarmaSum,
			Subreddits:    append([]string(nil), a.Subreddits...),
		})
	}

	primary, secondary := keyFuncs(opts.By)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if pa, pb := primary(a), primary(b); pa != pb {
			return pa > pb
		}
		if sa, sb := secondary(a), secondary(b); sa != sb {
			return sa > sb
		}
		return a.Username < b.Username
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked
}

func keyFuncs(by RankKey) (func(models.RankedUser) int, func(models.RankedUser) int) {
	karma := func(u models.RankedUser) int { return u.Karma }
	activity := func(u models.RankedUser) int { return u.TotalActivity }
	if by == ByKarma {
		return karma, activity
	}
	return activity, karma
}
