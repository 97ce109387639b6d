// Package scoring holds the pure rules of the daily ballot: shape checks,
// day buckets and rank-weighted tallies. Nothing here touches storage.
package scoring

import (
	"errors"
	"sort"
	"time"
)

// BallotSize is the number of ranked brands on a ballot.
const BallotSize = 3

// Shape errors.
var (
	ErrInvalidBallotShape = errors.New("ballot must contain exactly 3 brands")
	ErrDuplicateSelection = errors.New("ballot contains the same brand more than once")
)

// Weights holds the points awarded to each ranked slot.
type Weights struct {
	First  int64
	Second int64
	Third  int64
}

// DefaultWeights are 60/30/10 for first, second and third place.
var DefaultWeights = Weights{First: 60, Second: 30, Third: 10}

// ForRank returns the weight of a 1-based rank, or 0 outside 1..3.
func (w Weights) ForRank(rank int) int64 {
	switch rank {
	case 1:
		return w.First
	case 2:
		return w.Second
	case 3:
		return w.Third
	default:
		return 0
	}
}

// CheckShape validates the ballot length and that no brand repeats.
func CheckShape(brandIDs []int64) error {
	if len(brandIDs) != BallotSize {
		return ErrInvalidBallotShape
	}
	seen := make(map[int64]struct{}, BallotSize)
	for _, id := range brandIDs {
		if _, ok := seen[id]; ok {
			return ErrDuplicateSelection
		}
		seen[id] = struct{}{}
	}
	return nil
}

// DayBucket returns the calendar day containing at, in loc, as a UTC
// midnight suitable for a DATE column. Every instant from local midnight up
// to the next local midnight maps to the same bucket, so reads and writes
// keyed by it agree on which day a ballot belongs to.
func DayBucket(at time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := at.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a day bucket as YYYY-MM-DD.
func DayKey(at time.Time, loc *time.Location) string {
	return DayBucket(at, loc).Format(time.DateOnly)
}

// Ranked is a ballot's brands in rank order.
type Ranked [BallotSize]int64

// Tally is one brand's summed weight.
type Tally struct {
	BrandID int64
	Points  int64
}

// TallyBallots sums the weighted points of every brand across ballots and
// returns them ordered by points descending, then brand id ascending.
// A limit <= 0 returns every brand.
func TallyBallots(ballots []Ranked, w Weights, limit int) []Tally {
	totals := make(map[int64]int64)
	for _, b := range ballots {
		for i, brandID := range b {
			totals[brandID] += w.ForRank(i + 1)
		}
	}

	out := make([]Tally, 0, len(totals))
	for id, pts := range totals {
		out = append(out, Tally{BrandID: id, Points: pts})
	}
	SortTallies(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortTallies orders tallies by points descending with brand id ascending
// as the tie-break.
func SortTallies(t []Tally) {
	sort.Slice(t, func(i, j int) bool {
		if t[i].Points != t[j].Points {
			return t[i].Points > t[j].Points
		}
		return t[i].BrandID < t[j].BrandID
	})
}
