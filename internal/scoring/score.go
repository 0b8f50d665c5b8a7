// Package scoring computes and maintains the cached trending score of trips.
package scoring

import (
	"math"
	"time"
)

const (
	// epoch is the reference point trip age is measured from
	epoch = 1577836800 // 2020-01-01T00:00:00Z

	// gravity is the number of seconds of recency worth one order of magnitude of likes
	gravity = 45000.0

	// precision keeps the stored value stable across float formatting round trips
	precision = 1e7
)

// Score returns the trending score of a trip with likes likes created at createdAt.
//
// The score is log10(likes+1) plus the trip's age on the epoch axis divided by
// gravity, so a trip needs ten times the likes to hold its place against one
// created 12.5 hours later. Depends only on its inputs, never on wall time.
func Score(likes int, createdAt time.Time) float64 {
	if likes < 0 {
		likes = 0
	}
	order := math.Log10(float64(likes) + 1)
	age := float64(createdAt.Unix()-epoch) / gravity
	return math.Round((order+age)*precision) / precision
}
