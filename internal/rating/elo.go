package rating

import "math"

// KFactor is the maximum rating points transferable per match.
const KFactor = 32

// Result carries the two new ratings computed for one decided match.
type Result struct {
	Winner int
	Loser  int
}

// Update computes new ELO ratings for a decided head-to-head match.
// Standard logistic expected-score model, K=32. Ratings are not clamped:
// extreme mismatches can in principle push a rating below zero.
func Update(winnerRating, loserRating int) Result {
	ew := expected(winnerRating, loserRating)
	el := expected(loserRating, winnerRating)
	return Result{
		Winner: winnerRating + int(math.Round(KFactor*(1-ew))),
		Loser:  loserRating + int(math.Round(KFactor*(0-el))),
	}
}

// expected returns the probability of a beating b.
func expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}
