package session

import (
	"math"
	"sort"
)

// Policy weighs mastery levels when splitting a session across them.
// A bucket's share is proportional to Weight(level) times the number of
// competencies at that level.
type Policy interface {
	Weight(level int) float64
}

// WeightPolicy is a weight table indexed by level. Levels past the end use
// the last entry; an empty table weighs every level equally.
type WeightPolicy []float64

// DefaultWeights favors lower levels.
var DefaultWeights = WeightPolicy{4, 3, 2, 1}

func (w WeightPolicy) Weight(level int) float64 {
	if len(w) == 0 {
		return 1
	}
	if level < 0 {
		level = 0
	}
	if level >= len(w) {
		return w[len(w)-1]
	}
	return w[level]
}

// apportion splits total across weights by the largest-remainder method.
// Ties go to the earlier index. When no weight is positive the split
// falls back to equal weights.
func apportion(total int, weights []float64) []int {
	out := make([]int, len(weights))
	if total <= 0 || len(weights) == 0 {
		return out
	}

	var sum float64
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum == 0 {
		eq := make([]float64, len(weights))
		for i := range eq {
			eq[i] = 1
		}
		return apportion(total, eq)
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(weights))
	assigned := 0
	for i, w := range weights {
		if w <= 0 {
			rems[i] = rem{idx: i, frac: -1}
			continue
		}
		exact := float64(total) * w / sum
		floor := math.Floor(exact)
		out[i] = int(floor)
		assigned += out[i]
		rems[i] = rem{idx: i, frac: exact - floor}
	}

	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < total; i = (i + 1) % len(rems) {
		if rems[i].frac < 0 {
			continue
		}
		out[rems[i].idx]++
		assigned++
	}
	return out
}
