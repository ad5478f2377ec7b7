package matching

import "math"

// Score rates a two-sided trade on a 0-100 scale from the summed values and
// item counts each side receives. Up to 40 points reward value symmetry, up
// to 30 reward absolute value (saturating at a combined value of 500) and up
// to 30 reward item variety. A side with no priced value scores zero
// outright: an unvalued pair is not an error, it is just not worth ranking.
//
// The function is pure and does no I/O so it can be exercised in isolation.
func Score(valueA, valueB int64, countA, countB int) int {
	if valueA <= 0 || valueB <= 0 {
		return 0
	}

	minV, maxV := float64(valueA), float64(valueB)
	if minV > maxV {
		minV, maxV = maxV, minV
	}

	balance := minV / maxV * 40
	magnitude := math.Min(30, float64(valueA+valueB)/500*30)
	variety := math.Min(30, float64(countA+countB)*3)

	score := int(math.Floor(balance + magnitude + variety))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// BalanceScore rates how evenly a trade cycle distributes value across its
// edges: 1 minus the per-edge value variance normalized by the squared mean,
// clamped to [0,1]. Identical edge values score exactly 1.0.
func BalanceScore(edgeValues []int64) float64 {
	n := float64(len(edgeValues))
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range edgeValues {
		sum += float64(v)
	}
	mean := sum / n
	if mean <= 0 {
		return 0
	}

	var varSum float64
	for _, v := range edgeValues {
		d := float64(v) - mean
		varSum += d * d
	}
	variance := varSum / n

	score := 1 - variance/(mean*mean)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
