package search

import "math"

// MaxRank is the highest popularity band.
const MaxRank = 5

// RankBands buckets counts into bands 1..MaxRank on a log scale between the
// smallest and largest count. Equal counts always share a band, and a larger
// count never gets a lower band. When every count is the same, all are 1.
func RankBands(counts []int) []int {
	ranks := make([]int, len(counts))
	if len(counts) == 0 {
		return ranks
	}

	lo, hi := 0, 0
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		if lo == 0 || c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}

	spread := math.Log(float64(hi)) - math.Log(float64(lo))
	for i, c := range counts {
		if c <= 0 || hi == lo {
			ranks[i] = 1
			continue
		}
		x := (math.Log(float64(c)) - math.Log(float64(lo))) / spread
		ranks[i] = 1 + int(math.Floor(float64(MaxRank-1)*x))
	}
	return ranks
}
