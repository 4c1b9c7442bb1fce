package recur

import "time"

// maxEstimateRounds bounds the interpolation refinement. Calendar units drift
// by at most a few days per interval, so two or three rounds usually converge.
const maxEstimateRounds = 8

// Estimate approximates how many whole cadence intervals of n units fit between
// anchor and target. anchor + K*n units lands close to target but may be one or
// more steps on either side of it; callers scan locally around the result.
//
// Each round measures one concrete interval starting at the current candidate
// and scales the remaining gap by its length.
func Estimate(anchor, target time.Time, n int, u Unit) (int, error) {
	if !target.After(anchor) || n < 1 {
		return 0, nil
	}

	k := 0
	cur := anchor
	for round := 0; round < maxEstimateRounds; round++ {
		next, err := Add(cur, n, u)
		if err != nil {
			return 0, err
		}
		length := SecondsBetween(cur, next)
		if length <= 0 {
			return k, nil
		}
		step := floorDiv(SecondsBetween(cur, target), length)
		if step == 0 {
			break
		}
		k += int(step)
		if k < 0 {
			k = 0
		}
		cur, err = Add(anchor, k*n, u)
		if err != nil {
			return 0, err
		}
	}
	return k, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
