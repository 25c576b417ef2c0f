package catalog

import "math/rand/v2"

// Partition shuffles a copy of items and splits it into sets contiguous
// offering sets of ceil(n/sets) items; the last set may be shorter. It returns
// the items in offering order and the cumulative end offset of each set.
// Empty trailing sets are not emitted, so tiny catalogs yield fewer bounds.
func Partition(items []Item, sets int, rng *rand.Rand) ([]Item, []int) {
	n := len(items)
	if n == 0 {
		return nil, nil
	}
	if sets < 1 {
		sets = 1
	}

	ordered := make([]Item, n)
	copy(ordered, items)
	for i := range ordered {
		ordered[i].Status = StatusAvailable
		ordered[i].SoldTo = 0
		ordered[i].SoldPrice = 0
	}
	rng.Shuffle(n, func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })

	size := (n + sets - 1) / sets
	bounds := make([]int, 0, sets)
	for k := 1; k <= sets; k++ {
		end := min(k*size, n)
		if len(bounds) > 0 && end == bounds[len(bounds)-1] {
			break
		}
		bounds = append(bounds, end)
	}
	return ordered, bounds
}
