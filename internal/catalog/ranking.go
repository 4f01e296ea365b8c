package catalog

import "sort"

// Rank sorts items in place by popularity descending, then rating
// descending, with absent scores after all present ones, then id
// ascending so equal candidates always come back in the same order.
func Rank(items []ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if c := compareScore(items[i].Popularity, items[j].Popularity); c != 0 {
			return c > 0
		}
		if c := compareScore(items[i].Rating, items[j].Rating); c != 0 {
			return c > 0
		}
		return items[i].ID < items[j].ID
	})
}

// compareScore orders nullable scores for a descending sort: any present
// value beats absent, higher beats lower.
func compareScore(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	default:
		return 0
	}
}
