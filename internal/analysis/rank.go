package analysis

import (
	"cmp"
	"slices"
)

// DefaultTopK is the number of rows kept in every ranked table
const DefaultTopK = 5

// TopK returns the first k rows of table after a stable sort by compare.
// The input is not modified. k <= 0 or k beyond the table size returns
// every row in order.
func TopK[T any](table []T, k int, compare func(a, b T) int) []T {
	ranked := slices.Clone(table)
	slices.SortStableFunc(ranked, compare)
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k:k]
	}
	return ranked
}

// descThenAsc orders by primary value descending, then by key ascending
func descThenAsc[V cmp.Ordered, K cmp.Ordered](va, vb V, ka, kb K) int {
	if c := cmp.Compare(vb, va); c != 0 {
		return c
	}
	return cmp.Compare(ka, kb)
}
