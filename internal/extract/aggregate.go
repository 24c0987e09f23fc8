package extract

import "sort"

// Aggregate merges per-transcript ticker lists into a unique list ordered by
// descending occurrence count. Equal counts keep the order of first occurrence
// in the concatenated stream. Tickers are trusted verbatim: no case
// normalization or validation.
func Aggregate(lists [][]string) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string

	pos := 0
	for _, list := range lists {
		for _, ticker := range list {
			if _, seen := counts[ticker]; !seen {
				firstSeen[ticker] = pos
				order = append(order, ticker)
			}
			counts[ticker]++
			pos++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci != cj {
			return ci > cj
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	return order
}
