package inline

import "sort"

// Resolve reduces all declarations competing for one element to exactly one
// winner per property. Pure function: inputs are not mutated, the result is
// ordered by the winning declaration's source position so output is
// deterministic for identical input.
func Resolve(decls []Declaration) []Declaration {
	if len(decls) == 0 {
		return nil
	}

	index := make(map[string]int, len(decls))
	winners := make([]Declaration, 0, len(decls))

	for _, d := range decls {
		at, seen := index[d.Property]
		if !seen {
			index[d.Property] = len(winners)
			winners = append(winners, d)
			continue
		}
		if d.beats(winners[at]) {
			winners[at] = d
		}
	}

	sort.SliceStable(winners, func(i, j int) bool {
		if winners[i].Order != winners[j].Order {
			return winners[i].Order < winners[j].Order
		}
		// expanded longhands share the order index of their shorthand,
		// keep them grouped by property name for stable output
		return winners[i].Property < winners[j].Property
	})
	return winners
}
