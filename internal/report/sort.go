package report

import (
	"cmp"
	"slices"
)

// sortIssues orders by severity, then file, keeping server order otherwise.
func sortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		if c := cmp.Compare(a.Level.Rank(), b.Level.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
}
