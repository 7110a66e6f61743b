package search

import (
	"fmt"
	"strings"
)

const formatLimit = 3

// Format renders the first three results as numbered blocks and notes how
// many were left out.
func Format(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		if i == formatLimit {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		if r.Description != "" {
			fmt.Fprintf(&b, "   %s\n", r.Description)
		}
		fmt.Fprintf(&b, "   %s\n\n", r.URL)
	}
	if more := len(results) - formatLimit; more > 0 {
		fmt.Fprintf(&b, "...and %d more results.", more)
	}
	return b.String()
}
