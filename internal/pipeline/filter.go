package pipeline

import "gromail/internal/categories"

// Column headings rendered as bare lines by the HTML table layout. These are
// artifacts of the markup, never item names.
var headingTokens = map[string]struct{}{
	"Quantity": {},
	"Price":    {},
}

// filterItemLines removes blanks, column headings and configured category
// names from an ordered-items run. Filtering happens line by line before
// stride grouping; removing lines afterwards would misalign formed tuples.
func filterItemLines(run []string, cats *categories.List) []string {
	out := make([]string, 0, len(run))
	for _, line := range run {
		if line == "" {
			continue
		}
		if _, heading := headingTokens[line]; heading {
			continue
		}
		if cats != nil && cats.Contains(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}
