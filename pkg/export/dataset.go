// Package export renders tabular datasets and report-card documents into CSV and PDF bytes.
package export

import "strings"

// Dataset defines tabular export content. Rows are keyed by header.
// Lines is only filled by Read and holds the source line of each row.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Lines   []int
}

// Line returns the source line of row i, assuming one line per record when
// the dataset was not read from a file.
func (d Dataset) Line(i int) int {
	if i < len(d.Lines) {
		return d.Lines[i]
	}
	return i + 2
}

// HasHeaders reports whether every wanted header is present, ignoring case.
func (d Dataset) HasHeaders(wanted ...string) bool {
	present := make(map[string]struct{}, len(d.Headers))
	for _, h := range d.Headers {
		present[strings.ToLower(h)] = struct{}{}
	}
	for _, w := range wanted {
		if _, ok := present[strings.ToLower(w)]; !ok {
			return false
		}
	}
	return true
}
