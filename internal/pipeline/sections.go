package pipeline

import "fmt"

// SectionNotFoundError means a marker line that the active template requires
// is absent from the message.
type SectionNotFoundError struct {
	Section string
	Marker  string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section %s: marker %q not found", e.Section, e.Marker)
}

// SectionTruncatedError means a section loop would have read past the end of
// the line sequence, which only happens on a malformed email.
type SectionTruncatedError struct {
	Section string
}

func (e *SectionTruncatedError) Error() string {
	return fmt.Sprintf("section %s: ran past end of message", e.Section)
}

// tupleRule describes one blank-terminated section: where it starts relative
// to its marker and how many lines make up each record.
type tupleRule struct {
	section  string
	marker   string
	offset   int
	stride   int
	optional bool
}

func findLine(lines []string, value string) int {
	for i, line := range lines {
		if line == value {
			return i
		}
	}
	return -1
}

// scanTuples groups the fixed-stride run following a rule's marker into one
// slice per record. The run ends at the first blank line. A missing marker on
// an optional rule reports found=false with no records and no error.
func scanTuples(lines []string, rule tupleRule) (tuples [][]string, found bool, err error) {
	start := findLine(lines, rule.marker)
	if start < 0 {
		if rule.optional {
			return nil, false, nil
		}
		return nil, false, &SectionNotFoundError{Section: rule.section, Marker: rule.marker}
	}

	i := start + rule.offset
	for {
		if i >= len(lines) {
			return nil, false, &SectionTruncatedError{Section: rule.section}
		}
		if lines[i] == "" {
			break
		}
		if i+rule.stride > len(lines) {
			return nil, false, &SectionTruncatedError{Section: rule.section}
		}
		tuples = append(tuples, lines[i:i+rule.stride])
		i += rule.stride
	}
	return tuples, true, nil
}

// lineRun returns the lines from marker+offset up to the end marker,
// exclusive. Both markers are required.
func lineRun(lines []string, section, marker string, offset int, endMarker string) ([]string, error) {
	start := findLine(lines, marker)
	if start < 0 {
		return nil, &SectionNotFoundError{Section: section, Marker: marker}
	}
	end := findLine(lines, endMarker)
	if end < 0 {
		return nil, &SectionNotFoundError{Section: section, Marker: endMarker}
	}
	i := start + offset
	if i > end {
		return nil, &SectionTruncatedError{Section: section}
	}
	return lines[i:end], nil
}

// lineAfter returns the single line a fixed offset past a required marker.
func lineAfter(lines []string, section, marker string, offset int) (string, error) {
	idx := findLine(lines, marker)
	if idx < 0 {
		return "", &SectionNotFoundError{Section: section, Marker: marker}
	}
	target := idx + offset
	if target >= len(lines) {
		return "", &SectionTruncatedError{Section: section}
	}
	return lines[target], nil
}

// markerHits returns the index of every line equal to marker.
func markerHits(lines []string, marker string) []int {
	var out []int
	for i, line := range lines {
		if line == marker {
			out = append(out, i)
		}
	}
	return out
}

// groupStride slices an already-filtered run into fixed-size tuples. A run
// whose length is not a multiple of the stride would misalign every record
// after the first gap, so it is rejected outright.
func groupStride(run []string, stride int, section string) ([][]string, error) {
	if len(run)%stride != 0 {
		return nil, &SectionTruncatedError{Section: section}
	}
	out := make([][]string, 0, len(run)/stride)
	for i := 0; i < len(run); i += stride {
		out = append(out, run[i:i+stride])
	}
	return out, nil
}

// dropFirst removes the first occurrence of value from the sequence. Used for
// the stray promotional line in receipts, whose presence shifts every
// subsequent fixed-offset calculation.
func dropFirst(lines []string, value string) []string {
	idx := findLine(lines, value)
	if idx < 0 {
		return lines
	}
	out := make([]string, 0, len(lines)-1)
	out = append(out, lines[:idx]...)
	return append(out, lines[idx+1:]...)
}
