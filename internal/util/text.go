package util

import "strings"

// StripNonASCII removes every byte outside the 7-bit ASCII range. Characters
// are dropped, not transliterated, so a price rendered as "£1.50" comes out
// as "1.50".
func StripNonASCII(input string) string {
	out := strings.Builder{}
	out.Grow(len(input))
	for _, r := range input {
		if r < 0x80 {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// SplitLines splits text into trimmed lines, preserving order and keeping
// empty lines in place. Blank lines act as section terminators downstream, so
// they must survive the split.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
