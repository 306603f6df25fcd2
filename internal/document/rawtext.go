package document

import (
	"strings"
)

// RawText is the ordered sequence of text lines extracted from a source
// document. It is immutable once built; the pipeline owns it for the duration
// of a single document run.
type RawText struct {
	lines []string
	full  string
}

// NewRawText builds a RawText from the full extracted text of a document.
// Line order is preserved; trailing whitespace per line is trimmed.
func NewRawText(text string) *RawText {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimRight(l, " \t"))
	}
	return &RawText{lines: lines, full: strings.Join(lines, "\n")}
}

// Lines returns the line sequence. Callers must not mutate it.
func (r *RawText) Lines() []string { return r.lines }

// Full returns the whole document as a single string, for patterns that span
// line wraps.
func (r *RawText) Full() string { return r.full }

// Contains reports whether any of the markers occurs in the document,
// case-insensitively.
func (r *RawText) Contains(markers ...string) bool {
	upper := strings.ToUpper(r.full)
	for _, m := range markers {
		if strings.Contains(upper, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}
