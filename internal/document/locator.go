package document

import (
	"regexp"
)

// Locator runs label/pattern searches over a RawText. It has no knowledge of
// invoice semantics; extractors own the patterns.
type Locator struct {
	text *RawText
}

// NewLocator wraps a RawText for pattern search.
func NewLocator(text *RawText) *Locator {
	return &Locator{text: text}
}

// RawValue is one pattern match: the full matched text plus its capture
// groups, carrying the field name for error reporting.
type RawValue struct {
	Field  string
	Text   string
	Groups []string
}

// Group returns capture group i (1-based, as in regexp submatches), or "" when
// the group did not participate in the match.
func (v RawValue) Group(i int) string {
	if i < 1 || i >= len(v.Groups) {
		return ""
	}
	return v.Groups[i]
}

// Find returns the first match of re in the document, searching the full text
// so that values wrapped across lines still match. ok is false when the
// pattern does not occur.
func (l *Locator) Find(field string, re *regexp.Regexp) (RawValue, bool) {
	m := re.FindStringSubmatch(l.text.Full())
	if m == nil {
		return RawValue{}, false
	}
	return RawValue{Field: field, Text: m[0], Groups: m}, true
}

// FindAll returns every match of re in document order. Repeated sections
// (multiple generation sources) use this.
func (l *Locator) FindAll(field string, re *regexp.Regexp) []RawValue {
	ms := re.FindAllStringSubmatch(l.text.Full(), -1)
	if ms == nil {
		return nil
	}
	out := make([]RawValue, 0, len(ms))
	for _, m := range ms {
		out = append(out, RawValue{Field: field, Text: m[0], Groups: m})
	}
	return out
}

// FindFirst tries each pattern in order and returns the first that matches.
// Layouts drift between utility revisions; extractors keep a pattern ladder
// per field.
func (l *Locator) FindFirst(field string, res ...*regexp.Regexp) (RawValue, bool) {
	for _, re := range res {
		if v, ok := l.Find(field, re); ok {
			return v, true
		}
	}
	return RawValue{}, false
}

// Contains reports whether any of the markers occurs in the document.
func (l *Locator) Contains(markers ...string) bool {
	return l.text.Contains(markers...)
}

// EachLine calls fn for every line of the document, stopping early when fn
// returns false.
func (l *Locator) EachLine(fn func(i int, line string) bool) {
	for i, line := range l.text.Lines() {
		if !fn(i, line) {
			return
		}
	}
}
