package filter

import (
	"regexp"
	"strings"
)

// Pattern is a named artifact that only appears in level 5-7 logs.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Description string
}

var (
	// Timing and retry annotations: "12s 3m 4l "
	timingRegex = regexp.MustCompile(`([0-9]+[sml] )+`)

	// Identifier annotations: "<1a2b> <ff> "
	identRegex = regexp.MustCompile(`(<[0-9a-f]+> )+`)

	// Offset annotations: "(+3)", "(-12)"
	offsetRegex = regexp.MustCompile(`\([+-][0-9]+\)`)

	// Uncertain-read marker
	uncertainRegex = regexp.MustCompile(`\?`)
)

// BuiltInPatterns lists the artifacts removed by default, in match priority order.
var BuiltInPatterns = []Pattern{
	{
		Name:        "timing",
		Regex:       timingRegex,
		Description: "timing and retry-count annotations",
	},
	{
		Name:        "ident",
		Regex:       identRegex,
		Description: "hex identifier annotations",
	},
	{
		Name:        "offset",
		Regex:       offsetRegex,
		Description: "signed offset annotations",
	},
	{
		Name:        "uncertain",
		Regex:       uncertainRegex,
		Description: "uncertain-read markers",
	},
}

// PatternSet matches several patterns as a single leftmost-first alternation.
//
// Matching in one pass matters: deleting "?" from "1?s " must leave "1s "
// behind rather than exposing a new timing token.
type PatternSet struct {
	combined *regexp.Regexp
}

// NewPatternSet combines the patterns in the order given. An empty set
// matches nothing.
func NewPatternSet(patterns ...Pattern) *PatternSet {
	set := &PatternSet{}
	if len(patterns) == 0 {
		return set
	}

	alts := make([]string, len(patterns))
	for i, p := range patterns {
		alts[i] = "(?:" + p.Regex.String() + ")"
	}
	set.combined = regexp.MustCompile(strings.Join(alts, "|"))
	return set
}

// RemoveAndCount deletes every artifact match from text and reports how many
// matches were deleted.
func (s *PatternSet) RemoveAndCount(text string) (string, int) {
	if s.combined == nil {
		return text, 0
	}

	matches := s.combined.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String(), len(matches)
}
