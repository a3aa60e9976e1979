// Package version implements Wright's free-form version comparator and
// operator constraints, following a digit/alpha segment tokenizer rather
// than semver — plan versions are whatever upstream tarballs use
// ("6.5-20250809", "2024a", "6.2.13p2").
package version

import (
	"fmt"
	"strings"

	"github.com/wright-pm/wright/pkg/werr"
)

// segmentKind distinguishes a numeric run from an alphabetic run within a
// tokenized version string.
type segmentKind int

const (
	kindAlpha segmentKind = iota
	kindNum
)

type segment struct {
	kind  segmentKind
	num   uint64
	alpha string
}

// compare orders two segments: numeric segments always sort after alpha
// segments (rpm/pacman convention), and within the same kind compare
// naturally.
func (s segment) compare(o segment) int {
	if s.kind != o.kind {
		if s.kind == kindNum {
			return 1
		}
		return -1
	}
	if s.kind == kindNum {
		switch {
		case s.num < o.num:
			return -1
		case s.num > o.num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(s.alpha, o.alpha)
}

// tokenize splits s into alternating runs of ASCII digits and ASCII
// letters, discarding every other character (delimiters like `.`, `-`,
// `_`, `+` and anything else) entirely rather than treating them as
// segment boundaries that produce empty segments.
func tokenize(s string) []segment {
	var segs []segment
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c >= '0' && c <= '9':
			j := i
			var n uint64
			for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
				n = n*10 + uint64(runes[j]-'0')
				j++
			}
			segs = append(segs, segment{kind: kindNum, num: n})
			i = j
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			j := i
			for j < len(runes) && ((runes[j] >= 'a' && runes[j] <= 'z') || (runes[j] >= 'A' && runes[j] <= 'Z')) {
				j++
			}
			segs = append(segs, segment{kind: kindAlpha, alpha: string(runes[i:j])})
			i = j
		default:
			i++
		}
	}
	return segs
}

// Version is a parsed, comparable free-form version string.
type Version struct {
	raw      string
	segments []segment
}

// Parse tokenizes s into a Version. A string that is empty, all
// whitespace, or contains no alphanumeric segment is a Validation error.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, werr.New(werr.KindValidation, "version string must not be empty", nil)
	}
	segs := tokenize(trimmed)
	if len(segs) == 0 {
		return Version{}, werr.New(werr.KindValidation, fmt.Sprintf("invalid version format: %q", trimmed), nil)
	}
	return Version{raw: trimmed, segments: segs}, nil
}

func (v Version) String() string { return v.raw }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than o. Missing trailing segments sort as lesser than any present
// segment, so "1.0" < "1.0.1".
func (v Version) Compare(o Version) int {
	n := len(v.segments)
	if len(o.segments) > n {
		n = len(o.segments)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(v.segments):
			return -1
		case i >= len(o.segments):
			return 1
		default:
			if c := v.segments[i].compare(o.segments[i]); c != 0 {
				return c
			}
		}
	}
	return 0
}

func (v Version) Less(o Version) bool         { return v.Compare(o) < 0 }
func (v Version) Equal(o Version) bool        { return v.Compare(o) == 0 }
func (v Version) GreaterOrEqual(o Version) bool { return v.Compare(o) >= 0 }
func (v Version) LessOrEqual(o Version) bool    { return v.Compare(o) <= 0 }
func (v Version) Greater(o Version) bool        { return v.Compare(o) > 0 }
