package semver

import (
	"fmt"
	"regexp"
	"strings"
)

// Range is a version range expression.
//
// Examples:
// - "[1.0.0]"          exactly 1.0.0
// - "[1.0,2.0)"        1.0 <= v < 2.0
// - "(,1.5]"           v <= 1.5
// - "[,)"              any version
// - "[1.0,2.0),[3.0,)" union of restrictions
type Range struct {
	raw          string
	restrictions []restriction
}

type restriction struct {
	lower          *Version
	lowerInclusive bool
	upper          *Version
	upperInclusive bool
}

// AnyRange is the unbounded range expression.
const AnyRange = "[,)"

var reBracketed = regexp.MustCompile(`^(\(|\[).*?(\)|\])$`)

// NormalizeRange turns an empty expression into the unbounded range and a bare
// version into a single-version range. Bracketed expressions are returned unchanged.
func NormalizeRange(expr string) string {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return AnyRange
	case reBracketed.MatchString(expr):
		return expr
	default:
		return "[" + expr + "]"
	}
}

// ParseRange parses expr after normalizing it with NormalizeRange.
func ParseRange(expr string) (Range, error) {
	norm := NormalizeRange(expr)
	r := Range{raw: norm}

	rest := norm
	for rest != "" {
		open := rest[0]
		if open != '[' && open != '(' {
			return Range{}, fmt.Errorf("semver: parse range %q: expected '[' or '(' at %q", expr, rest)
		}
		end := strings.IndexAny(rest, "])")
		if end < 0 {
			return Range{}, fmt.Errorf("semver: parse range %q: unterminated restriction", expr)
		}
		res, err := parseRestriction(open == '[', rest[1:end], rest[end] == ']')
		if err != nil {
			return Range{}, fmt.Errorf("semver: parse range %q: %w", expr, err)
		}
		r.restrictions = append(r.restrictions, res)

		rest = strings.TrimSpace(rest[end+1:])
		if strings.HasPrefix(rest, ",") {
			rest = strings.TrimSpace(rest[1:])
			if rest == "" {
				return Range{}, fmt.Errorf("semver: parse range %q: trailing ','", expr)
			}
		} else if rest != "" {
			return Range{}, fmt.Errorf("semver: parse range %q: expected ',' between restrictions", expr)
		}
	}
	return r, nil
}

func MustParseRange(expr string) Range {
	r, err := ParseRange(expr)
	if err != nil {
		panic(err)
	}
	return r
}

func parseRestriction(lowerInclusive bool, body string, upperInclusive bool) (restriction, error) {
	parts := strings.Split(body, ",")
	switch len(parts) {
	case 1:
		raw := strings.TrimSpace(parts[0])
		if !lowerInclusive || !upperInclusive || raw == "" {
			return restriction{}, fmt.Errorf("single version %q must be written as [v]", body)
		}
		v, err := ParseVersion(raw)
		if err != nil {
			return restriction{}, err
		}
		return restriction{lower: &v, lowerInclusive: true, upper: &v, upperInclusive: true}, nil
	case 2:
		res := restriction{lowerInclusive: lowerInclusive, upperInclusive: upperInclusive}
		if raw := strings.TrimSpace(parts[0]); raw != "" {
			v, err := ParseVersion(raw)
			if err != nil {
				return restriction{}, err
			}
			res.lower = &v
		}
		if raw := strings.TrimSpace(parts[1]); raw != "" {
			v, err := ParseVersion(raw)
			if err != nil {
				return restriction{}, err
			}
			res.upper = &v
		}
		if res.lower != nil && res.upper != nil {
			c := Compare(*res.lower, *res.upper)
			if c > 0 || (c == 0 && !(lowerInclusive && upperInclusive)) {
				return restriction{}, fmt.Errorf("empty restriction %q", body)
			}
		}
		return res, nil
	default:
		return restriction{}, fmt.Errorf("too many bounds in %q", body)
	}
}

// String returns the normalized expression.
func (r Range) String() string {
	return r.raw
}

// Contains reports whether v falls inside any restriction of r. Bounds are compared by
// precedence only, so "[1.0.0]" contains "1.0.0.Final".
func (r Range) Contains(v Version) bool {
	if v.v == nil {
		return false
	}
	for _, res := range r.restrictions {
		if res.contains(v) {
			return true
		}
	}
	return false
}

// Filter returns the versions contained in r, ascending.
func (r Range) Filter(candidates []Version) []Version {
	out := make([]Version, 0, len(candidates))
	for _, c := range candidates {
		if r.Contains(c) {
			out = append(out, c)
		}
	}
	Sort(out)
	return out
}

func (res restriction) contains(v Version) bool {
	if res.lower != nil {
		c := Compare(v, *res.lower)
		if c < 0 || (c == 0 && !res.lowerInclusive) {
			return false
		}
	}
	if res.upper != nil {
		c := Compare(v, *res.upper)
		if c > 0 || (c == 0 && !res.upperInclusive) {
			return false
		}
	}
	return true
}
