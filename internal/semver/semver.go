package semver

import (
	"cmp"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	mm "github.com/Masterminds/semver/v3"
)

// Version is an addon version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3 that also accepts
// repository-style versions such as "1.0.0.Final", "1.0.0.1" or "2.1-SNAPSHOT". The
// first three numeric parts are compared by Masterminds; further numeric parts and the
// qualifier are compared the way Maven repositories order them. The raw text is kept
// verbatim because it is part of the addon coordinate.
type Version struct {
	raw       string
	v         *mm.Version
	extra     []uint64
	qualifier []token
}

// token is one qualifier item: a number or a lower-cased word.
type token struct {
	num   uint64
	word  string
	isNum bool
}

var reVersion = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:[.\-_+]?(.*))?$`)

// qualifierRanks orders the well-known qualifiers. Unknown words rank between
// snapshot and release and compare case-insensitively among themselves.
var qualifierRanks = map[string]int{
	"alpha":     0,
	"beta":      1,
	"milestone": 2,
	"rc":        3,
	"cr":        3,
	"snapshot":  4,
	"":          6,
	"final":     6,
	"ga":        6,
	"release":   6,
	"sp":        7,
}

const unknownQualifierRank = 5

// qualifierAliases apply when the letter is directly followed by a number, as in "a1".
var qualifierAliases = map[string]string{
	"a": "alpha",
	"b": "beta",
	"m": "milestone",
}

func ParseVersion(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	m := reVersion.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, fmt.Errorf("semver: parse version %q: not a version", raw)
	}

	var nums [3]uint64
	for i := 0; i < 3; i++ {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseUint(m[i+1], 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
		}
		nums[i] = n
	}

	tokens, err := tokenize(m[4])
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	// Numbers before the first word are further version parts: 1.0.0.1 is a later
	// build of 1.0.0, not a pre-release.
	var extra []uint64
	for len(tokens) > 0 && tokens[0].isNum {
		extra = append(extra, tokens[0].num)
		tokens = tokens[1:]
	}

	return Version{
		raw:       raw,
		v:         mm.New(nums[0], nums[1], nums[2], "", ""),
		extra:     extra,
		qualifier: tokens,
	}, nil
}

// tokenize splits s at separators and at every switch between letters and digits.
func tokenize(s string) ([]token, error) {
	var tokens []token
	start := -1
	digits := false
	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		part := s[start:end]
		start = -1
		if digits {
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return err
			}
			tokens = append(tokens, token{num: n, isNum: true})
			return nil
		}
		tokens = append(tokens, token{word: strings.ToLower(part)})
		return nil
	}

	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		isLetter := unicode.IsLetter(r)
		switch {
		case !isDigit && !isLetter:
			if err := flush(i); err != nil {
				return nil, err
			}
		case start < 0:
			start, digits = i, isDigit
		case digits != isDigit:
			if err := flush(i); err != nil {
				return nil, err
			}
			start, digits = i, isDigit
		}
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}

	for i := range tokens {
		if alias, ok := qualifierAliases[tokens[i].word]; ok && i+1 < len(tokens) && tokens[i+1].isNum {
			tokens[i].word = alias
		}
	}
	return tokens, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version exactly as it was parsed.
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.v == nil
}

// Compare compares a and b by precedence, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
//
// Release qualifiers have the precedence of the plain release, so
// Compare("1.0.0.Final", "1.0.0") is 0.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	if c := compareParts(a.extra, b.extra); c != 0 {
		return c
	}
	return compareQualifiers(a.qualifier, b.qualifier)
}

// Sort orders versions ascending by precedence. Versions of equal precedence are
// ordered by their raw text so the result does not depend on the input order.
func Sort(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		if c := Compare(versions[i], versions[j]); c != 0 {
			return c < 0
		}
		return versions[i].raw < versions[j].raw
	})
}

// compareParts compares numeric parts, padding the shorter side with zeros.
func compareParts(a, b []uint64) int {
	for i := 0; i < max(len(a), len(b)); i++ {
		var x, y uint64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return cmp.Compare(x, y)
		}
	}
	return 0
}

// compareQualifiers compares item by item. A missing item counts as 0 against a number
// and as the release qualifier against a word. Numbers sort after words.
func compareQualifiers(a, b []token) int {
	for i := 0; i < max(len(a), len(b)); i++ {
		var c int
		switch {
		case i >= len(a):
			c = -compareToMissing(b[i])
		case i >= len(b):
			c = compareToMissing(a[i])
		default:
			c = compareTokens(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareTokens(a, b token) int {
	switch {
	case a.isNum && b.isNum:
		return cmp.Compare(a.num, b.num)
	case a.isNum:
		return 1
	case b.isNum:
		return -1
	}
	if c := cmp.Compare(rank(a.word), rank(b.word)); c != 0 {
		return c
	}
	if rank(a.word) == unknownQualifierRank {
		return strings.Compare(a.word, b.word)
	}
	return 0
}

func compareToMissing(t token) int {
	if t.isNum {
		return cmp.Compare(t.num, 0)
	}
	return cmp.Compare(rank(t.word), rank(""))
}

func rank(word string) int {
	if r, ok := qualifierRanks[word]; ok {
		return r
	}
	return unknownQualifierRank
}

// MaxSatisfying returns the highest version in candidates contained in r.
func MaxSatisfying(r Range, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !r.Contains(candidate) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
