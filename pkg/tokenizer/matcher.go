package tokenizer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Engine selects the regular expression implementation used for patterns.
type Engine string

const (
	// EngineRE2 uses Go's regexp package: linear time, no backreferences
	// or lookaround.
	EngineRE2 Engine = "re2"
	// EngineRegexp2 uses a backtracking engine with Perl/.NET syntax,
	// including lookaround and backreferences.
	EngineRegexp2 Engine = "regexp2"
)

// ParseEngine maps a configuration string to an Engine. The empty string
// selects EngineRE2.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(EngineRE2):
		return EngineRE2, nil
	case string(EngineRegexp2), "perl", "pcre":
		return EngineRegexp2, nil
	}
	return "", fmt.Errorf("unknown regex engine '%s'", s)
}

// Matcher is the regular expression capability the splitter consumes.
type Matcher interface {
	// MatchString reports whether the pattern matches anywhere in s.
	MatchString(s string) bool
	// FindAllStringIndex returns the byte offsets of all successive
	// non-overlapping matches in s, left to right.
	FindAllStringIndex(s string) [][]int
	// String returns the source text of the pattern.
	String() string
}

// errMatcher is implemented by matchers whose engine can fail while
// matching.
type errMatcher interface {
	matchString(s string) (bool, error)
}

// CompileMatcher compiles source with the given engine. The timeout bounds
// each regexp2 match and is ignored by EngineRE2.
func CompileMatcher(engine Engine, source string, timeout time.Duration) (Matcher, error) {
	if source == "" {
		return nil, ErrEmptyPattern
	}
	switch engine {
	case EngineRE2, "":
		re, err := regexp.Compile(source)
		if err != nil {
			return nil, err
		}
		return re2Matcher{re: re}, nil
	case EngineRegexp2:
		re, err := regexp2.Compile(source, regexp2.None)
		if err != nil {
			return nil, err
		}
		if timeout > 0 {
			re.MatchTimeout = timeout
		}
		return regexp2Matcher{re: re}, nil
	}
	return nil, fmt.Errorf("unknown regex engine '%s'", engine)
}

type re2Matcher struct {
	re *regexp.Regexp
}

func (m re2Matcher) MatchString(s string) bool {
	return m.re.MatchString(s)
}

func (m re2Matcher) FindAllStringIndex(s string) [][]int {
	return m.re.FindAllStringIndex(s, -1)
}

func (m re2Matcher) String() string {
	return m.re.String()
}

type regexp2Matcher struct {
	re *regexp2.Regexp
}

func (m regexp2Matcher) MatchString(s string) bool {
	ok, err := m.matchString(s)
	return err == nil && ok
}

// matchString reports whether the pattern matches s, returning the engine
// error (a match timeout) instead of treating it as no match.
func (m regexp2Matcher) matchString(s string) (bool, error) {
	return m.re.MatchString(s)
}

// FindAllStringIndex walks the regexp2 matches, whose offsets count runes,
// and converts them to byte offsets into s. A match timeout ends the walk:
// matches found before it are returned, and the rest of s stays unclaimed.
// Since the splitter retries that remainder every generation and times out
// again at the same place, later matches in the span are never claimed.
func (m regexp2Matcher) FindAllStringIndex(s string) [][]int {
	match, err := m.re.FindStringMatch(s)
	if err != nil || match == nil {
		return nil
	}

	// offsets[i] is the byte offset of rune i; the final entry is len(s).
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(s))

	var result [][]int
	for match != nil {
		start := offsets[match.Index]
		end := offsets[match.Index+match.Length]
		result = append(result, []int{start, end})
		match, err = m.re.FindNextMatch(match)
		if err != nil {
			break
		}
	}
	return result
}

func (m regexp2Matcher) String() string {
	return m.re.String()
}
