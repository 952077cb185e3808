package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// DefaultDelimiters are the delimiter characters used when a rules file does
// not name its own: whitespace and common punctuation.
const DefaultDelimiters = " \t\r\n,.;:!?\"()[]{}"

// RulesFile represents the structure of a YAML or TOML rules file. Absent
// fields keep their default values; a present `patterns` list, even an empty
// one, replaces the default patterns.
type RulesFile struct {
	Delimiters     *string        `yaml:"delimiters,omitempty" toml:"delimiters,omitempty" json:"delimiters,omitempty"`
	Engine         string         `yaml:"engine,omitempty" toml:"engine,omitempty" json:"engine,omitempty"`
	KeepDelimiters bool           `yaml:"keep_delimiters,omitempty" toml:"keep_delimiters,omitempty" json:"keep_delimiters,omitempty"`
	Normalize      string         `yaml:"normalize,omitempty" toml:"normalize,omitempty" json:"normalize,omitempty"`
	MatchTimeout   string         `yaml:"match_timeout,omitempty" toml:"match_timeout,omitempty" json:"match_timeout,omitempty"`
	Patterns       *[]PatternRule `yaml:"patterns,omitempty" toml:"patterns,omitempty" json:"patterns,omitempty"`
}

// PatternRule represents one opaque-span pattern. Order in the file is
// priority order.
type PatternRule struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	Regex       string `yaml:"regex" toml:"regex" json:"regex"`
	Description string `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
}

// Pattern is a compiled PatternRule.
type Pattern struct {
	Name        string
	Description string
	Matcher     Matcher
}

// Source returns the regular expression text of the pattern.
func (p Pattern) Source() string {
	return p.Matcher.String()
}

// Normalization selects an optional Unicode normalization applied to every
// message before it is split.
type Normalization string

const (
	NormalizeNone Normalization = ""
	NormalizeNFC  Normalization = "nfc"
	NormalizeNFKC Normalization = "nfkc"
)

// ParseNormalization maps a configuration string to a Normalization.
func ParseNormalization(s string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NormalizeNone, nil
	case string(NormalizeNFC):
		return NormalizeNFC, nil
	case string(NormalizeNFKC):
		return NormalizeNFKC, nil
	}
	return "", fmt.Errorf("unknown normalization '%s'", s)
}

// Apply normalizes s.
func (n Normalization) Apply(s string) string {
	switch n {
	case NormalizeNFC:
		return norm.NFC.String(s)
	case NormalizeNFKC:
		return norm.NFKC.String(s)
	}
	return s
}

// TokenizerRules holds a compiled tokenizer configuration. It is not
// modified after construction.
type TokenizerRules struct {
	Delimiters     DelimiterSet
	Patterns       []Pattern
	Engine         Engine
	KeepDelimiters bool
	Normalize      Normalization
	MatchTimeout   time.Duration
}

// DefaultRulesFile returns the default rules in file form.
func DefaultRulesFile() *RulesFile {
	delimiters := DefaultDelimiters
	patterns := getDefaultPatterns()
	return &RulesFile{
		Delimiters: &delimiters,
		Engine:     string(EngineRE2),
		Patterns:   &patterns,
	}
}

// DefaultRules returns the default tokenizer rules
func DefaultRules() *TokenizerRules {
	// The default patterns are fixed, so failing to compile them is a bug.
	rules, err := CompileRules(DefaultRulesFile(), nil)
	if err != nil {
		panic(fmt.Sprintf("Invalid default rules: %v", err))
	}
	return rules
}

// LoadRulesFile loads and parses a rules file. Files ending in .toml are
// read as TOML, everything else as YAML.
func LoadRulesFile(filename string) (*RulesFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", filename, err)
	}

	var rules RulesFile
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &rules); err != nil {
			return nil, fmt.Errorf("failed to parse TOML in rules file '%s': %w", filename, err)
		}
	default:
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return nil, fmt.Errorf("failed to parse YAML in rules file '%s': %w", filename, err)
		}
	}

	return &rules, nil
}

// ApplyRulesToDefaults applies the rules from a RulesFile on top of the
// defaults and compiles the result.
func ApplyRulesToDefaults(rules *RulesFile) (*TokenizerRules, error) {
	return ApplyRulesToDefaultsWithCache(rules, nil)
}

// ApplyRulesToDefaultsWithCache is ApplyRulesToDefaults drawing compiled
// patterns from cache.
func ApplyRulesToDefaultsWithCache(rules *RulesFile, cache *PatternCache) (*TokenizerRules, error) {
	merged := DefaultRulesFile()
	if rules != nil {
		if rules.Delimiters != nil {
			merged.Delimiters = rules.Delimiters
		}
		if rules.Engine != "" {
			merged.Engine = rules.Engine
		}
		if rules.KeepDelimiters {
			merged.KeepDelimiters = true
		}
		if rules.Normalize != "" {
			merged.Normalize = rules.Normalize
		}
		if rules.MatchTimeout != "" {
			merged.MatchTimeout = rules.MatchTimeout
		}
		if rules.Patterns != nil {
			merged.Patterns = rules.Patterns
		}
	}
	return CompileRules(merged, cache)
}

// CompileRules compiles rules exactly as given, without merging defaults.
// It fails with an *InvalidPatternError or *DegeneratePatternError on the
// first bad pattern, or with an error naming a duplicated pattern name.
func CompileRules(rules *RulesFile, cache *PatternCache) (*TokenizerRules, error) {
	if rules == nil {
		rules = &RulesFile{}
	}

	engine, err := ParseEngine(rules.Engine)
	if err != nil {
		return nil, err
	}
	normalize, err := ParseNormalization(rules.Normalize)
	if err != nil {
		return nil, err
	}
	var timeout time.Duration
	if rules.MatchTimeout != "" {
		timeout, err = time.ParseDuration(rules.MatchTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid match_timeout '%s': %w", rules.MatchTimeout, err)
		}
	}

	delimiters := ""
	if rules.Delimiters != nil {
		delimiters = *rules.Delimiters
	}

	var patternRules []PatternRule
	if rules.Patterns != nil {
		patternRules = *rules.Patterns
	}

	compiled := &TokenizerRules{
		Delimiters:     NewDelimiterSet(delimiters),
		Patterns:       make([]Pattern, 0, len(patternRules)),
		Engine:         engine,
		KeepDelimiters: rules.KeepDelimiters,
		Normalize:      normalize,
		MatchTimeout:   timeout,
	}

	seen := make(map[string]int, len(patternRules))
	for i, rule := range patternRules {
		name := rule.Name
		if name == "" {
			name = fmt.Sprintf("pattern%d", i)
		}
		if j, exists := seen[name]; exists {
			return nil, fmt.Errorf("pattern name '%s' is used by both pattern %d and pattern %d", name, j, i)
		}
		seen[name] = i

		pattern, err := compilePattern(i, name, rule, engine, timeout, cache)
		if err != nil {
			return nil, err
		}
		compiled.Patterns = append(compiled.Patterns, pattern)
	}

	return compiled, nil
}

func compilePattern(index int, name string, rule PatternRule, engine Engine, timeout time.Duration, cache *PatternCache) (Pattern, error) {
	matcher, err := cache.Compile(engine, rule.Regex, timeout)
	if err != nil {
		return Pattern{}, &InvalidPatternError{Index: index, Name: name, Source: rule.Regex, Err: err}
	}
	if err := checkMatcher(index, name, rule.Regex, matcher); err != nil {
		return Pattern{}, err
	}
	return Pattern{Name: name, Description: rule.Description, Matcher: matcher}, nil
}

// checkMatcher rejects a matcher that matches the empty string, or whose
// engine fails while trying.
func checkMatcher(index int, name, source string, matcher Matcher) error {
	empty := false
	if em, ok := matcher.(errMatcher); ok {
		var err error
		if empty, err = em.matchString(""); err != nil {
			return &InvalidPatternError{Index: index, Name: name, Source: source, Err: err}
		}
	} else {
		empty = matcher.MatchString("")
	}
	if empty {
		return &DegeneratePatternError{Index: index, Name: name, Source: source}
	}
	return nil
}

// RulesFile converts compiled rules back into file form, e.g. to write them
// out as YAML.
func (rules *TokenizerRules) RulesFile() *RulesFile {
	delimiters := rules.Delimiters.String()
	patterns := make([]PatternRule, 0, len(rules.Patterns))
	for _, p := range rules.Patterns {
		patterns = append(patterns, PatternRule{
			Name:        p.Name,
			Regex:       p.Source(),
			Description: p.Description,
		})
	}
	file := &RulesFile{
		Delimiters:     &delimiters,
		Engine:         string(rules.Engine),
		KeepDelimiters: rules.KeepDelimiters,
		Normalize:      string(rules.Normalize),
		Patterns:       &patterns,
	}
	if rules.MatchTimeout > 0 {
		file.MatchTimeout = rules.MatchTimeout.String()
	}
	return file
}

// getDefaultPatterns lists the default patterns, highest priority first.
// URLs and e-mail addresses come before numbers so that the digits inside
// them are not claimed separately.
func getDefaultPatterns() []PatternRule {
	return []PatternRule{
		{
			Name:        "url",
			Regex:       `https?://[^\s"<>()]*[^\s"<>().,;:!?]`,
			Description: "http and https URLs",
		},
		{
			Name:        "email",
			Regex:       `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
			Description: "E-mail addresses",
		},
		{
			Name:        "date",
			Regex:       `\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}`,
			Description: "ISO and slash separated dates",
		},
		{
			Name:        "time",
			Regex:       `\d{1,2}:\d{2}(?::\d{2})?(?:\s?[aApP][mM])?`,
			Description: "Clock times with optional seconds and am/pm",
		},
		{
			Name:        "number",
			Regex:       `\d+(?:\.\d+)?`,
			Description: "Integers and decimals",
		},
	}
}
