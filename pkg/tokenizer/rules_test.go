package tokenizer

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadRulesFileYAML(t *testing.T) {
	rulesContent := `delimiters: " ,;"
keep_delimiters: true
normalize: nfkc
patterns:
  - name: ticket
    regex: 'TCK-\d+'
    description: Ticket numbers
  - name: date
    regex: '\d{4}-\d{2}-\d{2}'
`
	filename := filepath.Join(t.TempDir(), "rules.yaml")
	if err := writeFile(filename, rulesContent); err != nil {
		t.Fatalf("Failed to write test rules file: %v", err)
	}

	rulesFile, err := LoadRulesFile(filename)
	if err != nil {
		t.Fatalf("Failed to load rules file: %v", err)
	}
	rules, err := ApplyRulesToDefaults(rulesFile)
	if err != nil {
		t.Fatalf("Failed to apply rules: %v", err)
	}

	if rules.Delimiters.String() != " ,;" {
		t.Errorf("Expected delimiters ' ,;', got %q", rules.Delimiters.String())
	}
	if !rules.KeepDelimiters {
		t.Error("Expected keep_delimiters to be set")
	}
	if rules.Normalize != NormalizeNFKC {
		t.Errorf("Expected nfkc normalization, got %q", rules.Normalize)
	}
	if len(rules.Patterns) != 2 {
		t.Fatalf("Expected 2 patterns, got %d", len(rules.Patterns))
	}
	if rules.Patterns[0].Name != "ticket" || rules.Patterns[0].Source() != `TCK-\d+` {
		t.Errorf("Unexpected first pattern %s %q", rules.Patterns[0].Name, rules.Patterns[0].Source())
	}
	if rules.Patterns[0].Description != "Ticket numbers" {
		t.Errorf("Expected description 'Ticket numbers', got %q", rules.Patterns[0].Description)
	}

	tokens := NewTokenizerWithRules(rules).Tokenize("see TCK-42;now")
	expected := []string{"see", " ", "TCK-42", ";", "now"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Expected %q, got %q", expected, tokens)
	}
}

func TestLoadRulesFileTOML(t *testing.T) {
	rulesContent := `delimiters = " "
engine = "regexp2"
match_timeout = "50ms"

[[patterns]]
name = "amount"
regex = '\d+(?= ?eur)'
`
	filename := filepath.Join(t.TempDir(), "rules.toml")
	if err := writeFile(filename, rulesContent); err != nil {
		t.Fatalf("Failed to write test rules file: %v", err)
	}

	rulesFile, err := LoadRulesFile(filename)
	if err != nil {
		t.Fatalf("Failed to load rules file: %v", err)
	}
	rules, err := ApplyRulesToDefaults(rulesFile)
	if err != nil {
		t.Fatalf("Failed to apply rules: %v", err)
	}

	if rules.Engine != EngineRegexp2 {
		t.Errorf("Expected regexp2 engine, got %q", rules.Engine)
	}
	if rules.MatchTimeout != 50*time.Millisecond {
		t.Errorf("Expected 50ms timeout, got %v", rules.MatchTimeout)
	}
	if len(rules.Patterns) != 1 || rules.Patterns[0].Name != "amount" {
		t.Fatalf("Expected the single 'amount' pattern, got %+v", rules.Patterns)
	}

	tokens := NewTokenizerWithRules(rules).Tokenize("pay 20 eur")
	expected := []string{"pay", "20", "eur"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Expected %q, got %q", expected, tokens)
	}
}

func TestLoadRulesFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadRulesFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := writeFile(bad, "patterns: [unclosed"); err != nil {
		t.Fatalf("Failed to write test rules file: %v", err)
	}
	if _, err := LoadRulesFile(bad); err == nil || !strings.Contains(err.Error(), "YAML") {
		t.Errorf("Expected a YAML parse error, got %v", err)
	}

	badToml := filepath.Join(dir, "bad.toml")
	if err := writeFile(badToml, "delimiters = "); err != nil {
		t.Fatalf("Failed to write test rules file: %v", err)
	}
	if _, err := LoadRulesFile(badToml); err == nil || !strings.Contains(err.Error(), "TOML") {
		t.Errorf("Expected a TOML parse error, got %v", err)
	}
}

func TestApplyRulesKeepsDefaults(t *testing.T) {
	rules, err := ApplyRulesToDefaults(&RulesFile{})
	if err != nil {
		t.Fatalf("Failed to apply rules: %v", err)
	}
	defaults := DefaultRules()

	if rules.Delimiters.String() != defaults.Delimiters.String() {
		t.Errorf("Expected default delimiters %q, got %q", defaults.Delimiters.String(), rules.Delimiters.String())
	}
	if len(rules.Patterns) != len(defaults.Patterns) {
		t.Fatalf("Expected %d patterns, got %d", len(defaults.Patterns), len(rules.Patterns))
	}
	for i := range rules.Patterns {
		if rules.Patterns[i].Name != defaults.Patterns[i].Name {
			t.Errorf("Pattern %d: expected %s, got %s", i, defaults.Patterns[i].Name, rules.Patterns[i].Name)
		}
	}
	if rules.Engine != EngineRE2 {
		t.Errorf("Expected re2 engine, got %q", rules.Engine)
	}
}

func TestEmptyPatternListReplacesDefaults(t *testing.T) {
	var rulesFile RulesFile
	if err := yaml.Unmarshal([]byte("patterns: []\n"), &rulesFile); err != nil {
		t.Fatalf("Failed to parse rules: %v", err)
	}
	rules, err := ApplyRulesToDefaults(&rulesFile)
	if err != nil {
		t.Fatalf("Failed to apply rules: %v", err)
	}
	if len(rules.Patterns) != 0 {
		t.Errorf("Expected no patterns, got %d", len(rules.Patterns))
	}

	tokens := NewTokenizerWithRules(rules).Tokenize("on 2024-05-01")
	expected := []string{"on", "2024-05-01"}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("Expected %q, got %q", expected, tokens)
	}
}

func TestCompileRulesErrors(t *testing.T) {
	tests := []struct {
		name    string
		rules   string
		message string
	}{
		{"Duplicate name", "patterns:\n  - {name: a, regex: x}\n  - {name: a, regex: y}\n", "pattern name 'a' is used by both pattern 0 and pattern 1"},
		{"Unknown engine", "engine: awk\n", "unknown regex engine 'awk'"},
		{"Unknown normalization", "normalize: nfd\n", "unknown normalization 'nfd'"},
		{"Bad timeout", "match_timeout: soon\n", "invalid match_timeout 'soon'"},
		{"Bad regex", "patterns:\n  - {name: broken, regex: '('}\n", "invalid pattern 0 (broken)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rulesFile RulesFile
			if err := yaml.Unmarshal([]byte(tt.rules), &rulesFile); err != nil {
				t.Fatalf("Failed to parse rules: %v", err)
			}
			_, err := ApplyRulesToDefaults(&rulesFile)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected error containing %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestRulesFileRoundTrip(t *testing.T) {
	data, err := yaml.Marshal(DefaultRules().RulesFile())
	if err != nil {
		t.Fatalf("Failed to marshal rules: %v", err)
	}

	var rulesFile RulesFile
	if err := yaml.Unmarshal(data, &rulesFile); err != nil {
		t.Fatalf("Failed to parse marshalled rules: %v", err)
	}
	rules, err := CompileRules(&rulesFile, nil)
	if err != nil {
		t.Fatalf("Failed to compile marshalled rules: %v", err)
	}

	defaults := DefaultRules()
	if rules.Delimiters.String() != defaults.Delimiters.String() {
		t.Errorf("Delimiters changed: %q -> %q", defaults.Delimiters.String(), rules.Delimiters.String())
	}
	for i := range defaults.Patterns {
		if rules.Patterns[i].Source() != defaults.Patterns[i].Source() {
			t.Errorf("Pattern %d changed: %q -> %q", i, defaults.Patterns[i].Source(), rules.Patterns[i].Source())
		}
	}
}

func TestPatternCache(t *testing.T) {
	cache, err := NewPatternCache(0)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	first, err := ApplyRulesToDefaultsWithCache(nil, cache)
	if err != nil {
		t.Fatalf("Failed to apply rules: %v", err)
	}
	if cache.Len() != len(first.Patterns) {
		t.Errorf("Expected %d cached matchers, got %d", len(first.Patterns), cache.Len())
	}

	second, err := ApplyRulesToDefaultsWithCache(nil, cache)
	if err != nil {
		t.Fatalf("Failed to apply rules: %v", err)
	}
	if cache.Len() != len(first.Patterns) {
		t.Errorf("Expected cache to stay at %d, got %d", len(first.Patterns), cache.Len())
	}
	for i := range first.Patterns {
		if first.Patterns[i].Matcher != second.Patterns[i].Matcher {
			t.Errorf("Pattern %d was recompiled", i)
		}
	}

	// Same source, other engine: a separate entry.
	if _, err := cache.Compile(EngineRegexp2, first.Patterns[0].Source(), 0); err != nil {
		t.Fatalf("Failed to compile: %v", err)
	}
	if cache.Len() != len(first.Patterns)+1 {
		t.Errorf("Expected %d cached matchers, got %d", len(first.Patterns)+1, cache.Len())
	}

	// Errors are not cached.
	if _, err := cache.Compile(EngineRE2, "(", 0); err == nil {
		t.Error("Expected a compile error")
	}
	if cache.Len() != len(first.Patterns)+1 {
		t.Errorf("Compile error was cached")
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		input    string
		expected Engine
	}{
		{"", EngineRE2},
		{"re2", EngineRE2},
		{"RE2", EngineRE2},
		{"regexp2", EngineRegexp2},
		{"pcre", EngineRegexp2},
		{" perl ", EngineRegexp2},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEngine(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDelimiterSet(t *testing.T) {
	d := NewDelimiterSet(" ,, 、")
	if d.String() != " ,、" {
		t.Errorf("Expected ' ,、', got %q", d.String())
	}
	if d.Len() != 3 {
		t.Errorf("Expected 3 delimiters, got %d", d.Len())
	}
	if !d.Contains('、') || d.Contains('x') {
		t.Error("Unexpected membership result")
	}
}
