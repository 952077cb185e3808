package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// DelimiterSet is an immutable set of single-character delimiters.
type DelimiterSet struct {
	chars string
	set   map[rune]struct{}
}

// NewDelimiterSet builds a set from every character of chars. Repeated
// characters are kept once.
func NewDelimiterSet(chars string) DelimiterSet {
	set := make(map[rune]struct{}, len(chars))
	var unique strings.Builder
	for _, r := range chars {
		if _, seen := set[r]; seen {
			continue
		}
		set[r] = struct{}{}
		unique.WriteRune(r)
	}
	return DelimiterSet{chars: unique.String(), set: set}
}

// Contains reports whether r is a delimiter.
func (d DelimiterSet) Contains(r rune) bool {
	_, ok := d.set[r]
	return ok
}

// Len returns the number of distinct delimiters.
func (d DelimiterSet) Len() int {
	return len(d.set)
}

// String returns the delimiters in first-seen order.
func (d DelimiterSet) String() string {
	return d.chars
}

// Lexer turns a converged span sequence into tokens.
type Lexer struct {
	delimiters     DelimiterSet
	keepDelimiters bool
}

// NewLexer creates a lexer splitting on delimiters. When keepDelimiters is
// set every delimiter character becomes a token of its own instead of
// being dropped.
func NewLexer(delimiters DelimiterSet, keepDelimiters bool) *Lexer {
	return &Lexer{delimiters: delimiters, keepDelimiters: keepDelimiters}
}

// Lex emits each opaque span as one token and splits each tokenizable span
// into maximal runs of non-delimiter characters. The result is never nil.
func (l *Lexer) Lex(spans Spans) []string {
	tokens := make([]string, 0, len(spans))
	for _, s := range spans {
		if s.Opaque() {
			tokens = append(tokens, s.Text)
			continue
		}
		tokens = l.lexText(s.Text, tokens)
	}
	return tokens
}

func (l *Lexer) lexText(text string, tokens []string) []string {
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if l.delimiters.Contains(r) {
			if start >= 0 {
				tokens = append(tokens, text[start:i])
				start = -1
			}
			if l.keepDelimiters {
				tokens = append(tokens, text[i:i+size])
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
	}
	return tokens
}
