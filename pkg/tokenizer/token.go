package tokenizer

import (
	"encoding/json"
	"strings"
)

// Span represents a contiguous piece of a message. A tokenizable span is
// still subject to delimiter splitting; an opaque span was claimed whole by
// a pattern and becomes exactly one token.
type Span struct {
	Text        string
	Tokenizable bool
	Pattern     string // Name of the claiming pattern (opaque spans only)
}

// NewTokenizableSpan creates a span that the lexer will split on delimiters.
func NewTokenizableSpan(text string) Span {
	return Span{Text: text, Tokenizable: true}
}

// NewOpaqueSpan creates a span claimed by the named pattern.
func NewOpaqueSpan(text, pattern string) Span {
	return Span{Text: text, Pattern: pattern}
}

// Opaque reports whether the span was claimed by a pattern.
func (s Span) Opaque() bool {
	return !s.Tokenizable
}

// Equal compares text and classification. The pattern name is metadata and
// does not take part in the comparison.
func (s Span) Equal(other Span) bool {
	return s.Text == other.Text && s.Tokenizable == other.Tokenizable
}

type spanJSON struct {
	Text    string `json:"text"`
	Opaque  bool   `json:"opaque"`
	Pattern string `json:"pattern,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for Span.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal(spanJSON{Text: s.Text, Opaque: s.Opaque(), Pattern: s.Pattern})
}

// UnmarshalJSON implements custom JSON unmarshaling for Span.
func (s *Span) UnmarshalJSON(data []byte) error {
	var v spanJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Text = v.Text
	s.Tokenizable = !v.Opaque
	s.Pattern = v.Pattern
	return nil
}

// Spans is an ordered span sequence, left to right in the message.
type Spans []Span

// Equal reports whether both sequences have the same length and pairwise
// equal spans. This is the fixed-point test of the splitter.
func (ss Spans) Equal(other Spans) bool {
	if len(ss) != len(other) {
		return false
	}
	for i := range ss {
		if !ss[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Text concatenates the span texts in order. For splitter output this is
// always the original message.
func (ss Spans) Text() string {
	var b strings.Builder
	for _, s := range ss {
		b.WriteString(s.Text)
	}
	return b.String()
}

// OpaqueCount returns the number of spans claimed by patterns.
func (ss Spans) OpaqueCount() int {
	n := 0
	for _, s := range ss {
		if s.Opaque() {
			n++
		}
	}
	return n
}

// String renders tokenizable spans in square brackets and opaque spans in
// angle brackets, e.g. `[meet on ]<2024-05-01>[ please]`.
func (ss Spans) String() string {
	var b strings.Builder
	for _, s := range ss {
		if s.Tokenizable {
			b.WriteByte('[')
			b.WriteString(s.Text)
			b.WriteByte(']')
		} else {
			b.WriteByte('<')
			b.WriteString(s.Text)
			b.WriteByte('>')
		}
	}
	return b.String()
}

// FormatTokenization renders a one-line human readable account of a
// tokenization, e.g. `Tokenization of "book a flight" gives "book,a,flight"`.
func FormatTokenization(message string, tokens []string) string {
	return `Tokenization of "` + message + `" gives "` + strings.Join(tokens, ",") + `"`
}
