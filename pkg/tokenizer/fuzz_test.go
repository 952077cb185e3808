package tokenizer

import (
	"strings"
	"testing"
)

func FuzzTokenize(f *testing.F) {
	seeds := []string{
		"",
		"book a flight",
		"Call me at 10:30 on 2024-05-01, email bob@example.com.",
		"see https://example.com/a?b=1.",
		"1/2/2024 3.14 12:00pm",
		"東京、大阪 京都",
		"\xff\xfe 12 \x00",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	tokenizer := NewTokenizer()
	splitter := NewSplitter(tokenizer.Rules().Patterns)

	f.Fuzz(func(t *testing.T, message string) {
		spans := tokenizer.Split(message)
		if got := spans.Text(); got != message {
			t.Fatalf("spans %v concatenate to %q, want %q", spans, got, message)
		}
		if again := splitter.Step(spans); !again.Equal(spans) {
			t.Fatalf("step changed converged spans %v -> %v", spans, again)
		}
		for i, s := range spans {
			if s.Opaque() && s.Text == "" {
				t.Fatalf("span %d is an empty opaque span", i)
			}
		}

		for i, tok := range tokenizer.Tokenize(message) {
			if tok == "" {
				t.Fatalf("token %d is empty", i)
			}
			if !strings.Contains(message, tok) {
				t.Fatalf("token %q is not part of %q", tok, message)
			}
		}
	})
}
