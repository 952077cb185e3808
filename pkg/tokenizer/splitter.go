package tokenizer

// Splitter partitions a message into tokenizable and opaque spans using a
// priority-ordered list of patterns, repeating until the partition stops
// changing.
type Splitter struct {
	patterns []Pattern
}

// splitStats records what happened during one Split call.
type splitStats struct {
	generations  int
	emptyMatches int
}

// NewSplitter creates a splitter over patterns, highest priority first.
// The slice is copied.
func NewSplitter(patterns []Pattern) *Splitter {
	return &Splitter{patterns: append([]Pattern(nil), patterns...)}
}

// Split returns the fixed-point span sequence for message. Concatenating
// the span texts always gives back message.
func (s *Splitter) Split(message string) Spans {
	spans, _ := s.split(message)
	return spans
}

// Step runs a single generation over spans and returns the new sequence.
// On a fixed point the result equals spans.
func (s *Splitter) Step(spans Spans) Spans {
	var st splitStats
	return s.step(spans, &st)
}

func (s *Splitter) split(message string) (Spans, splitStats) {
	var st splitStats
	current := Spans{NewTokenizableSpan(message)}
	for {
		next := s.step(current, &st)
		st.generations++
		if next.Equal(current) {
			return next, st
		}
		current = next
	}
}

func (s *Splitter) step(current Spans, st *splitStats) Spans {
	next := make(Spans, 0, len(current))
	for _, span := range current {
		if span.Opaque() || len(s.patterns) == 0 {
			next = append(next, span)
			continue
		}
		next = s.splitSpan(span, next, st)
	}
	return next
}

// splitSpan applies the first pattern with a non-empty match to span and
// appends the resulting pieces to next. Later patterns are not tried for
// this span in this generation. Zero-length matches are ignored.
func (s *Splitter) splitSpan(span Span, next Spans, st *splitStats) Spans {
	text := span.Text
	for _, p := range s.patterns {
		pos := 0
		claimed := false
		for _, m := range p.Matcher.FindAllStringIndex(text) {
			if m[0] == m[1] {
				st.emptyMatches++
				continue
			}
			if m[0] > pos {
				next = append(next, NewTokenizableSpan(text[pos:m[0]]))
			}
			next = append(next, NewOpaqueSpan(text[m[0]:m[1]], p.Name))
			pos = m[1]
			claimed = true
		}
		if claimed {
			if pos < len(text) {
				next = append(next, NewTokenizableSpan(text[pos:]))
			}
			return next
		}
	}
	return append(next, span)
}
