package tokenizer

import (
	"errors"
	"fmt"
)

// ErrEmptyPattern is wrapped by an InvalidPatternError when a pattern has no
// source text.
var ErrEmptyPattern = errors.New("empty pattern")

// InvalidPatternError reports a pattern whose source failed to compile.
type InvalidPatternError struct {
	Index  int
	Name   string
	Source string
	Err    error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %d (%s) %q: %v", e.Index, e.Name, e.Source, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// DegeneratePatternError reports a pattern that matches the empty string.
// Such a pattern would claim zero-width opaque spans forever, so it is
// rejected when the rules are compiled.
type DegeneratePatternError struct {
	Index  int
	Name   string
	Source string
}

func (e *DegeneratePatternError) Error() string {
	return fmt.Sprintf("pattern %d (%s) %q matches the empty string", e.Index, e.Name, e.Source)
}
