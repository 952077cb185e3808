package tokenizer

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Tokenizer turns messages into token sequences. It is configured once and
// holds no per-call state, so one Tokenizer may be used from many goroutines.
type Tokenizer struct {
	rules    *TokenizerRules
	splitter *Splitter
	lexer    *Lexer
	trace    *slog.Logger
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithTraceLogger sends a trace of every tokenization to logger at debug
// level, and zero-length pattern matches at warn level. By default traces
// are discarded.
func WithTraceLogger(logger *slog.Logger) Option {
	return func(t *Tokenizer) {
		if logger != nil {
			t.trace = logger
		}
	}
}

// NewTokenizer creates a new tokenizer instance with default rules.
func NewTokenizer(opts ...Option) *Tokenizer {
	return NewTokenizerWithRules(DefaultRules(), opts...)
}

// NewTokenizerWithRules creates a new tokenizer instance with custom rules.
// A nil rules value selects the defaults.
func NewTokenizerWithRules(rules *TokenizerRules, opts ...Option) *Tokenizer {
	if rules == nil {
		rules = DefaultRules()
	}
	// Take a private copy so later changes to the caller's value are not seen.
	own := *rules
	own.Patterns = append([]Pattern(nil), rules.Patterns...)

	t := &Tokenizer{
		rules:    &own,
		splitter: NewSplitter(own.Patterns),
		lexer:    NewLexer(own.Delimiters, own.KeepDelimiters),
		trace:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// New creates a tokenizer from a string of delimiter characters and a list
// of pattern sources in priority order, using the re2 engine.
func New(delimiters string, patterns []string, opts ...Option) (*Tokenizer, error) {
	rules := make([]PatternRule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, PatternRule{Regex: p})
	}
	compiled, err := CompileRules(&RulesFile{Delimiters: &delimiters, Patterns: &rules}, nil)
	if err != nil {
		return nil, err
	}
	return NewTokenizerWithRules(compiled, opts...), nil
}

// Rules returns the configuration of the tokenizer.
func (t *Tokenizer) Rules() *TokenizerRules {
	return t.rules
}

// Tokenize splits message into tokens. Pattern matches are single tokens;
// the text between them is split on delimiters. The result is never nil.
func (t *Tokenizer) Tokenize(message string) []string {
	message = t.rules.Normalize.Apply(message)
	spans, st := t.splitter.split(message)
	tokens := t.lexer.Lex(spans)
	t.logTokenization(message, tokens, st)
	return tokens
}

// Split returns the converged span sequence for message without lexing it.
func (t *Tokenizer) Split(message string) Spans {
	return t.splitter.Split(t.rules.Normalize.Apply(message))
}

// TokenizeAll tokenizes messages on up to workers goroutines and returns
// the results in input order. A non-positive workers uses GOMAXPROCS. It
// returns the context error if ctx ends first.
func (t *Tokenizer) TokenizeAll(ctx context.Context, messages []string, workers int) ([][]string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([][]string, len(messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, message := range messages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = t.Tokenize(message)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (t *Tokenizer) logTokenization(message string, tokens []string, st splitStats) {
	ctx := context.Background()
	if st.emptyMatches > 0 {
		t.trace.LogAttrs(ctx, slog.LevelWarn, "zero-length pattern matches ignored",
			slog.String("message", message),
			slog.Int("matches", st.emptyMatches),
		)
	}
	if !t.trace.Enabled(ctx, slog.LevelDebug) {
		return
	}
	t.trace.LogAttrs(ctx, slog.LevelDebug, FormatTokenization(message, tokens),
		slog.Int("generations", st.generations),
		slog.Int("tokens", len(tokens)),
	)
}
