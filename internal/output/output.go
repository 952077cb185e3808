// Package output writes tokenization results in the formats the command line
// tool and the HTTP server offer.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/spicery/intent-tokenizer/pkg/tokenizer"
)

// Format names an output encoding.
type Format string

const (
	// FormatJSONL writes one JSON object per token or span.
	FormatJSONL Format = "jsonl"
	// FormatJSON writes one JSON array per message.
	FormatJSON Format = "json"
	// FormatMsgpack writes one MessagePack record per message.
	FormatMsgpack Format = "msgpack"
	// FormatPretty writes a human readable, optionally coloured, listing.
	FormatPretty Format = "pretty"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatJSONL, FormatJSON, FormatMsgpack, FormatPretty}

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSONL, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format: %s (want one of %s)", s, formatList())
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

// Encoder writes the results of successive messages. Message numbers start
// at zero and follow input order.
type Encoder interface {
	WriteTokens(message int, tokens []string) error
	WriteSpans(message int, spans tokenizer.Spans) error
	// Flush writes any buffered output.
	Flush() error
}

// Options tune an Encoder.
type Options struct {
	// Color enables ANSI colours in the pretty format.
	Color bool
}

// NewEncoder returns an Encoder writing format to w.
func NewEncoder(w io.Writer, format Format, opts Options) (Encoder, error) {
	bw := bufio.NewWriter(w)
	switch format {
	case FormatJSONL, "":
		return &jsonlEncoder{w: bw, enc: json.NewEncoder(bw)}, nil
	case FormatJSON:
		return &jsonEncoder{w: bw, enc: json.NewEncoder(bw)}, nil
	case FormatMsgpack:
		return &msgpackEncoder{w: bw, enc: msgpack.NewEncoder(bw)}, nil
	case FormatPretty:
		return newPrettyEncoder(bw, opts.Color), nil
	}
	return nil, fmt.Errorf("unknown format: %s", format)
}

// TokenRecord is one token in the jsonl format.
type TokenRecord struct {
	Message int    `json:"message"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
}

// SpanRecord is one span in the jsonl format.
type SpanRecord struct {
	Message int    `json:"message"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Opaque  bool   `json:"opaque"`
	Pattern string `json:"pattern,omitempty"`
}

type jsonlEncoder struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func (e *jsonlEncoder) WriteTokens(message int, tokens []string) error {
	for i, tok := range tokens {
		if err := e.enc.Encode(TokenRecord{Message: message, Index: i, Text: tok}); err != nil {
			return fmt.Errorf("error encoding token: %w", err)
		}
	}
	return nil
}

func (e *jsonlEncoder) WriteSpans(message int, spans tokenizer.Spans) error {
	for i, s := range spans {
		rec := SpanRecord{Message: message, Index: i, Text: s.Text, Opaque: s.Opaque(), Pattern: s.Pattern}
		if err := e.enc.Encode(rec); err != nil {
			return fmt.Errorf("error encoding span: %w", err)
		}
	}
	return nil
}

func (e *jsonlEncoder) Flush() error {
	return e.w.Flush()
}

type jsonEncoder struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func (e *jsonEncoder) WriteTokens(_ int, tokens []string) error {
	if err := e.enc.Encode(tokens); err != nil {
		return fmt.Errorf("error encoding tokens: %w", err)
	}
	return nil
}

func (e *jsonEncoder) WriteSpans(_ int, spans tokenizer.Spans) error {
	if spans == nil {
		spans = tokenizer.Spans{}
	}
	if err := e.enc.Encode(spans); err != nil {
		return fmt.Errorf("error encoding spans: %w", err)
	}
	return nil
}

func (e *jsonEncoder) Flush() error {
	return e.w.Flush()
}

// TokensMessage is the MessagePack record for one tokenized message.
type TokensMessage struct {
	Message int      `msgpack:"message"`
	Tokens  []string `msgpack:"tokens"`
}

// SpansMessage is the MessagePack record for one split message.
type SpansMessage struct {
	Message int           `msgpack:"message"`
	Spans   []SpanPayload `msgpack:"spans"`
}

// SpanPayload is a span inside a SpansMessage.
type SpanPayload struct {
	Text    string `msgpack:"text"`
	Opaque  bool   `msgpack:"opaque"`
	Pattern string `msgpack:"pattern,omitempty"`
}

type msgpackEncoder struct {
	w   *bufio.Writer
	enc *msgpack.Encoder
}

func (e *msgpackEncoder) WriteTokens(message int, tokens []string) error {
	if err := e.enc.Encode(TokensMessage{Message: message, Tokens: tokens}); err != nil {
		return fmt.Errorf("error encoding tokens: %w", err)
	}
	return nil
}

func (e *msgpackEncoder) WriteSpans(message int, spans tokenizer.Spans) error {
	payload := SpansMessage{Message: message, Spans: make([]SpanPayload, len(spans))}
	for i, s := range spans {
		payload.Spans[i] = SpanPayload{Text: s.Text, Opaque: s.Opaque(), Pattern: s.Pattern}
	}
	if err := e.enc.Encode(payload); err != nil {
		return fmt.Errorf("error encoding spans: %w", err)
	}
	return nil
}

func (e *msgpackEncoder) Flush() error {
	return e.w.Flush()
}

type prettyEncoder struct {
	w       *bufio.Writer
	number  *color.Color
	token   *color.Color
	opaque  *color.Color
	pattern *color.Color
}

func newPrettyEncoder(w *bufio.Writer, useColor bool) *prettyEncoder {
	e := &prettyEncoder{
		w:       w,
		number:  color.New(color.FgHiBlack),
		token:   color.New(color.FgCyan),
		opaque:  color.New(color.FgYellow, color.Bold),
		pattern: color.New(color.FgMagenta),
	}
	for _, c := range []*color.Color{e.number, e.token, e.opaque, e.pattern} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return e
}

func (e *prettyEncoder) WriteTokens(message int, tokens []string) error {
	e.number.Fprintf(e.w, "%3d:", message+1)
	for _, tok := range tokens {
		fmt.Fprint(e.w, " ")
		e.token.Fprintf(e.w, "%q", tok)
	}
	_, err := fmt.Fprintln(e.w)
	return err
}

func (e *prettyEncoder) WriteSpans(message int, spans tokenizer.Spans) error {
	e.number.Fprintf(e.w, "%3d:", message+1)
	for _, s := range spans {
		fmt.Fprint(e.w, " ")
		if s.Tokenizable {
			fmt.Fprintf(e.w, "[%s]", s.Text)
			continue
		}
		e.opaque.Fprintf(e.w, "<%s>", s.Text)
		if s.Pattern != "" {
			e.pattern.Fprintf(e.w, ":%s", s.Pattern)
		}
	}
	_, err := fmt.Fprintln(e.w)
	return err
}

func (e *prettyEncoder) Flush() error {
	return e.w.Flush()
}
