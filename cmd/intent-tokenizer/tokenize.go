package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spicery/intent-tokenizer/internal/output"
)

func (a *app) newTokenizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Tokenize a message",
		Long: `Tokenize reads a message from --input (or stdin) and writes its tokens.

By default the whole input is one message. With --lines every line is a
message; lines are tokenized concurrently and written in input order.`,
		Example: `  echo "meet on 2024-05-01 please" | intent-tokenizer tokenize
  intent-tokenizer tokenize --lines --input chat.txt --format json
  intent-tokenizer tokenize --rules custom.yaml --format pretty`,
		Args: cobra.NoArgs,
		RunE: a.runTokenize,
	}
	addStreamFlags(cmd)
	cmd.Flags().Int("workers", 0, "concurrent workers for --lines (0 uses all CPUs)")
	return cmd
}

// addStreamFlags adds the flags shared by tokenize and split.
func addStreamFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "input file (defaults to stdin)")
	cmd.Flags().String("output", "", "output file (defaults to stdout)")
	cmd.Flags().String("format", string(output.FormatJSONL), "output format (jsonl|json|msgpack|pretty)")
	cmd.Flags().Bool("lines", false, "treat each input line as a separate message")
}

func (a *app) runTokenize(cmd *cobra.Command, args []string) error {
	if err := a.bind(cmd, "input", "output", "format", "lines", "workers"); err != nil {
		return err
	}

	tok, err := a.loadTokenizer(nil)
	if err != nil {
		return err
	}
	messages, err := a.readMessages()
	if err != nil {
		return err
	}

	results, err := tok.TokenizeAll(cmd.Context(), messages, a.v.GetInt("workers"))
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	return a.writeOutput(func(enc output.Encoder) error {
		for i, tokens := range results {
			if err := enc.WriteTokens(i, tokens); err != nil {
				return err
			}
		}
		return nil
	})
}

// readMessages reads the input as one message, or one per line with --lines.
func (a *app) readMessages() ([]string, error) {
	input, err := a.readInput(a.v.GetString("input"))
	if err != nil {
		return nil, err
	}
	if a.v.GetBool("lines") {
		return splitLines(input), nil
	}
	return []string{input}, nil
}

// writeOutput opens the --output destination in the --format encoding and
// hands the encoder to write.
func (a *app) writeOutput(write func(output.Encoder) error) error {
	format, err := output.ParseFormat(a.v.GetString("format"))
	if err != nil {
		return err
	}
	w, closeOutput, err := a.openOutput(a.v.GetString("output"))
	if err != nil {
		return err
	}
	color, err := useColor(a.v.GetString("color"), w)
	if err != nil {
		return errors.Join(err, closeOutput())
	}
	enc, err := output.NewEncoder(w, format, output.Options{Color: color})
	if err != nil {
		return errors.Join(err, closeOutput())
	}

	writeErr := write(enc)
	if err := enc.Flush(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("error writing output: %w", err)
	}
	if err := closeOutput(); err != nil && writeErr == nil {
		writeErr = err
	}
	return writeErr
}
