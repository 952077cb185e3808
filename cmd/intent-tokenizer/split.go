package main

import (
	"github.com/spf13/cobra"

	"github.com/spicery/intent-tokenizer/internal/output"
)

func (a *app) newSplitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Show how a message is split into pattern matches and plain text",
		Long: `Split prints the span sequence a message converges to before delimiter
splitting: opaque spans matched by a pattern, with the pattern name, and
tokenizable spans in between.`,
		Example: `  echo "meet on 2024-05-01 please" | intent-tokenizer split --format pretty`,
		Args:    cobra.NoArgs,
		RunE:    a.runSplit,
	}
	addStreamFlags(cmd)
	return cmd
}

func (a *app) runSplit(cmd *cobra.Command, args []string) error {
	if err := a.bind(cmd, "input", "output", "format", "lines"); err != nil {
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

	return a.writeOutput(func(enc output.Encoder) error {
		for i, message := range messages {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if err := enc.WriteSpans(i, tok.Split(message)); err != nil {
				return err
			}
		}
		return nil
	})
}
