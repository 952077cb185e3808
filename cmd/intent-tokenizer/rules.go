package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spicery/intent-tokenizer/pkg/tokenizer"
)

func (a *app) newMakeRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make-rules",
		Short: "Write the default rules as YAML",
		Long: `Make-rules writes the built-in rules in rules file form, as a starting
point for a custom rules file.`,
		Args: cobra.NoArgs,
		RunE: a.runMakeRules,
	}
	cmd.Flags().String("output", "", "output file (defaults to stdout)")
	return cmd
}

func (a *app) runMakeRules(cmd *cobra.Command, args []string) error {
	if err := a.bind(cmd, "output"); err != nil {
		return err
	}

	yamlBytes, err := yaml.Marshal(tokenizer.DefaultRulesFile())
	if err != nil {
		return fmt.Errorf("failed to marshal rules to YAML: %w", err)
	}

	w, closeOutput, err := a.openOutput(a.v.GetString("output"))
	if err != nil {
		return err
	}
	if _, err := w.Write(yamlBytes); err != nil {
		return errors.Join(fmt.Errorf("error writing rules: %w", err), closeOutput())
	}
	return closeOutput()
}

func (a *app) newCheckRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-rules file...",
		Short: "Check that rules files load and compile",
		Long: `Check-rules loads each rules file, applies it to the defaults and compiles
its patterns, reporting every file that fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runCheckRules,
	}
}

func (a *app) runCheckRules(cmd *cobra.Command, args []string) error {
	cache, err := tokenizer.NewPatternCache(0)
	if err != nil {
		return err
	}
	colorOn, err := useColor(a.v.GetString("color"), a.stdout)
	if err != nil {
		return err
	}
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed, color.Bold)
	for _, c := range []*color.Color{ok, bad} {
		if colorOn {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	failed := 0
	for _, path := range args {
		rules, err := a.loadRules(path, cache)
		if err != nil {
			failed++
			bad.Fprint(a.stdout, "FAIL")
			fmt.Fprintf(a.stdout, " %s: %v\n", path, describeRulesError(err))
			continue
		}
		ok.Fprint(a.stdout, "ok")
		fmt.Fprintf(a.stdout, "   %s: %d delimiters, %d patterns, engine %s\n",
			path, rules.Delimiters.Len(), len(rules.Patterns), rules.Engine)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rules files failed", failed, len(args))
	}
	return nil
}

// describeRulesError points at the offending pattern when there is one.
func describeRulesError(err error) string {
	var invalid *tokenizer.InvalidPatternError
	if errors.As(err, &invalid) {
		return fmt.Sprintf("pattern %q does not compile: %v", invalid.Name, invalid.Err)
	}
	var degenerate *tokenizer.DegeneratePatternError
	if errors.As(err, &degenerate) {
		return fmt.Sprintf("pattern %q matches the empty string", degenerate.Name)
	}
	return err.Error()
}
