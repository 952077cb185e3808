// Command intent-tokenizer splits chat messages into tokens for intent
// recognition.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spicery/intent-tokenizer/internal/logging"
	"github.com/spicery/intent-tokenizer/pkg/tokenizer"
)

const envPrefix = "INTENT_TOKENIZER"

func main() {
	if err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand shares.
type app struct {
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.DiscardHandler),
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "intent-tokenizer",
		Short: "Tokenize chat messages for intent recognition",
		Long: `intent-tokenizer splits messages into tokens. Text matching one of the
configured patterns (dates, times, e-mail addresses, URLs, numbers) becomes a
single token; everything else is split on delimiter characters.

Settings can also be given as environment variables, e.g.
INTENT_TOKENIZER_RULES=rules.yaml or INTENT_TOKENIZER_LOG_LEVEL=debug.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := logging.ParseLevel(a.v.GetString("log-level")); err != nil {
				return err
			}
			a.logger = logging.NewLogger(logging.Config{
				Level:  a.v.GetString("log-level"),
				Format: a.v.GetString("log-format"),
				Output: a.stderr,
			})
			cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))
			return nil
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.String("rules", "", "YAML or TOML rules file (defaults to the built-in rules)")
	flags.String("log-level", "warn", "log level (debug|info|warn|error); debug traces every tokenization")
	flags.String("log-format", "text", "log format (text|json)")
	flags.String("color", "auto", "colour pretty output (auto|on|off)")
	for _, name := range []string{"rules", "log-level", "log-format", "color"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		a.newTokenizeCommand(),
		a.newSplitCommand(),
		a.newMakeRulesCommand(),
		a.newCheckRulesCommand(),
		a.newServeCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// bind connects the named local flags of cmd to viper. Several commands
// share flag names, so binding happens when the command runs.
func (a *app) bind(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := a.v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// loadTokenizer builds a tokenizer from the --rules file, or the defaults.
// The cache may be nil.
func (a *app) loadTokenizer(cache *tokenizer.PatternCache) (*tokenizer.Tokenizer, error) {
	rules, err := a.loadRules(a.v.GetString("rules"), cache)
	if err != nil {
		return nil, err
	}
	return tokenizer.NewTokenizerWithRules(rules, tokenizer.WithTraceLogger(a.logger)), nil
}

func (a *app) loadRules(path string, cache *tokenizer.PatternCache) (*tokenizer.TokenizerRules, error) {
	if path == "" {
		return tokenizer.ApplyRulesToDefaultsWithCache(nil, cache)
	}
	rulesFile, err := tokenizer.LoadRulesFile(path)
	if err != nil {
		return nil, err
	}
	rules, err := tokenizer.ApplyRulesToDefaultsWithCache(rulesFile, cache)
	if err != nil {
		return nil, fmt.Errorf("applying rules from '%s': %w", path, err)
	}
	a.logger.Debug("rules loaded", "file", path, "patterns", len(rules.Patterns), "engine", rules.Engine)
	return rules, nil
}
