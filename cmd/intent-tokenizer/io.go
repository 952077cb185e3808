package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readInput reads the whole of path, or stdin when path is empty or "-".
func (a *app) readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("error reading from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading file '%s': %w", path, err)
	}
	return string(data), nil
}

// openOutput returns a writer for path, or stdout when path is empty or "-".
// The returned close function must be called when writing is done.
func (a *app) openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.stdout, func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating output file '%s': %w", path, err)
	}
	closeFile := func() error {
		if err := file.Close(); err != nil {
			return fmt.Errorf("error closing output file '%s': %w", path, err)
		}
		return nil
	}
	return file, closeFile, nil
}

// splitLines breaks input into messages, one per line. A final newline does
// not start another message.
func splitLines(input string) []string {
	input = strings.TrimSuffix(input, "\n")
	if input == "" {
		return []string{}
	}
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// useColor decides whether pretty output to w is coloured.
func useColor(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(mode) {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "", "auto":
		f, ok := w.(*os.File)
		return ok && isTerminal(f), nil
	}
	return false, fmt.Errorf("unknown color mode '%s' (want auto|on|off)", mode)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
