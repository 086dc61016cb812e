// =============================================================================
// lineeditor.go - Line Editing with History
// =============================================================================
//
// LineEditor reads REPL input. On a terminal it uses readline, which gives
// arrow-key editing and a persistent history in ~/.cowlog_history. When
// stdin is a pipe or file it falls back to a bufio.Scanner so scripts like
//
//	printf 'sync\nfetch\n' | cowlog
//
// work unchanged.
//
// =============================================================================

package main

// GO CONCEPT: The golang.org/x Packages
// -------------------------------------
// golang.org/x/term lives outside the standard library but is maintained by
// the Go team. The x/ repositories hold code that is too platform specific
// or too young for the compatibility promise of the standard library.
// term.IsTerminal answers "is this file descriptor a TTY?" on every OS Go
// supports, which is all we need to choose between readline and a scanner.
//
// Compare with Python: sys.stdin.isatty() is built in. Go keeps the core
// library small and puts helpers like this one a single import away.
import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	// historyFileName is the history file in the user's home directory.
	historyFileName = ".cowlog_history"

	// historySize is the number of history entries kept.
	historySize = 500
)

// GO CONCEPT: One Struct, Two Modes
// ----------------------------------
// LineEditor could have been an interface with a readline implementation
// and a scanner implementation. With only two modes and one caller, a
// single struct with a flag is simpler: the fields that do not apply to the
// current mode are left at their zero value (nil), and each method branches
// on the flag. If a third input source appears, that is the time to
// introduce an interface.
//
// Compare with Python: the same choice exists there, between a base class
// with subclasses and one class with an `if self._interactive:` check.

// LineEditor provides line input for the REPL.
type LineEditor struct {
	// interactive is true when readline is in use.
	interactive bool

	// rl is the readline instance. Nil when not interactive.
	rl *readline.Instance

	// scanner reads stdin when not interactive.
	scanner *bufio.Scanner

	// out receives the prompt when not interactive.
	out io.Writer
}

// NewLineEditor creates a line editor for stdin. Readline is used only when
// stdin is a terminal; if it cannot start, input falls back to plain
// line reading with a warning.
func NewLineEditor() *LineEditor {
	plain := &LineEditor{
		scanner: bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return plain
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            filepath.Join(homeDir(), historyFileName),
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
		Prompt:                 "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return plain
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
		out:         os.Stdout,
	}
}

// GetLine displays prompt and reads one line. It returns io.EOF at end of
// input or when the user presses Ctrl-C or Ctrl-D at the prompt.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	// GO CONCEPT: Sentinel Errors
	// ----------------------------
	// readline.ErrInterrupt is a package-level error value, a "sentinel".
	// errors.Is compares against it and also looks through errors that wrap
	// it with fmt.Errorf("...: %w", err), so it keeps working if readline
	// ever adds context to the error. Plain == would not.
	//
	// Ctrl-C at the prompt is reported as io.EOF, the same sentinel the
	// scanner path uses at end of input, so the REPL has one way to stop.
	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close releases the terminal. Safe to call more than once.
//
// GO CONCEPT: Idempotent Cleanup
// ------------------------------
// Close is usually called from a defer, and sometimes also from a signal
// handler. Setting le.rl to nil after closing it makes a second call a
// no-op. os.File.Close takes the other route and returns an error on the
// second call; for a method whose result nobody checks, doing nothing is
// friendlier.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}

// homeDir returns the user's home directory, or "." if it is unknown.
//
// GO CONCEPT: Scoped if Statements
// --------------------------------
// "if home, err := f(); err == nil { ... }" declares home and err for the
// if statement only. They do not leak into the rest of the function, which
// keeps short helpers like this free of stray variables.
//
// Compare with Python: the walrus operator, `if (home := f()) is not None:`,
// is similar, but the name stays visible after the if block.
func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
