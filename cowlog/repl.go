// =============================================================================
// repl.go - Interactive Shell
// =============================================================================
//
// The shell runs one command at a time against the connected logger. It is
// used by both the REPL and one-shot mode:
//
//	cowlog> files
//	  LOGGER00.CSV      1.2 KB  (active)
//	  SYSTEM~1      <dir>
//	cowlog> sync
//	Logger clock was 14s behind; corrected.
//
// Command errors are printed and the REPL keeps going. A lost connection
// ends the REPL, since every later command would fail the same way.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/term"

	"github.com/Coweeta/datalogger-tools/loggerprotocol"
)

// replPrompt is shown before each command.
const replPrompt = "cowlog> "

// defaultWidth is the terminal width assumed when it cannot be measured.
const defaultWidth = 80

// shell executes commands against one logger connection.
type shell struct {
	ctx    context.Context
	client *loggerprotocol.Client
	out    io.Writer
	errOut io.Writer
	colors palette

	// dir is where fetched files are written.
	dir string

	// progress enables the redrawn progress bar during fetch.
	progress bool

	// width returns the terminal width for the progress bar.
	width func() int

	// fetching is set while a download is running; interrupted is set by
	// Ctrl-C during that time.
	fetching    atomic.Bool
	interrupted atomic.Bool
}

// newShell returns a shell writing to stdout and stderr.
func newShell(ctx context.Context, client *loggerprotocol.Client, cfg fileConfig, colors palette) *shell {
	return &shell{
		ctx:    ctx,
		client: client,
		out:    os.Stdout,
		errOut: os.Stderr,
		colors: colors,
		dir:    cfg.Dir,
		width:  terminalWidth,
	}
}

// terminalWidth returns the width of stdout, or defaultWidth.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// interrupt asks a running fetch to stop. It reports whether one was
// running; if not, the caller should exit.
func (sh *shell) interrupt() bool {
	if !sh.fetching.Load() {
		return false
	}
	sh.interrupted.Store(true)
	return true
}

// execute runs one command line. quit is true when the user asked to leave.
func (sh *shell) execute(line string) (quit bool, err error) {
	cmd := parseCommand(line)

	switch cmd.name {
	case "":
		return false, nil
	case "quit":
		return true, nil
	case "help":
		return false, printHelp(sh.out, strings.Join(cmd.args, " "))
	case "ports":
		return false, printPorts(sh.out, sh.colors)
	}

	run, ok := shellCommands[cmd.name]
	if !ok {
		return false, fmt.Errorf("unknown command '%s'; type help to see available commands", cmd.name)
	}
	return false, run(sh, cmd)
}

// reportPending mentions output the logger sent between commands, so the
// user knows to look at it with 'log'.
func (sh *shell) reportPending() {
	sizes := sh.client.ChannelSizes()
	if sizes == nil {
		return
	}
	var parts []string
	if n := sizes[loggerprotocol.ChannelError]; n > 0 {
		parts = append(parts, plural(n, "device error"))
	}
	if n := sizes[loggerprotocol.ChannelLog]; n > 0 {
		parts = append(parts, plural(n, "log entry", "log entries"))
	}
	if n := sizes[loggerprotocol.ChannelMessage]; n > 0 {
		parts = append(parts, plural(n, "message"))
	}
	if len(parts) > 0 {
		fmt.Fprintln(sh.out, sh.colors.warn.Sprintf("(%s waiting; type 'log' to see)", strings.Join(parts, ", ")))
	}
}

// plural formats n with the singular or plural noun. The plural defaults
// to singular + "s".
func plural(n int, forms ...string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, forms[0])
	}
	if len(forms) > 1 {
		return fmt.Sprintf("%d %s", n, forms[1])
	}
	return fmt.Sprintf("%d %ss", n, forms[0])
}

// connectionLost reports whether err means the logger is gone.
func connectionLost(err error) bool {
	var connErr *loggerprotocol.ConnectionError
	return errors.Is(err, loggerprotocol.ErrNotConnected) || errors.As(err, &connErr)
}

// lineReader is the part of LineEditor the REPL uses.
type lineReader interface {
	GetLine(prompt string) (string, error)
}

// runREPL reads and executes commands until quit, end of input or a lost
// connection.
func runREPL(sh *shell, input lineReader) {
	for {
		line, err := input.GetLine(replPrompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(sh.errOut, "Error: %v\n", err)
			}
			fmt.Fprintln(sh.out)
			return
		}

		quit, err := sh.execute(line)
		if quit {
			return
		}
		if err != nil {
			fmt.Fprintf(sh.errOut, "Error: %v\n", err)
			if connectionLost(err) {
				fmt.Fprintln(sh.errOut, "Connection to the logger lost.")
				return
			}
		}
		sh.reportPending()
	}
}
