// =============================================================================
// main.go - Entry Point for the cowlog Data Logger Tool
// =============================================================================
//
// cowlog manages a Coweeta data logger over its USB serial port. It can run
// one command and exit, or start an interactive REPL:
//
//	cowlog                         Find the logger and start the REPL
//	cowlog --port /dev/ttyUSB0     Use a specific serial port
//	cowlog files                   List the card and exit
//	cowlog fetch LOGGER03.CSV      Download one file and exit
//
// Startup order:
//  1. Parse command-line arguments
//  2. Load ~/.cowlog.yaml and let the arguments override it
//  3. Find the serial port and connect (checks the protocol version)
//  4. Run the one-shot command or the REPL
//
// =============================================================================

package main

// GO CONCEPT: Import Grouping
// ---------------------------
// Imports are grouped: standard library first, then a blank line, then
// module paths. gofmt sorts within each group but never merges them, so the
// blank line is how you tell a reader "these come from go.mod". Our own
// library is imported by its full module path even though it lives in the
// same repository; Go has no relative imports.
//
// Compare with Python: `from . import loggerprotocol` would work there.
// In Go every import path is absolute, rooted at the module path declared
// in go.mod.
import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Coweeta/datalogger-tools/loggerprotocol"
)

// GO CONCEPT: Untyped Constants
// ------------------------------
// A const like version = "0.3.0" has no fixed type until it is used. It can
// be passed wherever a string is expected, including to a parameter of a
// named string type, without a conversion. Constants must be known at
// compile time, so values such as the home directory are functions instead.
const (
	// version is the current version of cowlog.
	version = "0.3.0"

	// appName is the application name.
	appName = "cowlog"

	// copyright is the copyright notice.
	copyright = "Copyright (c) 2026 Coweeta Hydrologic Laboratory"
)

// fullTitle returns the application name with its version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

// welcomeBanner returns the text shown when the REPL starts.
func welcomeBanner() string {
	return fmt.Sprintf(`%s - Coweeta Data Logger Tool
%s

Type 'help' for available commands.
Type 'quit' to exit.
`, fullTitle(), copyright)
}

// =============================================================================
// Command-Line Arguments
// =============================================================================

// GO CONCEPT: Zero Values as "Not Set"
// -------------------------------------
// Every Go variable starts at its type's zero value: "" for strings, 0 for
// ints, false for bools. arguments relies on this. A field left at zero was
// not given on the command line, and fileConfig.apply only copies fields
// that are non-zero. No Optional type or nil pointers are needed.
//
// The catch is that a zero value can never be given explicitly. --baud 0
// would be indistinguishable from no --baud at all, which is why
// parseArguments rejects it.
//
// Compare with Python: argparse would use default=None and then check
// `if args.baud is not None`.

// arguments holds the parsed command-line flags. Zero values mean "not
// given", so the config file can fill them in.
type arguments struct {
	// port is the serial device. Empty means discover it.
	port string

	// baud overrides the serial speed.
	baud int

	// configPath is the YAML config file to read instead of ~/.cowlog.yaml.
	configPath string

	// dir is where downloaded files are written.
	dir string

	// keep leaves downloaded files on the logger's card.
	keep bool

	// debug enables protocol logging on stderr.
	debug bool

	// plain disables colour and the progress bar.
	plain bool

	showHelp    bool
	showVersion bool

	// command is a one-shot command to run instead of the REPL.
	command []string
}

// parseArguments parses argv (without the program name).
func parseArguments(argv []string) (arguments, error) {
	var args arguments
	remaining := argv

	// GO CONCEPT: Closures
	// ---------------------
	// value is a function literal that captures remaining by reference.
	// When it advances remaining, the loop below sees the change. This
	// keeps the "flag needs an argument" check in one place without
	// threading the slice through a helper's parameters and results.
	//
	// Compare with Python: a nested def would need `nonlocal remaining` to
	// rebind the outer variable. Go closures capture variables, not values,
	// so no declaration is needed.
	value := func(flag string) (string, error) {
		if len(remaining) == 0 {
			return "", fmt.Errorf("%s requires an argument", flag)
		}
		v := remaining[0]
		remaining = remaining[1:]
		return v, nil
	}

	for len(remaining) > 0 {
		arg := remaining[0]
		remaining = remaining[1:]

		var err error
		switch arg {
		case "--port", "-p":
			args.port, err = value(arg)

		case "--baud", "-b":
			var v string
			if v, err = value(arg); err == nil {
				args.baud, err = strconv.Atoi(v)
				if err != nil || args.baud <= 0 {
					err = fmt.Errorf("invalid baud rate: %s", v)
				}
			}

		case "--config", "-c":
			args.configPath, err = value(arg)

		case "--dir", "-d":
			args.dir, err = value(arg)

		case "--keep":
			args.keep = true

		case "--debug":
			args.debug = true

		case "--plain":
			args.plain = true

		case "--help", "-h":
			args.showHelp = true

		case "--version", "-v":
			args.showVersion = true

		case "--":
			args.command = append(args.command, remaining...)
			remaining = nil

		default:
			if strings.HasPrefix(arg, "-") {
				return args, fmt.Errorf("unknown argument: %s", arg)
			}
			// The first bare word starts the one-shot command; everything
			// after it belongs to the command.
			args.command = append([]string{arg}, remaining...)
			remaining = nil
		}
		if err != nil {
			return args, err
		}
	}

	return args, nil
}

// printUsage displays command-line usage.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `USAGE: cowlog [options] [command [args...]]

OPTIONS:
  --port, -p <dev>     Serial port of the logger (default: auto-detect)
  --baud, -b <n>       Serial speed (default: 230400)
  --config, -c <file>  Config file (default: ~/.cowlog.yaml)
  --dir, -d <dir>      Directory for downloaded files (default: .)
  --keep               Leave downloaded files on the logger
  --debug              Log protocol traffic to stderr
  --plain              No colour, no progress bar
  --help, -h           Show this help
  --version, -v        Show version

COMMANDS:
  status, files, active, newfile, time, sync, events, next,
  trigger, enable, fetch, log, ports, help
  Without a command, cowlog starts an interactive session.

EXAMPLES:
  cowlog                          Connect and start the REPL
  cowlog ports                    List serial ports
  cowlog -p /dev/ttyACM0 sync     Correct the logger clock
  cowlog -d data fetch            Download every finished log file
`)
}

// printVersion displays version information.
func printVersion() {
	fmt.Println(fullTitle())
}

// printError writes an error message to stderr.
func printError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

// newLogger returns the diagnostic logger. Only warnings are shown unless
// debug is set. Timestamps are dropped to keep the terminal readable.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// =============================================================================
// Connection
// =============================================================================

// connect finds the logger's port and connects to it.
func connect(ctx context.Context, cfg fileConfig, logger *slog.Logger) (*loggerprotocol.Client, error) {
	port := cfg.Port
	if port == "" {
		var err error
		if port, err = discoverPort(); err != nil {
			return nil, err
		}
		logger.Info("using discovered port", "port", port)
	}

	client := loggerprotocol.NewClient(cfg.clientOptions(logger)...)
	fmt.Printf("Connecting to %s...\n", port)
	if err := client.ConnectSerial(ctx, port, cfg.serialConfig()); err != nil {
		if errors.Is(err, loggerprotocol.ErrUnsupportedDevice) {
			return nil, fmt.Errorf("the device on %s is not a supported data logger: %w", port, err)
		}
		return nil, err
	}
	return client, nil
}

// GO CONCEPT: Signals, Channels and Goroutines
// ---------------------------------------------
// signal.Notify delivers signals as values on a channel instead of calling
// a handler function asynchronously. A goroutine ranges over the channel
// and handles each signal as ordinary Go code, with none of the
// restrictions a C signal handler has. The channel is buffered (size 1)
// because signal.Notify never blocks: with an unbuffered channel a signal
// arriving while the goroutine is busy would be dropped.
//
// Compare with Python: signal.signal(SIGINT, handler) runs the handler on
// the main thread between bytecodes. Here the handler runs concurrently, so
// it only touches the shell through sh.interrupt(), which uses atomics.

// setupSignalHandler installs the SIGINT/SIGTERM handler. An interrupt
// during a download only cancels the download; otherwise cleanup runs and
// the program exits.
func setupSignalHandler(sh *shell, cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGINT && sh.interrupt() {
				continue
			}
			fmt.Println()
			cleanup()
			os.Exit(130)
		}
	}()
}

// =============================================================================
// Main Entry Point
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:]))
}

// GO CONCEPT: os.Exit Skips Deferred Calls
// -----------------------------------------
// os.Exit ends the process immediately. Deferred functions do not run, so
// "defer client.Disconnect()" followed by os.Exit(1) would leave the serial
// port open. Keeping every defer inside run and calling os.Exit only from
// main, with run's result, lets cleanup happen on every path. It also makes
// run callable from tests, which must not exit the test binary.

// run is main without the exit, returning the process status.
func run(argv []string) int {
	args, err := parseArguments(argv)
	if err != nil {
		printError(err.Error())
		printUsage(os.Stderr)
		return 2
	}
	if args.showHelp {
		printUsage(os.Stdout)
		return 0
	}
	if args.showVersion {
		printVersion()
		return 0
	}

	cfg, err := loadConfig(args.configPath)
	if err != nil {
		printError(err.Error())
		return 1
	}
	cfg.apply(args)

	logger := newLogger(os.Stderr, args.debug)
	colors := newPalette(os.Stdout, cfg.Plain)

	// These work without a logger attached.
	if len(args.command) > 0 {
		switch strings.ToLower(args.command[0]) {
		case "ports":
			if err := printPorts(os.Stdout, colors); err != nil {
				printError(err.Error())
				return 1
			}
			return 0
		case "help":
			if err := printHelp(os.Stdout, strings.Join(args.command[1:], " ")); err != nil {
				printError(err.Error())
				return 1
			}
			return 0
		}
	}

	ctx := context.Background()
	client, err := connect(ctx, cfg, logger)
	if err != nil {
		printError(err.Error())
		return 1
	}

	sh := newShell(ctx, client, cfg, colors)
	sh.progress = !cfg.Plain && isTerminal(os.Stdout)

	cleanup := func() {
		client.Disconnect()
	}
	setupSignalHandler(sh, cleanup)
	defer cleanup()

	if len(args.command) > 0 {
		if _, err := sh.execute(strings.Join(args.command, " ")); err != nil {
			printError(err.Error())
			return 1
		}
		return 0
	}

	fmt.Print(welcomeBanner())
	fmt.Printf("Connected to logger on %s (protocol %s)\n\n", client.ConnectedPort(), client.Version())

	editor := NewLineEditor()
	defer editor.Close()
	runREPL(sh, editor)
	return 0
}
