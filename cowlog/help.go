// =============================================================================
// help.go - Help System
// =============================================================================
//
// 'help' prints the command overview; 'help <command>' prints the detailed
// text for one command. Aliases resolve the same way they do at the prompt,
// so 'help ls' shows the help for 'files'.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"strings"
)

// printHelp prints the overview, or the detailed help for topic.
func printHelp(w io.Writer, topic string) error {
	if strings.TrimSpace(topic) == "" {
		printHelpOverview(w)
		return nil
	}

	key := parseCommand(topic).name
	if text, ok := commandHelp[key]; ok {
		fmt.Fprintln(w, text)
		return nil
	}
	return fmt.Errorf("no help for '%s'; type help to see available commands", strings.TrimSpace(topic))
}

// printHelpOverview prints every command on one line each.
func printHelpOverview(w io.Writer) {
	fmt.Fprint(w, `Logger Commands:
  status              Version, clock, active file and next event
  files               List the files on the card
  active              Show the file being logged to
  newfile <n>         Start logging to LOGGER<nn>.CSV
  time                Show how far the logger clock is off
  sync                Correct the logger clock if it is off
  events              List the logger's events
  next                Show when the next scheduled events fire
  trigger <event>...  Fire events now
  enable <event>...   Choose which event schedules run
  fetch [-f] [file]... Download files (all finished files if none named)
  log                 Show log entries and errors the logger reported

Local Commands:
  ports               List serial ports
  help [command]      Show help
  quit                Disconnect and exit

Type 'help <command>' for details.
`)
}

var commandHelp = map[string]string{
	"status": `  status
    Show the protocol version, the clock error, the active log file
    and the next scheduled events in one report.`,

	"files": `  files
    List the files on the logger's card with their sizes.
    Directories cannot be downloaded and are shown dimmed.
    The file the logger is writing to is marked (active).
    Aliases: ls, dir, list`,

	"active": `  active
    Show the number and name of the file the logger is writing to.`,

	"newfile": `  newfile <n>
    Close the current log file and start logging to LOGGER<nn>.CSV.
    n runs from 0 to 99.
    Example:
      newfile 12        Log to LOGGER12.CSV`,

	"time": `  time
    Compare the logger clock with this computer's clock and show the
    difference. Differences over a day are shown as TOO BIG.
    Alias: clock`,

	"sync": `  sync
    Set the logger clock from this computer's clock when they differ
    by more than two seconds.`,

	"events": `  events
    List the events the logger knows, in the order of its event mask.`,

	"next": `  next
    Show the delay until the next scheduled events, which events will
    fire and which schedules are enabled.`,

	"trigger": `  trigger <event>...
    Fire the named events immediately. The logger records them and
    echoes the log entry it wrote.
    Example:
      trigger sample`,

	"enable": `  enable <event>... | enable none
    Run the schedules of the named events and stop all others.
    'enable none' stops every schedule.`,

	"fetch": `  fetch [--force] [file]...
    Download files into the download directory. With no names, every
    file except the active one is fetched. The active file is skipped
    unless --force (or -f) is given, since the logger is still writing
    to it. Files are removed from the logger after a good transfer
    unless cowlog was started with --keep.
    Press Ctrl-C to cancel; the partial file is deleted.
    Aliases: get, dl`,

	"log": `  log
    Print the log entries, device errors and messages the logger sent
    between commands, then clear them.`,

	"ports": `  ports
    List the serial ports on this computer. USB ports show their
    vendor and product IDs. Works without a logger attached.`,

	"help": `  help [command]
    Show all commands, or the detailed help for one command.
    Alias: ?`,

	"quit": `  quit
    Disconnect from the logger and exit.
    Aliases: q, exit, bye`,
}
