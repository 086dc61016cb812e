// =============================================================================
// commands.go - Logger Commands
// =============================================================================
//
// One function per shell command. Each takes the parsed command, talks to
// the logger through the client and prints the result. Argument errors are
// caught here before anything is sent.
//
// =============================================================================

package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Coweeta/datalogger-tools/loggerprotocol"
)

// shellCommands maps command names to their implementations. quit, help
// and ports are handled by the shell itself.
var shellCommands = map[string]func(*shell, command) error{
	"status":  cmdStatus,
	"files":   cmdFiles,
	"active":  cmdActive,
	"newfile": cmdNewFile,
	"time":    cmdTime,
	"sync":    cmdSync,
	"events":  cmdEvents,
	"next":    cmdNext,
	"trigger": cmdTrigger,
	"enable":  cmdEnable,
	"fetch":   cmdFetch,
	"log":     cmdLog,
}

// noArgs rejects arguments to commands that take none.
func noArgs(cmd command) error {
	if len(cmd.args) > 0 {
		return fmt.Errorf("%s takes no arguments", cmd.name)
	}
	return nil
}

func cmdStatus(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	c := sh.client

	delta, err := c.TimeDelta(sh.ctx)
	if err != nil {
		return err
	}
	active, err := c.ActiveFileNumber(sh.ctx)
	if err != nil {
		return err
	}
	next, err := c.NextEvent(sh.ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(sh.out, sh.colors.title.Sprint("Logger status"))
	fmt.Fprintf(sh.out, "  Port:        %s\n", c.ConnectedPort())
	fmt.Fprintf(sh.out, "  Protocol:    %s\n", c.Version())
	fmt.Fprintf(sh.out, "  Clock:       %s\n", sh.deltaText(delta))
	fmt.Fprintf(sh.out, "  Active file: %s\n", loggerprotocol.ActiveFileName(active))
	fmt.Fprintf(sh.out, "  Next events: %s in %s\n", formatNames(next.Events), formatDelay(next.Delay))
	fmt.Fprintf(sh.out, "  Enabled:     %s\n", formatNames(next.Enabled))
	return nil
}

func cmdFiles(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	entries, err := sh.client.ListFiles(sh.ctx)
	if err != nil {
		return err
	}
	active, err := sh.client.ActiveFileNumber(sh.ctx)
	if err != nil {
		return err
	}
	writeFileList(sh.out, sh.colors, entries, loggerprotocol.ActiveFileName(active))
	return nil
}

func cmdActive(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	n, err := sh.client.ActiveFileNumber(sh.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Active file: %d (%s)\n", n, loggerprotocol.ActiveFileName(n))
	return nil
}

func cmdNewFile(sh *shell, cmd command) error {
	if len(cmd.args) != 1 {
		return fmt.Errorf("usage: newfile <n>")
	}
	n, err := strconv.Atoi(cmd.args[0])
	if err != nil || n < 0 || n > loggerprotocol.MaxFileNumber {
		return fmt.Errorf("invalid file number: %s (expected 0-%d)", cmd.args[0], loggerprotocol.MaxFileNumber)
	}
	if err := sh.client.SetActiveFile(sh.ctx, n); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Now logging to %s\n", loggerprotocol.ActiveFileName(n))
	return nil
}

// deltaText describes a clock error, flagging errors that need a sync.
func (sh *shell) deltaText(delta time.Duration) string {
	text := formatDelta(delta)
	if delta.Abs() > loggerprotocol.TimeSyncThreshold {
		return sh.colors.warn.Sprint(text)
	}
	return sh.colors.good.Sprint(text)
}

func cmdTime(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	delta, err := sh.client.TimeDelta(sh.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Logger clock: %s\n", sh.deltaText(delta))
	return nil
}

func cmdSync(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	corrected, delta, err := sh.client.SyncTime(sh.ctx)
	if err != nil {
		return err
	}
	if corrected {
		fmt.Fprintf(sh.out, "Logger clock was %s; corrected.\n", formatDelta(delta))
	} else {
		fmt.Fprintf(sh.out, "Logger clock is %s; no correction needed.\n", formatDelta(delta))
	}
	return nil
}

func cmdEvents(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	names := sh.client.EventNames()
	if len(names) == 0 {
		fmt.Fprintln(sh.out, "The logger has no events.")
		return nil
	}
	for i, name := range names {
		fmt.Fprintf(sh.out, "  %2d  %s\n", i, name)
	}
	return nil
}

func cmdNext(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	next, err := sh.client.NextEvent(sh.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Next events in %s: %s\n", formatDelay(next.Delay), formatNames(next.Events))
	fmt.Fprintf(sh.out, "Enabled schedules: %s\n", formatNames(next.Enabled))
	return nil
}

func cmdTrigger(sh *shell, cmd command) error {
	if len(cmd.args) == 0 {
		return fmt.Errorf("usage: trigger <event>...")
	}
	echo, err := sh.client.TriggerEvents(sh.ctx, cmd.args)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Triggered %s\n", formatNames(cmd.args))
	if echo != "" {
		fmt.Fprintf(sh.out, "  %s\n", sh.colors.dim.Sprint(echo))
	}
	return nil
}

func cmdEnable(sh *shell, cmd command) error {
	if len(cmd.args) == 0 {
		return fmt.Errorf("usage: enable <event>... | enable none")
	}
	names := cmd.args
	if len(names) == 1 && names[0] == "none" {
		names = nil
	}
	if err := sh.client.EnableEvents(sh.ctx, names); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Enabled schedules: %s\n", formatNames(names))
	return nil
}

func cmdLog(sh *shell, cmd command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}
	c := sh.client
	printed := false

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		printed = true
		fmt.Fprintln(sh.out, sh.colors.title.Sprint(title))
		for _, line := range lines {
			fmt.Fprintf(sh.out, "  %s\n", line)
		}
	}

	section("Log entries:", c.LogDump())
	errs := c.DeviceErrors()
	for i := range errs {
		errs[i] = sh.colors.warn.Sprint(errs[i])
	}
	section("Device errors:", errs)
	section("Messages:", c.Messages())

	other := c.UnrecognizedOutput()
	tags := make([]int, 0, len(other))
	for tag := range other {
		tags = append(tags, int(tag))
	}
	sort.Ints(tags)
	for _, tag := range tags {
		section(fmt.Sprintf("Unrecognized output (%q):", rune(tag)), other[byte(tag)])
	}

	if !printed {
		fmt.Fprintln(sh.out, "Nothing reported.")
	}
	return nil
}
