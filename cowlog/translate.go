// =============================================================================
// translate.go - Command Translation (User Input → Shell Command)
// =============================================================================
//
// Turns a line typed at the prompt into a command name and its arguments.
// Short forms resolve to one canonical name:
//
//	"ls"                → files
//	"get LOGGER01.CSV"  → fetch [LOGGER01.CSV]
//	"fetch -f a b"      → fetch [a b] (force)
//	"?"                 → help
//
// Command names are case-insensitive. Arguments are passed through as typed,
// since file and event names on the logger are case-sensitive.
//
// =============================================================================

package main

import (
	"strings"
)

// aliases maps alternative spellings to canonical command names.
var aliases = map[string]string{
	"ls":     "files",
	"dir":    "files",
	"list":   "files",
	"dl":     "fetch",
	"get":    "fetch",
	"q":      "quit",
	"exit":   "quit",
	"bye":    "quit",
	"?":      "help",
	"clock":  "time",
	"st":     "status",
	"new":    "newfile",
	"fire":   "trigger",
	"wait":   "next",
	"logs":   "log",
	"serial": "ports",
}

// command is a parsed shell command.
type command struct {
	name string
	args []string

	// force is set by --force or -f on fetch.
	force bool
}

// parseCommand splits line into a command. It returns the zero command for
// a blank line.
func parseCommand(line string) command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}
	}

	name := strings.ToLower(fields[0])
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	cmd := command{name: name}

	for _, arg := range fields[1:] {
		if name == "fetch" && (arg == "--force" || arg == "-f") {
			cmd.force = true
			continue
		}
		cmd.args = append(cmd.args, arg)
	}
	return cmd
}
