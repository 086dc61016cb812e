// =============================================================================
// translate_test.go - Tests for Command Translation (translate.go)
// =============================================================================

package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"", command{}},
		{"   ", command{}},
		{"files", command{name: "files"}},
		{"  FILES  ", command{name: "files"}},
		{"ls", command{name: "files"}},
		{"dir", command{name: "files"}},
		{".dir", command{name: ".dir"}},
		{"?", command{name: "help"}},
		{"help fetch", command{name: "help", args: []string{"fetch"}}},
		{"exit", command{name: "quit"}},
		{"clock", command{name: "time"}},
		{"newfile 12", command{name: "newfile", args: []string{"12"}}},
		{"trigger Sample Flush", command{name: "trigger", args: []string{"Sample", "Flush"}}},
		{"fetch", command{name: "fetch"}},
		{"fetch --force LOGGER00.CSV", command{name: "fetch", args: []string{"LOGGER00.CSV"}, force: true}},
		{"get LOGGER01.CSV -f LOGGER02.CSV", command{name: "fetch", args: []string{"LOGGER01.CSV", "LOGGER02.CSV"}, force: true}},
		{"trigger -f", command{name: "trigger", args: []string{"-f"}}},
		{"Unknown Thing", command{name: "unknown", args: []string{"Thing"}}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := parseCommand(tt.line)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(command{})); diff != "" {
				t.Errorf("parseCommand(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

// Every alias must lead somewhere the shell can run.
func TestAliasesResolve(t *testing.T) {
	local := map[string]bool{"quit": true, "help": true, "ports": true}
	for alias, name := range aliases {
		if _, ok := shellCommands[name]; !ok && !local[name] {
			t.Errorf("alias %q points at unknown command %q", alias, name)
		}
		if _, ok := commandHelp[name]; !ok {
			t.Errorf("alias %q points at %q, which has no help", alias, name)
		}
	}
}
