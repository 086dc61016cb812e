package loggerprotocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestProtocolConstants verifies constants match the firmware.
func TestProtocolConstants(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"FaultTag", string(FaultTag), "X"},
		{"LogTag", string(LogTag), "!"},
		{"ErrorTag", string(ErrorTag), "#"},
		{"MessageTag", string(MessageTag), " "},
		{"Prompt", Prompt, ">"},
		{"VersionMagic", VersionMagic, "COW"},
		{"SupportedVersion", SupportedVersion, "0.0"},
		{"FilenameTerminator", FilenameTerminator, "|"},
		{"CancelByte", string(CancelByte), " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}

	if TimeSyncThreshold.Seconds() != 2 {
		t.Errorf("TimeSyncThreshold = %v, want 2s", TimeSyncThreshold)
	}
}

func TestActiveFileName(t *testing.T) {
	tests := []struct {
		num  int
		want string
	}{
		{0, "LOGGER00.CSV"},
		{7, "LOGGER07.CSV"},
		{42, "LOGGER42.CSV"},
	}
	for _, tt := range tests {
		if got := ActiveFileName(tt.num); got != tt.want {
			t.Errorf("ActiveFileName(%d) = %q, want %q", tt.num, got, tt.want)
		}
	}
}

// TestCommandFormatting verifies command formatting matches the protocol.
func TestCommandFormatting(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
		mode     ReplyMode
	}{
		{"Version", NewVersionCommand(), "v", SingleLine},
		{"EventNames", NewEventNamesCommand(), "n", MultiLine},
		{"ListFiles", NewListFilesCommand(), "L", MultiLine},
		{"ActiveFile", NewActiveFileCommand(), "A", SingleLine},
		{"SetActiveFile", NewSetActiveFileCommand(12), "N12", MultiLine},
		{"GetTime", NewGetTimeCommand(), "t", SingleLine},
		{"SetTime", NewSetTimeCommand(1700000000), "s1700000000", MultiLine},
		{"Trigger", NewTriggerCommand(5), "e5", MultiLine},
		{"Trigger none", NewTriggerCommand(0), "e0", MultiLine},
		{"EnableEvents", NewEnableEventsCommand(65535), "E65535", MultiLine},
		{"NextEvent", NewNextEventCommand(), "w", MultiLine},
		{"BeginFile", NewBeginFileCommand("LOGGER04.CSV"), "GLOGGER04.CSV|", SingleLine},
		{"RemoveFile", NewRemoveFileCommand("LOGGER04.CSV"), "RLOGGER04.CSV|", MultiLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Format(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
			if tt.cmd.Mode != tt.mode {
				t.Errorf("mode = %v, want %v", tt.cmd.Mode, tt.mode)
			}
			if tt.cmd.Tag() != tt.expected[0] {
				t.Errorf("tag = %q, want %q", tt.cmd.Tag(), tt.expected[0])
			}
		})
	}
}

func TestParseFileEntry(t *testing.T) {
	size := func(n int64) *int64 { return &n }

	tests := []struct {
		name    string
		line    string
		want    FileEntry
		wantErr bool
	}{
		{"file", "LOGGER00.CSV\t1200", FileEntry{Name: "LOGGER00.CSV", Size: size(1200)}, false},
		{"empty file", "LOGGER01.CSV\t0", FileEntry{Name: "LOGGER01.CSV", Size: size(0)}, false},
		{"directory", "SYSTEM~1", FileEntry{Name: "SYSTEM~1"}, false},
		{"bad size", "LOGGER00.CSV\tbig", FileEntry{}, true},
		{"negative size", "LOGGER00.CSV\t-1", FileEntry{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileEntry(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedReply) {
					t.Fatalf("err = %v, want ErrMalformedReply", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("entry mismatch (-want +got):\n%s", diff)
			}
			if got.IsFile() != (tt.want.Size != nil) {
				t.Errorf("IsFile() = %v", got.IsFile())
			}
		})
	}
}

func TestCheckVersionReply(t *testing.T) {
	tests := []struct {
		reply string
		ok    bool
	}{
		{"COW0.0", true},
		{"COW1.0", false},
		{"COW0.0b", false},
		{"COW", false},
		{"CO", false},
		{"", false},
		{"MOO0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			err := CheckVersionReply(tt.reply)
			if tt.ok {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrUnsupportedDevice) {
				t.Errorf("err = %v, want ErrUnsupportedDevice", err)
			}
			var ude *UnsupportedDeviceError
			if !errors.As(err, &ude) || ude.Reply != tt.reply {
				t.Errorf("err = %#v, want UnsupportedDeviceError for %q", err, tt.reply)
			}
		})
	}
}

func TestEventCatalog(t *testing.T) {
	catalog := EventCatalog{"A", "B", "C"}

	mask, err := catalog.Mask([]string{"A", "C"})
	if err != nil {
		t.Fatalf("Mask: %v", err)
	}
	if mask != 5 {
		t.Errorf("Mask(A, C) = %d, want 5", mask)
	}
	if diff := cmp.Diff([]string{"A", "C"}, catalog.Decode(mask)); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}

	if got := catalog.Decode(0); len(got) != 0 {
		t.Errorf("Decode(0) = %v, want none", got)
	}
	if diff := cmp.Diff([]string{"B"}, catalog.Decode(0b1010)); diff != "" {
		t.Errorf("bits beyond the catalog should be ignored (-want +got):\n%s", diff)
	}

	if _, err := catalog.Mask([]string{"A", "Z"}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Mask with unknown name: err = %v, want ErrUnknownEvent", err)
	}
	if mask, err := catalog.Mask(nil); err != nil || mask != 0 {
		t.Errorf("Mask(nil) = %d, %v", mask, err)
	}
}

// TestErrorMatching verifies the sentinel relationships callers rely on.
func TestErrorMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"extra line is extra", newExtraLineError("v", "COW"), ErrUnexpectedExtraLine, true},
		{"extra line is malformed", newExtraLineError("v", "COW"), ErrMalformedReply, true},
		{"missing reply is malformed", newMissingReplyError("A"), ErrMalformedReply, true},
		{"missing reply is not extra", newMissingReplyError("A"), ErrUnexpectedExtraLine, false},
		{"line count is malformed", newLineCountError("w", "3", []string{"1"}), ErrMalformedReply, true},
		{"bad number is malformed", newBadNumberError("A", "x"), ErrMalformedReply, true},
		{"bad terminator is malformed", newBadTerminatorError("G", nil), ErrMalformedReply, true},
		{"fault", &DeviceFaultError{Message: "no card"}, ErrDeviceFault, true},
		{"fault is not timeout", &DeviceFaultError{Message: "no card"}, ErrTimeout, false},
		{"unsupported", &UnsupportedDeviceError{Reply: "x"}, ErrUnsupportedDevice, true},
		{"connection wraps cause", NewConnectionError("check", &UnsupportedDeviceError{}), ErrUnsupportedDevice, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.expected {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.expected)
			}
		})
	}
}

func TestDeviceFaultMessage(t *testing.T) {
	err := error(&DeviceFaultError{Message: "card missing"})
	if got, want := err.Error(), "device fault: card missing"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
