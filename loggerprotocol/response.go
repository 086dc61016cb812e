package loggerprotocol

import (
	"time"
)

// Reply is the body of a command's reply lines, in arrival order.
type Reply struct {
	Lines []string
}

// Line returns the body of a single-line reply.
func (r Reply) Line() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[0]
}

// IsEmpty reports whether the reply carried no lines.
func (r Reply) IsEmpty() bool {
	return len(r.Lines) == 0
}

// FileEntry is one line of the logger's directory listing.
type FileEntry struct {
	Name string
	// Size is nil for directories and other entries that cannot be
	// downloaded.
	Size *int64
}

// IsFile reports whether the entry is a downloadable file.
func (e FileEntry) IsFile() bool {
	return e.Size != nil
}

// NextEvent is the logger's schedule report.
type NextEvent struct {
	// Delay until the next scheduled events fire.
	Delay time.Duration
	// Events that will fire, in catalog order.
	Events []string
	// Enabled lists the events whose schedule is running.
	Enabled []string
}
