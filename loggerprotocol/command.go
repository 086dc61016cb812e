package loggerprotocol

import (
	"strconv"
)

// ReplyMode tells the session how a command's reply is shaped.
type ReplyMode int

const (
	// SingleLine replies carry exactly one tagged line.
	SingleLine ReplyMode = iota
	// MultiLine replies carry any number of tagged lines followed by an
	// empty-body line of the same tag.
	MultiLine
)

// String returns the mode name.
func (m ReplyMode) String() string {
	switch m {
	case SingleLine:
		return "single-line"
	case MultiLine:
		return "multi-line"
	default:
		return "unknown"
	}
}

// Command is one request to the logger. Its reply lines are tagged with the
// command letter. Use the constructor functions to build commands.
type Command struct {
	Letter byte
	Arg    string
	Mode   ReplyMode
}

// Tag returns the tag of the reply lines this command produces.
func (c Command) Tag() byte {
	return c.Letter
}

// Format returns the command as sent on the wire.
func (c Command) Format() string {
	return string(c.Letter) + c.Arg
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return c.Format()
}

// NewVersionCommand creates the protocol version query.
func NewVersionCommand() Command {
	return Command{Letter: CmdVersion, Mode: SingleLine}
}

// NewEventNamesCommand creates the event catalog query.
func NewEventNamesCommand() Command {
	return Command{Letter: CmdEventNames, Mode: MultiLine}
}

// NewListFilesCommand creates the root directory listing command.
func NewListFilesCommand() Command {
	return Command{Letter: CmdListFiles, Mode: MultiLine}
}

// NewActiveFileCommand creates the active log file number query.
func NewActiveFileCommand() Command {
	return Command{Letter: CmdActiveFile, Mode: SingleLine}
}

// NewSetActiveFileCommand switches logging to the file with the given number.
func NewSetActiveFileCommand(num int) Command {
	return Command{Letter: CmdNewFile, Arg: strconv.Itoa(num), Mode: MultiLine}
}

// NewGetTimeCommand creates the logger clock query.
func NewGetTimeCommand() Command {
	return Command{Letter: CmdGetTime, Mode: SingleLine}
}

// NewSetTimeCommand sets the logger clock to the given Unix time.
func NewSetTimeCommand(epoch int64) Command {
	return Command{Letter: CmdSetTime, Arg: strconv.FormatInt(epoch, 10), Mode: MultiLine}
}

// NewTriggerCommand triggers the events in mask immediately.
func NewTriggerCommand(mask uint32) Command {
	return Command{Letter: CmdTrigger, Arg: strconv.FormatUint(uint64(mask), 10), Mode: MultiLine}
}

// NewEnableEventsCommand replaces the logger's enabled event mask.
func NewEnableEventsCommand(mask uint32) Command {
	return Command{Letter: CmdEnableEvents, Arg: strconv.FormatUint(uint64(mask), 10), Mode: MultiLine}
}

// NewNextEventCommand queries the next scheduled event.
func NewNextEventCommand() Command {
	return Command{Letter: CmdNextEvent, Mode: MultiLine}
}

// NewBeginFileCommand starts a raw transfer of the named file. Its reply is
// not line framed; see Downloader.
func NewBeginFileCommand(filename string) Command {
	return Command{Letter: CmdBeginFile, Arg: filename + FilenameTerminator}
}

// NewRemoveFileCommand deletes the named file from the logger's card.
func NewRemoveFileCommand(filename string) Command {
	return Command{Letter: CmdRemoveFile, Arg: filename + FilenameTerminator, Mode: MultiLine}
}
