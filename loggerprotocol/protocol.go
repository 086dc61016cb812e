package loggerprotocol

import (
	"fmt"
	"time"
)

// Line tags. The first byte of every line the logger sends is its tag.
const (
	// FaultTag marks a line reporting a failed command; the body is the message.
	FaultTag byte = 'X'

	// LogTag marks an unsolicited log entry.
	LogTag byte = '!'

	// ErrorTag marks an unsolicited device error report.
	ErrorTag byte = '#'

	// MessageTag marks unsolicited plain text.
	MessageTag byte = ' '

	// Prompt ends every reply batch. The logger does not terminate it.
	Prompt = ">"
)

// Command letters.
const (
	CmdVersion      byte = 'v'
	CmdEventNames   byte = 'n'
	CmdListFiles    byte = 'L'
	CmdActiveFile   byte = 'A'
	CmdNewFile      byte = 'N'
	CmdGetTime      byte = 't'
	CmdSetTime      byte = 's'
	CmdTrigger      byte = 'e'
	CmdEnableEvents byte = 'E'
	CmdNextEvent    byte = 'w'
	CmdBeginFile    byte = 'G'
	CmdRemoveFile   byte = 'R'
)

const (
	// VersionMagic is the fixed prefix of the version reply.
	VersionMagic = "COW"

	// SupportedVersion is the only protocol revision this package speaks.
	SupportedVersion = "0.0"

	// FilenameTerminator ends the file name argument of the begin and remove
	// commands. Protocol 0.0 uses the pipe-terminated form and an unprefixed
	// decimal size line; the unterminated variant is not supported.
	FilenameTerminator = "|"

	// CancelByte aborts a file transfer in progress.
	CancelByte byte = ' '

	// TimeSyncThreshold is the clock error above which SyncTime corrects
	// the logger.
	TimeSyncThreshold = 2 * time.Second

	// MaxEvents is the number of bits in the logger's event masks.
	MaxEvents = 16

	// ActiveFilePattern formats a log file number into the logger's file name.
	ActiveFilePattern = "LOGGER%02d.CSV"

	// MaxFileNumber is the highest log file number the logger accepts.
	MaxFileNumber = 99
)

// Defaults.
const (
	// DefaultBaudRate is the logger's serial speed.
	DefaultBaudRate = 230400

	// DefaultReadTimeout bounds a single serial read.
	DefaultReadTimeout = 200 * time.Millisecond

	// DefaultMaxPolls caps how many transport reads a command may wait for
	// its prompt.
	DefaultMaxPolls = 50

	// DefaultCommandTimeout is the overall budget for one command.
	DefaultCommandTimeout = 30 * time.Second

	// DefaultChunkSize is the largest raw read made per ConsumeChunk call.
	DefaultChunkSize = 5000

	// maxReadsPerBatch bounds ReadLines against a logger that never pauses.
	maxReadsPerBatch = 1024
)

// ActiveFileName returns the name of the log file with the given number.
func ActiveFileName(num int) string {
	return fmt.Sprintf(ActiveFilePattern, num)
}
