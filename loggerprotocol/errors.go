package loggerprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the logger protocol.
var (
	// ErrUnsupportedDevice indicates the version handshake failed. The
	// connection is unusable afterwards.
	ErrUnsupportedDevice = errors.New("unsupported device")

	// ErrDeviceFault indicates the logger answered with a fault line.
	ErrDeviceFault = errors.New("device fault")

	// ErrTimeout indicates the logger did not finish its reply within the
	// poll or time budget.
	ErrTimeout = errors.New("timed out waiting for logger")

	// ErrMalformedReply indicates a reply whose shape does not match the command.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrUnexpectedExtraLine indicates a reply line arrived after the reply
	// was already complete.
	ErrUnexpectedExtraLine = errors.New("unexpected extra line")

	// ErrDownloadInProgress indicates StartDownload was called while bytes of
	// a previous download are still outstanding.
	ErrDownloadInProgress = errors.New("download already in progress")

	// ErrNoDownload indicates a chunk or abort request with no transfer running.
	ErrNoDownload = errors.New("no download in progress")

	// ErrNotConnected indicates an operation was attempted without a connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates connect was called while already connected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrUnknownEvent indicates an event name missing from the event catalog.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrInvalidFileNumber indicates a log file number outside 0..MaxFileNumber.
	ErrInvalidFileNumber = errors.New("invalid file number")
)

// UnsupportedDeviceError reports a version reply that is not ours.
type UnsupportedDeviceError struct {
	Reply  string
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("%s: %s (version reply %q)", ErrUnsupportedDevice, e.Reason, e.Reply)
}

// Is reports whether target is ErrUnsupportedDevice.
func (e *UnsupportedDeviceError) Is(target error) bool {
	return target == ErrUnsupportedDevice
}

// DeviceFaultError carries the message of a fault line.
type DeviceFaultError struct {
	Message string
}

// Error implements the error interface.
func (e *DeviceFaultError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDeviceFault, e.Message)
}

// Is reports whether target is ErrDeviceFault.
func (e *DeviceFaultError) Is(target error) bool {
	return target == ErrDeviceFault
}

// ReplyErrorKind categorizes reply shape violations.
type ReplyErrorKind int

const (
	// ErrKindExtraLine indicates a reply line after the reply was complete.
	ErrKindExtraLine ReplyErrorKind = iota
	// ErrKindMissingReply indicates the prompt arrived before the reply finished.
	ErrKindMissingReply
	// ErrKindLineCount indicates a reply with the wrong number of lines.
	ErrKindLineCount
	// ErrKindBadNumber indicates a reply field that should be numeric.
	ErrKindBadNumber
	// ErrKindBadTerminator indicates a download not followed by a lone prompt.
	ErrKindBadTerminator
)

// ReplyError describes a reply that does not have the shape its command
// requires. Every ReplyError matches ErrMalformedReply; ErrKindExtraLine
// also matches ErrUnexpectedExtraLine.
type ReplyError struct {
	Kind    ReplyErrorKind
	Command string // Command text that produced the reply
	Value   string // Offending line or field
	Message string // Additional context
}

// Error implements the error interface.
func (e *ReplyError) Error() string {
	switch e.Kind {
	case ErrKindExtraLine:
		return fmt.Sprintf("%q: %s %q", e.Command, ErrUnexpectedExtraLine, e.Value)
	case ErrKindMissingReply:
		return fmt.Sprintf("%q: %s: prompt before reply complete", e.Command, ErrMalformedReply)
	case ErrKindLineCount:
		return fmt.Sprintf("%q: %s: %s", e.Command, ErrMalformedReply, e.Message)
	case ErrKindBadNumber:
		return fmt.Sprintf("%q: %s: invalid number %q", e.Command, ErrMalformedReply, e.Value)
	case ErrKindBadTerminator:
		return fmt.Sprintf("%q: %s: bad transfer terminator %q", e.Command, ErrMalformedReply, e.Value)
	default:
		return fmt.Sprintf("%q: %s: %s", e.Command, ErrMalformedReply, e.Value)
	}
}

// Is matches ErrMalformedReply for every kind, and ErrUnexpectedExtraLine
// for ErrKindExtraLine.
func (e *ReplyError) Is(target error) bool {
	switch target {
	case ErrMalformedReply:
		return true
	case ErrUnexpectedExtraLine:
		return e.Kind == ErrKindExtraLine
	}
	return false
}

func newExtraLineError(cmd, line string) error {
	return &ReplyError{Kind: ErrKindExtraLine, Command: cmd, Value: line}
}

func newMissingReplyError(cmd string) error {
	return &ReplyError{Kind: ErrKindMissingReply, Command: cmd}
}

func newLineCountError(cmd string, want string, got []string) error {
	return &ReplyError{
		Kind:    ErrKindLineCount,
		Command: cmd,
		Message: fmt.Sprintf("want %s line(s), got %d %q", want, len(got), got),
	}
}

func newBadNumberError(cmd, value string) error {
	return &ReplyError{Kind: ErrKindBadNumber, Command: cmd, Value: value}
}

func newBadTerminatorError(cmd string, lines []string) error {
	return &ReplyError{Kind: ErrKindBadTerminator, Command: cmd, Value: fmt.Sprint(lines)}
}

// ConnectionError represents a connection-related error.
type ConnectionError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("connection failed: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, cause error) error {
	return &ConnectionError{Message: message, Cause: cause}
}
