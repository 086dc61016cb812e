package loggerprotocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// DownloadState is the state of the Downloader.
type DownloadState int

const (
	// DownloadIdle means no transfer has been started.
	DownloadIdle DownloadState = iota
	// DownloadNegotiating means the begin command is out and the size line
	// is awaited.
	DownloadNegotiating
	// DownloadTransferring means raw file bytes are outstanding.
	DownloadTransferring
	// DownloadCompleted means every byte arrived.
	DownloadCompleted
	// DownloadAborted means the transfer was cancelled.
	DownloadAborted
)

// String returns the state name.
func (s DownloadState) String() string {
	switch s {
	case DownloadIdle:
		return "idle"
	case DownloadNegotiating:
		return "negotiating"
	case DownloadTransferring:
		return "transferring"
	case DownloadCompleted:
		return "completed"
	case DownloadAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Downloader runs the chunked file transfer on top of a Session. It is
// driven by the caller: Start once, then ConsumeChunk until remaining is
// zero, or Abort. One call never drains the whole file.
type Downloader struct {
	session *Session
	config  Config
	log     *slog.Logger

	state     DownloadState
	filename  string
	size      int64
	remaining int64
	sink      io.WriteCloser
	idlePolls int
}

// NewDownloader creates a downloader over session.
func NewDownloader(session *Session, cfg Config) *Downloader {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	return &Downloader{
		session: session,
		config:  cfg,
		log:     cfg.Logger,
	}
}

// State returns the current state.
func (d *Downloader) State() DownloadState {
	return d.state
}

// Filename returns the file of the current or last transfer.
func (d *Downloader) Filename() string {
	return d.filename
}

// Size returns the size the logger declared for the current or last transfer.
func (d *Downloader) Size() int64 {
	return d.size
}

// Remaining returns the bytes still outstanding.
func (d *Downloader) Remaining() int64 {
	return d.remaining
}

// Start asks the logger for filename and prepares to receive it. It fails
// with ErrDownloadInProgress while bytes of another transfer are
// outstanding; that transfer is left untouched.
func (d *Downloader) Start(ctx context.Context, filename string) error {
	if d.remaining != 0 || d.state == DownloadTransferring || d.state == DownloadNegotiating {
		return fmt.Errorf("%w: %s has %d bytes outstanding", ErrDownloadInProgress, d.filename, d.remaining)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	prev := d.state
	d.state = DownloadNegotiating
	d.filename = filename
	d.size = 0
	d.idlePolls = 0

	if err := d.session.Flush(); err != nil {
		d.state = prev
		return err
	}
	cmd := NewBeginFileCommand(filename)
	d.log.Debug("send", "command", cmd.Format())
	if err := d.session.Send(cmd); err != nil {
		d.state = prev
		return err
	}

	size, err := d.readSize(ctx, cmd)
	if err != nil {
		// Unless it refused outright, the logger may be streaming already.
		if !errors.Is(err, ErrDeviceFault) {
			d.cancelTransfer()
		}
		d.state = DownloadAborted
		return fmt.Errorf("start download %s: %w", filename, err)
	}

	sink, err := d.config.sink()(filename)
	if err != nil {
		d.cancelTransfer()
		d.state = DownloadAborted
		return fmt.Errorf("open sink for %s: %w", filename, err)
	}

	d.sink = sink
	d.size = size
	d.remaining = size
	d.state = DownloadTransferring
	d.log.Debug("download started", "file", filename, "size", size)

	if size == 0 {
		return d.finish(ctx)
	}
	return nil
}

// readSize reads the raw decimal size line that precedes the file bytes.
func (d *Downloader) readSize(ctx context.Context, cmd Command) (int64, error) {
	for poll := 0; poll < d.config.MaxPolls; poll++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		line, err := d.session.Transport().ReadLine()
		if err != nil {
			return 0, NewConnectionError("read size", err)
		}
		if line == "" {
			continue
		}
		switch {
		case line[0] == FaultTag:
			return 0, &DeviceFaultError{Message: line[1:]}
		case IsUnsolicited(line):
			d.session.Demux().Classify(line, 0)
			continue
		}
		size, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil || size < 0 {
			return 0, newBadNumberError(cmd.Format(), line)
		}
		return size, nil
	}
	return 0, fmt.Errorf("%w: no size line after %d polls", ErrTimeout, d.config.MaxPolls)
}

// ConsumeChunk reads the next piece of the file into the sink and returns
// the bytes still outstanding and the bytes received by this call. A short
// or empty read is normal. If the read or the write fails, remaining is
// unchanged.
func (d *Downloader) ConsumeChunk(ctx context.Context) (int64, int, error) {
	if d.state != DownloadTransferring {
		return d.remaining, 0, ErrNoDownload
	}
	if err := ctx.Err(); err != nil {
		return d.remaining, 0, err
	}

	want := int(min(int64(d.config.ChunkSize), d.remaining))
	data, err := d.session.Transport().ReadRaw(want)
	if err != nil {
		return d.remaining, 0, NewConnectionError("read chunk", err)
	}
	if len(data) == 0 {
		d.idlePolls++
		if d.idlePolls >= d.config.MaxPolls {
			d.idlePolls = 0
			return d.remaining, 0, fmt.Errorf("%w: %s stalled with %d bytes outstanding", ErrTimeout, d.filename, d.remaining)
		}
		return d.remaining, 0, nil
	}
	d.idlePolls = 0

	if _, err := d.sink.Write(data); err != nil {
		return d.remaining, 0, fmt.Errorf("write %s: %w", d.filename, err)
	}
	d.remaining -= int64(len(data))

	if d.remaining == 0 {
		return 0, len(data), d.finish(ctx)
	}
	return d.remaining, len(data), nil
}

// finish closes the sink, checks the terminating prompt and removes the
// file from the logger if configured. The state is Completed whatever
// the outcome.
func (d *Downloader) finish(ctx context.Context) error {
	d.state = DownloadCompleted
	var errs []error
	if err := d.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", d.filename, err))
	}
	d.sink = nil

	term, err := d.readTerminator()
	if err != nil {
		return errors.Join(append(errs, NewConnectionError("read terminator", err))...)
	}
	if len(term) == 0 || !strings.HasPrefix(term[0], Prompt) {
		d.log.Warn("bad transfer terminator", "file", d.filename, "lines", term)
		errs = append(errs, newBadTerminatorError(NewBeginFileCommand(d.filename).Format(), term))
		return errors.Join(errs...)
	}
	// The prompt is unterminated, so output sent after it shares its line.
	d.session.route(append([]string{term[0][len(Prompt):]}, term[1:]...))

	d.log.Info("download complete", "file", d.filename, "bytes", d.size)
	if d.config.DeleteAfterDownload {
		if _, err := d.session.SendAndAwait(ctx, NewRemoveFileCommand(d.filename)); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", d.filename, err))
		}
	}
	return errors.Join(errs...)
}

// readTerminator waits for the batch that follows the file bytes.
func (d *Downloader) readTerminator() ([]string, error) {
	for poll := 0; poll < d.config.MaxPolls; poll++ {
		lines, err := d.session.Transport().ReadLines()
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			return lines, nil
		}
	}
	return nil, nil
}

// Abort cancels the transfer in progress. The partial file is closed and
// left in place; removing it is up to the caller.
func (d *Downloader) Abort(ctx context.Context) error {
	if d.state != DownloadTransferring {
		return ErrNoDownload
	}
	var errs []error
	if err := d.cancelTransfer(); err != nil {
		errs = append(errs, err)
	}
	if err := d.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", d.filename, err))
	}
	d.sink = nil
	d.log.Info("download aborted", "file", d.filename, "remaining", d.remaining)
	d.remaining = 0
	d.state = DownloadAborted
	return errors.Join(errs...)
}

// cancelTransfer sends the cancel byte and drops whatever the logger had
// already sent.
func (d *Downloader) cancelTransfer() error {
	t := d.session.Transport()
	if _, err := t.Write([]byte{CancelByte}); err != nil {
		return NewConnectionError("send cancel", err)
	}
	n, err := t.Discard()
	if err != nil {
		return NewConnectionError("discard transfer", err)
	}
	d.log.Debug("discarded transfer bytes", "count", n)
	return nil
}
