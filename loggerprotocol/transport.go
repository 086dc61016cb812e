package loggerprotocol

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the byte stream to the logger. Read must return 0, nil once its
// read timeout elapses with nothing received; that silence is how the
// transport finds the end of a batch. Ports opened by go.bug.st/serial
// behave this way.
type Port interface {
	io.ReadWriteCloser
}

// inputResetter is implemented by ports that can drop their OS input buffer.
type inputResetter interface {
	ResetInputBuffer() error
}

// Transport is the line and raw-byte view of a Port used by the session and
// the downloader. No method blocks longer than a bounded number of port
// read timeouts.
type Transport interface {
	// ReadLines returns every complete line available now, without
	// terminators. A prompt left unterminated when the logger falls silent
	// is returned as a last line; any other partial line stays buffered
	// until its terminator arrives. Lines are never empty.
	ReadLines() ([]string, error)

	// ReadLine returns one complete line, or "" if the logger fell silent
	// first.
	ReadLine() (string, error)

	// ReadRaw returns at most n bytes. Fewer bytes mean the logger paused.
	ReadRaw(n int) ([]byte, error)

	// Discard drops everything received so far and returns the byte count.
	Discard() (int, error)

	Write(p []byte) (int, error)
	Close() error
}

var prompt = []byte(Prompt)

// LineTransport implements Transport over a Port.
type LineTransport struct {
	port    Port
	pending []byte
	buf     []byte
}

// NewLineTransport wraps port.
func NewLineTransport(port Port) *LineTransport {
	return &LineTransport{
		port: port,
		buf:  make([]byte, 4096),
	}
}

// fill performs one port read and appends the result to pending.
func (t *LineTransport) fill() (int, error) {
	n, err := t.port.Read(t.buf)
	if n > 0 {
		t.pending = append(t.pending, t.buf[:n]...)
	}
	if err == io.EOF && n == 0 {
		// Some ports report a timeout as EOF.
		return 0, nil
	}
	return n, err
}

// ReadLines implements Transport.
func (t *LineTransport) ReadLines() ([]string, error) {
	for i := 0; i < maxReadsPerBatch; i++ {
		n, err := t.fill()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			lines := t.takeLines()
			if bytes.HasPrefix(t.pending, prompt) {
				lines = append(lines, Prompt)
				t.pending = t.pending[len(prompt):]
			}
			return lines, nil
		}
	}
	// Never went quiet: hand over what is complete and keep the rest.
	return t.takeLines(), nil
}

// takeLines removes and returns the complete lines at the front of pending.
func (t *LineTransport) takeLines() []string {
	var lines []string
	for {
		i := bytes.IndexByte(t.pending, '\n')
		if i < 0 {
			break
		}
		lines = appendLine(lines, t.pending[:i])
		t.pending = t.pending[i+1:]
	}
	return lines
}

func appendLine(lines []string, raw []byte) []string {
	raw = bytes.TrimRight(raw, "\r")
	if len(raw) == 0 {
		return lines
	}
	return append(lines, string(raw))
}

// ReadLine implements Transport.
func (t *LineTransport) ReadLine() (string, error) {
	for i := 0; i < maxReadsPerBatch; i++ {
		if j := bytes.IndexByte(t.pending, '\n'); j >= 0 {
			line := string(bytes.TrimRight(t.pending[:j], "\r"))
			t.pending = t.pending[j+1:]
			return line, nil
		}
		n, err := t.fill()
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", nil
		}
	}
	return "", fmt.Errorf("%w: no line terminator after %d reads", ErrTimeout, maxReadsPerBatch)
}

// ReadRaw implements Transport.
func (t *LineTransport) ReadRaw(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	if len(t.pending) > 0 {
		k := min(n, len(t.pending))
		out = append(out, t.pending[:k]...)
		t.pending = t.pending[k:]
	}
	for len(out) < n {
		m, err := t.port.Read(out[len(out):n])
		if m > 0 {
			out = out[:len(out)+m]
		}
		if err == io.EOF && m == 0 {
			break
		}
		if err != nil {
			return out, err
		}
		if m == 0 {
			break
		}
	}
	return out, nil
}

// Discard implements Transport.
func (t *LineTransport) Discard() (int, error) {
	dropped := len(t.pending)
	t.pending = t.pending[:0]
	if r, ok := t.port.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return dropped, err
		}
	}
	for i := 0; i < maxReadsPerBatch; i++ {
		n, err := t.port.Read(t.buf)
		dropped += n
		if err != nil && err != io.EOF {
			return dropped, err
		}
		if n == 0 {
			break
		}
	}
	return dropped, nil
}

// Write implements Transport.
func (t *LineTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

// Close implements Transport.
func (t *LineTransport) Close() error {
	return t.port.Close()
}

// SerialConfig holds serial line settings for OpenSerial.
type SerialConfig struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// OpenSerial opens the named serial device at 8N1 and wraps it in a
// LineTransport.
func OpenSerial(name string, cfg SerialConfig) (*LineTransport, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, NewConnectionError(fmt.Sprintf("open %s", name), err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, NewConnectionError(fmt.Sprintf("set read timeout on %s", name), err)
	}
	return NewLineTransport(port), nil
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
