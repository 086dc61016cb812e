// Package loggertest provides an in-memory data logger for tests.
//
// Port is a scripted byte stream with the read semantics of a serial port
// with a read timeout: Read returns 0, nil when nothing is queued. Logger
// sits behind a Port and answers commands the way the firmware does.
package loggertest

import (
	"errors"
	"sync"
)

// ErrClosed is returned by a closed Port.
var ErrClosed = errors.New("loggertest: port closed")

// Handler answers one command written to a Port. Each returned string is
// delivered as a separate batch, with a silent read after it.
type Handler func(cmd string) []string

// Port is a scripted serial port.
type Port struct {
	mu sync.Mutex

	segments [][]byte // nil entries are silent reads
	written  []string
	handler  Handler
	closed   bool
	resets   int

	// ReadErr, when set, is returned by the next Read.
	ReadErr error
	// WriteErr, when set, is returned by every Write.
	WriteErr error
}

// NewPort creates a port that passes every write to handler.
func NewPort(handler Handler) *Port {
	return &Port{handler: handler}
}

// Queue appends batches to the read side. Each batch is followed by a
// silent read.
func (p *Port) Queue(batches ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue(batches)
}

// QueueRaw appends segments without silence between them. An empty string
// queues a silent read.
func (p *Port) QueueRaw(segments ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range segments {
		if s == "" {
			p.segments = append(p.segments, nil)
			continue
		}
		p.segments = append(p.segments, []byte(s))
	}
}

func (p *Port) queue(batches []string) {
	for _, b := range batches {
		if b != "" {
			p.segments = append(p.segments, []byte(b))
		}
		p.segments = append(p.segments, nil)
	}
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if err := p.ReadErr; err != nil {
		p.ReadErr = nil
		return 0, err
	}
	if len(p.segments) == 0 {
		return 0, nil
	}
	seg := p.segments[0]
	if seg == nil {
		p.segments = p.segments[1:]
		return 0, nil
	}
	n := copy(b, seg)
	if n == len(seg) {
		p.segments = p.segments[1:]
	} else {
		p.segments[0] = seg[n:]
	}
	return n, nil
}

// Write implements io.Writer. The written bytes are recorded and handed to
// the handler as one command.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	cmd := string(b)
	p.written = append(p.written, cmd)
	if p.handler != nil {
		p.queue(p.handler(cmd))
	}
	return len(b), nil
}

// Close implements io.Closer.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ResetInputBuffer drops everything queued for reading.
func (p *Port) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.segments = nil
	p.resets++
	return nil
}

// Written returns every write so far, one entry per Write call.
func (p *Port) Written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Resets returns how many times the input buffer was reset.
func (p *Port) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

// Pending returns how many segments are still queued.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.segments)
}
