package loggerprotocol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Session sends commands and collects their replies. It owns the
// Demultiplexer, which keeps unsolicited output between calls.
//
// A Session is not safe for concurrent use. Exactly one command may be
// outstanding; hosts that share a logger must route every call through a
// single owner.
type Session struct {
	transport Transport
	demux     *Demultiplexer
	config    Config
	log       *slog.Logger
}

// NewSession creates a session over transport.
func NewSession(transport Transport, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	return &Session{
		transport: transport,
		demux:     NewDemultiplexer(),
		config:    cfg,
		log:       cfg.Logger,
	}
}

// Demux returns the session's demultiplexer.
func (s *Session) Demux() *Demultiplexer {
	return s.demux
}

// Transport returns the underlying transport.
func (s *Session) Transport() Transport {
	return s.transport
}

// Flush consumes output left on the transport so it cannot be mistaken for
// the next reply. Unsolicited lines go to their channel buffers, stray
// lines with other tags to the unrecognized buffers, and stale faults are
// logged and dropped.
func (s *Session) Flush() error {
	lines, err := s.transport.ReadLines()
	if err != nil {
		return NewConnectionError("flush", err)
	}
	s.route(lines)
	return nil
}

// route files lines that belong to no reply.
func (s *Session) route(lines []string) {
	buffered := 0
	for _, line := range lines {
		line = strings.TrimPrefix(line, Prompt)
		if line == "" {
			continue
		}
		if _, _, err := s.demux.Classify(line, 0); err != nil {
			s.log.Warn("discarding stale fault", "message", line[1:])
			continue
		}
		buffered++
	}
	if buffered > 0 {
		s.log.Debug("buffered stray lines", "count", buffered)
	}
}

// Send writes a command without waiting for a reply.
func (s *Session) Send(cmd Command) error {
	if _, err := s.transport.Write([]byte(cmd.Format())); err != nil {
		return NewConnectionError("send command", err)
	}
	return nil
}

// SendAndAwait sends cmd and returns its reply once the prompt ends the
// batch. The wait is bounded by MaxPolls transport reads and by ctx; running
// out of either returns ErrTimeout. A fault line aborts the reply and no
// partial reply is returned.
func (s *Session) SendAndAwait(ctx context.Context, cmd Command) (Reply, error) {
	if s.config.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CommandTimeout)
		defer cancel()
	}

	if err := s.Flush(); err != nil {
		return Reply{}, err
	}
	s.log.Debug("send", "command", cmd.Format(), "mode", cmd.Mode)
	if err := s.Send(cmd); err != nil {
		return Reply{}, err
	}

	c := collector{cmd: cmd}
	for poll := 0; poll < s.config.MaxPolls; poll++ {
		if err := ctx.Err(); err != nil {
			return Reply{}, fmt.Errorf("%w: %q: %v", ErrTimeout, cmd.Format(), err)
		}
		lines, err := s.transport.ReadLines()
		if err != nil {
			return Reply{}, NewConnectionError("read reply", err)
		}
		if len(lines) > 0 {
			s.log.Debug("batch", "command", cmd.Format(), "lines", len(lines), "poll", poll)
		}
		for i, line := range lines {
			if strings.HasPrefix(line, Prompt) {
				// Whatever follows the prompt is unsolicited output.
				s.route(append([]string{line[len(Prompt):]}, lines[i+1:]...))
				return c.finish()
			}
			route, body, err := s.demux.Classify(line, cmd.Tag())
			if err != nil {
				return Reply{}, err
			}
			if route == RouteReply {
				if err := c.add(body); err != nil {
					return Reply{}, err
				}
			}
		}
	}
	return Reply{}, fmt.Errorf("%w: %q: no prompt after %d polls", ErrTimeout, cmd.Format(), s.config.MaxPolls)
}

// collector accumulates one reply and enforces its shape.
type collector struct {
	cmd   Command
	lines []string
	done  bool
}

func (c *collector) add(body string) error {
	if c.done {
		return newExtraLineError(c.cmd.Format(), body)
	}
	switch c.cmd.Mode {
	case MultiLine:
		if body == "" {
			c.done = true
			return nil
		}
		c.lines = append(c.lines, body)
	default:
		c.lines = append(c.lines, body)
		c.done = true
	}
	return nil
}

func (c *collector) finish() (Reply, error) {
	if !c.done {
		return Reply{}, newMissingReplyError(c.cmd.Format())
	}
	return Reply{Lines: c.lines}, nil
}
