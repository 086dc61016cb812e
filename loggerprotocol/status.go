package loggerprotocol

import (
	"context"
	"fmt"
	"time"
)

// ListFiles returns the logger's directory listing.
func (c *Client) ListFiles(ctx context.Context) ([]FileEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return nil, err
	}
	reply, err := c.session.SendAndAwait(ctx, NewListFilesCommand())
	if err != nil {
		return nil, err
	}
	return ParseFileList(reply.Lines)
}

// ActiveFileNumber returns the number of the file the logger writes to.
func (c *Client) ActiveFileNumber(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return 0, err
	}
	cmd := NewActiveFileCommand()
	reply, err := c.session.SendAndAwait(ctx, cmd)
	if err != nil {
		return 0, err
	}
	n, err := parseInt(cmd, reply.Line())
	return int(n), err
}

// SetActiveFile switches logging to file number num. Numbers outside
// 0..MaxFileNumber fail with ErrInvalidFileNumber and nothing is sent; the
// logger would otherwise keep prompting for a valid number.
func (c *Client) SetActiveFile(ctx context.Context, num int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	if num < 0 || num > MaxFileNumber {
		return fmt.Errorf("%w: %d (expected 0-%d)", ErrInvalidFileNumber, num, MaxFileNumber)
	}
	_, err := c.session.SendAndAwait(ctx, NewSetActiveFileCommand(num))
	return err
}

// TimeDelta returns the logger clock minus the local clock.
func (c *Client) TimeDelta(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return 0, err
	}
	delta, _, err := c.timeDelta(ctx)
	return delta, err
}

func (c *Client) timeDelta(ctx context.Context) (time.Duration, time.Time, error) {
	cmd := NewGetTimeCommand()
	reply, err := c.session.SendAndAwait(ctx, cmd)
	if err != nil {
		return 0, time.Time{}, err
	}
	epoch, err := parseInt(cmd, reply.Line())
	if err != nil {
		return 0, time.Time{}, err
	}
	now := c.config.Now()
	return time.Unix(epoch, 0).Sub(now), now, nil
}

// SyncTime sets the logger clock to local time when the two differ by more
// than TimeSyncThreshold. It reports whether a correction was sent and the
// difference measured before it.
func (c *Client) SyncTime(ctx context.Context) (bool, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	delta, now, err := c.timeDelta(ctx)
	if err != nil {
		return false, 0, err
	}
	if delta.Abs() <= TimeSyncThreshold {
		return false, delta, nil
	}
	c.config.Logger.Debug("correcting logger clock", "delta", delta)
	if _, err := c.session.SendAndAwait(ctx, NewSetTimeCommand(now.Unix())); err != nil {
		return false, delta, err
	}
	return true, delta, nil
}

// TriggerEvents fires the named events now. It returns the log line the
// logger echoed, or "" if there was none.
func (c *Client) TriggerEvents(ctx context.Context, names []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return "", err
	}
	mask, err := c.events.Mask(names)
	if err != nil {
		return "", err
	}
	cmd := NewTriggerCommand(mask)
	reply, err := c.session.SendAndAwait(ctx, cmd)
	if err != nil {
		return "", err
	}
	if len(reply.Lines) > 1 {
		return "", newLineCountError(cmd.Format(), "0 or 1", reply.Lines)
	}
	return reply.Line(), nil
}

// EnableEvents sets which event schedules run. Events not named are
// disabled.
func (c *Client) EnableEvents(ctx context.Context, names []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	mask, err := c.events.Mask(names)
	if err != nil {
		return err
	}
	_, err = c.session.SendAndAwait(ctx, NewEnableEventsCommand(mask))
	return err
}

// NextEvent asks when the next scheduled events fire.
func (c *Client) NextEvent(ctx context.Context) (NextEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return NextEvent{}, err
	}
	cmd := NewNextEventCommand()
	reply, err := c.session.SendAndAwait(ctx, cmd)
	if err != nil {
		return NextEvent{}, err
	}
	if len(reply.Lines) != 3 {
		return NextEvent{}, newLineCountError(cmd.Format(), "3", reply.Lines)
	}
	delay, err := parseInt(cmd, reply.Lines[0])
	if err != nil {
		return NextEvent{}, err
	}
	triggered, err := parseMask(cmd, reply.Lines[1])
	if err != nil {
		return NextEvent{}, err
	}
	enabled, err := parseMask(cmd, reply.Lines[2])
	if err != nil {
		return NextEvent{}, fmt.Errorf("enabled mask: %w", err)
	}
	return NextEvent{
		Delay:   time.Duration(delay) * time.Second,
		Events:  c.events.Decode(triggered),
		Enabled: c.events.Decode(enabled),
	}, nil
}
