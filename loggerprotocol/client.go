package loggerprotocol

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Client is a connection to one data logger.
//
// It owns the Session and the Downloader, checks the protocol version on
// connect and caches the event catalog for the lifetime of the connection.
//
// Thread Safety:
// Every method takes the client mutex, so calls from several goroutines are
// serialized into the strict request/reply order the logger needs. Buffered
// unsolicited output should still be drained by the goroutine that issued
// the commands.
type Client struct {
	mu sync.Mutex

	config Config

	transport  Transport
	session    *Session
	downloader *Downloader

	connectedPort string
	isConnected   bool

	version string
	events  EventCatalog
}

// NewClient creates a client with the given options.
func NewClient(opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{config: cfg}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// IsConnected returns true if the client is currently connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// ConnectedPort returns the serial port name of the connection, or "" when
// the transport was supplied directly or the client is not connected.
func (c *Client) ConnectedPort() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectedPort
}

// Version returns the version string the logger reported.
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// ConnectSerial opens the named serial port and connects over it.
func (c *Client) ConnectSerial(ctx context.Context, portName string, cfg SerialConfig) error {
	c.mu.Lock()
	if c.isConnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	t, err := OpenSerial(portName, cfg)
	if err != nil {
		return err
	}
	if err := c.Connect(ctx, t); err != nil {
		return err
	}

	c.mu.Lock()
	c.connectedPort = portName
	c.mu.Unlock()
	return nil
}

// Connect takes ownership of transport, checks the protocol version and
// fetches the event catalog. On failure the transport is closed and the
// client stays disconnected.
func (c *Client) Connect(ctx context.Context, transport Transport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isConnected {
		return ErrAlreadyConnected
	}

	c.transport = transport
	c.session = NewSession(transport, c.config)
	c.downloader = NewDownloader(c.session, c.config)
	c.isConnected = true

	version, err := c.checkVersion(ctx)
	if err != nil {
		c.disconnect()
		return NewConnectionError("version check failed", err)
	}
	c.version = version

	events, err := c.fetchEvents(ctx)
	if err != nil {
		c.disconnect()
		return NewConnectionError("event catalog", err)
	}
	c.events = events

	c.config.Logger.Info("connected", "version", version, "events", len(events))
	return nil
}

// Disconnect closes the connection. A transfer in progress is cancelled
// first. Safe to call when not connected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnect()
}

func (c *Client) disconnect() error {
	if !c.isConnected {
		return nil
	}
	c.isConnected = false

	if c.downloader != nil && c.downloader.State() == DownloadTransferring {
		if err := c.downloader.Abort(context.Background()); err != nil {
			c.config.Logger.Warn("abort on disconnect", "error", err)
		}
	}

	var err error
	if c.transport != nil {
		err = c.transport.Close()
	}
	c.transport = nil
	c.session = nil
	c.downloader = nil
	c.connectedPort = ""
	c.version = ""
	c.events = nil
	return err
}

// ready fails when there is no usable connection. Callers hold mu.
func (c *Client) ready() error {
	if !c.isConnected {
		return ErrNotConnected
	}
	return nil
}

// Send runs one command and returns its raw reply.
func (c *Client) Send(ctx context.Context, cmd Command) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return Reply{}, err
	}
	return c.session.SendAndAwait(ctx, cmd)
}

// checkVersion asks for the protocol version. A mismatch is fatal.
func (c *Client) checkVersion(ctx context.Context) (string, error) {
	reply, err := c.session.SendAndAwait(ctx, NewVersionCommand())
	if err != nil {
		return "", err
	}
	version := reply.Line()
	if err := CheckVersionReply(version); err != nil {
		return "", err
	}
	return version, nil
}

func (c *Client) fetchEvents(ctx context.Context) (EventCatalog, error) {
	cmd := NewEventNamesCommand()
	reply, err := c.session.SendAndAwait(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if len(reply.Lines) > MaxEvents {
		return nil, newLineCountError(cmd.Format(), fmt.Sprintf("at most %d", MaxEvents), reply.Lines)
	}
	return EventCatalog(slices.Clone(reply.Lines)), nil
}

// EventNames returns a copy of the event catalog.
func (c *Client) EventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

// EventMask returns the mask selecting names. Unknown names fail with
// ErrUnknownEvent.
func (c *Client) EventMask(names []string) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.events.Mask(names)
}

// DecodeEvents returns the catalog names selected by mask.
func (c *Client) DecodeEvents(mask uint32) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events.Decode(mask)
}

// LogDump drains the buffered log entries.
func (c *Client) LogDump() []string {
	return c.drain(ChannelLog)
}

// DeviceErrors drains the buffered device error reports.
func (c *Client) DeviceErrors() []string {
	return c.drain(ChannelError)
}

// Messages drains the buffered plain messages.
func (c *Client) Messages() []string {
	return c.drain(ChannelMessage)
}

func (c *Client) drain(ch Channel) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.Demux().Drain(ch)
}

// UnrecognizedOutput drains lines whose tag matched no channel and no
// outstanding command, keyed by tag.
func (c *Client) UnrecognizedOutput() map[byte][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.Demux().DrainUnrecognized()
}

// ChannelSizes reports how many lines wait in each channel buffer.
func (c *Client) ChannelSizes() map[Channel]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.Demux().Sizes()
}

// StartDownload begins fetching filename from the logger.
func (c *Client) StartDownload(ctx context.Context, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	return c.downloader.Start(ctx, filename)
}

// DownloadChunk moves the next chunk of the current download. It returns
// the bytes still outstanding and the bytes moved by this call.
func (c *Client) DownloadChunk(ctx context.Context) (int64, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return 0, 0, err
	}
	return c.downloader.ConsumeChunk(ctx)
}

// AbortDownload cancels the current download.
func (c *Client) AbortDownload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	return c.downloader.Abort(ctx)
}

// DownloadState returns the state of the downloader.
func (c *Client) DownloadState() DownloadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.downloader == nil {
		return DownloadIdle
	}
	return c.downloader.State()
}

// DownloadRemaining returns the bytes outstanding in the current download.
func (c *Client) DownloadRemaining() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.downloader == nil {
		return 0
	}
	return c.downloader.Remaining()
}
