package loggerprotocol

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Coweeta/datalogger-tools/loggerprotocol/loggertest"
)

func connectPort(t *testing.T, port *loggertest.Port, opts ...Option) *Client {
	t.Helper()
	c := NewClient(append([]Option{WithMaxPolls(5)}, opts...)...)
	if err := c.Connect(context.Background(), NewLineTransport(port)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })
	return c
}

func connectLogger(t *testing.T, lg *loggertest.Logger, opts ...Option) (*Client, *loggertest.Port) {
	t.Helper()
	port := lg.Port()
	return connectPort(t, port, opts...), port
}

// overriding answers the given letters itself and leaves the rest to lg.
func overriding(lg *loggertest.Logger, replies map[byte]string) *loggertest.Port {
	return loggertest.NewPort(func(cmd string) []string {
		if cmd != "" {
			if r, ok := replies[cmd[0]]; ok {
				return []string{r}
			}
		}
		return lg.Handle(cmd)
	})
}

func TestConnect(t *testing.T) {
	lg := loggertest.NewLogger()
	c, port := connectLogger(t, lg)

	if !c.IsConnected() {
		t.Fatal("not connected")
	}
	if c.Version() != "COW0.0" {
		t.Errorf("Version() = %q", c.Version())
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, c.EventNames()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"v", "n"}, port.Written()); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}

	err := c.Connect(context.Background(), NewLineTransport(lg.Port()))
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect: err = %v, want ErrAlreadyConnected", err)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if c.IsConnected() || !port.Closed() {
		t.Errorf("after Disconnect: connected %v, port closed %v", c.IsConnected(), port.Closed())
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}
}

func TestConnectRejected(t *testing.T) {
	tests := []struct {
		name    string
		port    func(*loggertest.Logger) *loggertest.Port
		wantErr error
	}{
		{
			name: "wrong magic",
			port: func(lg *loggertest.Logger) *loggertest.Port {
				lg.Version = "MOO0.0"
				return lg.Port()
			},
			wantErr: ErrUnsupportedDevice,
		},
		{
			name: "wrong revision",
			port: func(lg *loggertest.Logger) *loggertest.Port {
				lg.Version = "COW1.3"
				return lg.Port()
			},
			wantErr: ErrUnsupportedDevice,
		},
		{
			name: "short reply",
			port: func(lg *loggertest.Logger) *loggertest.Port {
				lg.Version = "CO"
				return lg.Port()
			},
			wantErr: ErrUnsupportedDevice,
		},
		{
			name: "two line reply",
			port: func(lg *loggertest.Logger) *loggertest.Port {
				return overriding(lg, map[byte]string{'v': "vCOW\r\nv0.0\r\n>"})
			},
			wantErr: ErrMalformedReply,
		},
		{
			name: "version fault",
			port: func(lg *loggertest.Logger) *loggertest.Port {
				lg.Faults = map[byte]string{'v': "busy"}
				return lg.Port()
			},
			wantErr: ErrDeviceFault,
		},
		{
			name: "too many events",
			port: func(lg *loggertest.Logger) *loggertest.Port {
				lg.Events = nil
				for i := 0; i <= MaxEvents; i++ {
					lg.Events = append(lg.Events, fmt.Sprintf("E%d", i))
				}
				return lg.Port()
			},
			wantErr: ErrMalformedReply,
		},
		{
			name: "silent device",
			port: func(lg *loggertest.Logger) *loggertest.Port {
				lg.Silent = map[byte]bool{'v': true}
				return lg.Port()
			},
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := tt.port(loggertest.NewLogger())
			c := NewClient(WithMaxPolls(5))

			err := c.Connect(context.Background(), NewLineTransport(port))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if c.IsConnected() {
				t.Error("client still connected")
			}
			if !port.Closed() {
				t.Error("transport not closed")
			}
			if _, err := c.ListFiles(context.Background()); !errors.Is(err, ErrNotConnected) {
				t.Errorf("ListFiles after rejection: err = %v, want ErrNotConnected", err)
			}
		})
	}
}

func TestNotConnected(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["ListFiles"] = c.ListFiles(ctx)
	_, checks["ActiveFileNumber"] = c.ActiveFileNumber(ctx)
	checks["SetActiveFile"] = c.SetActiveFile(ctx, 1)
	_, checks["TimeDelta"] = c.TimeDelta(ctx)
	_, _, checks["SyncTime"] = c.SyncTime(ctx)
	_, checks["TriggerEvents"] = c.TriggerEvents(ctx, nil)
	checks["EnableEvents"] = c.EnableEvents(ctx, nil)
	_, checks["NextEvent"] = c.NextEvent(ctx)
	_, checks["EventMask"] = c.EventMask(nil)
	checks["StartDownload"] = c.StartDownload(ctx, "x")
	_, _, checks["DownloadChunk"] = c.DownloadChunk(ctx)
	checks["AbortDownload"] = c.AbortDownload(ctx)
	_, checks["Send"] = c.Send(ctx, NewVersionCommand())

	for name, err := range checks {
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("%s: err = %v, want ErrNotConnected", name, err)
		}
	}
	if c.LogDump() != nil || c.ChannelSizes() != nil {
		t.Error("buffers reported without a connection")
	}
	if c.DownloadState() != DownloadIdle {
		t.Errorf("DownloadState() = %v", c.DownloadState())
	}
}

func TestConnectSerialMissingPort(t *testing.T) {
	c := NewClient()
	err := c.ConnectSerial(context.Background(), "/dev/cowlog-no-such-port", SerialConfig{})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want ConnectionError", err)
	}
	if c.IsConnected() || c.ConnectedPort() != "" {
		t.Error("client connected to a missing port")
	}
}

func TestListFiles(t *testing.T) {
	lg := loggertest.NewLogger()
	lg.Files = []loggertest.File{
		{Name: "LOGGER00.CSV", Data: string(make([]byte, 1200))},
		{Name: "SYSTEM~1", Dir: true},
	}
	c, port := connectLogger(t, lg)

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	size := int64(1200)
	want := []FileEntry{
		{Name: "LOGGER00.CSV", Size: &size},
		{Name: "SYSTEM~1"},
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if last := port.Written()[len(port.Written())-1]; last != "L" {
		t.Errorf("sent %q, want L", last)
	}
}

func TestActiveFile(t *testing.T) {
	lg := loggertest.NewLogger()
	lg.Active = 3
	c, _ := connectLogger(t, lg)
	ctx := context.Background()

	n, err := c.ActiveFileNumber(ctx)
	if err != nil || n != 3 {
		t.Fatalf("ActiveFileNumber = %d, %v; want 3", n, err)
	}
	if err := c.SetActiveFile(ctx, 4); err != nil {
		t.Fatalf("SetActiveFile: %v", err)
	}
	if lg.ActiveFile() != 4 {
		t.Errorf("logger active file = %d, want 4", lg.ActiveFile())
	}
	if n, _ := c.ActiveFileNumber(ctx); n != 4 {
		t.Errorf("ActiveFileNumber after set = %d", n)
	}
}

func TestSetActiveFileOutOfRange(t *testing.T) {
	lg := loggertest.NewLogger()
	c, port := connectLogger(t, lg)
	before := len(port.Written())

	for _, n := range []int{-1, MaxFileNumber + 1, 999} {
		if err := c.SetActiveFile(context.Background(), n); !errors.Is(err, ErrInvalidFileNumber) {
			t.Errorf("SetActiveFile(%d) = %v, want ErrInvalidFileNumber", n, err)
		}
	}
	if got := port.Written()[before:]; len(got) != 0 {
		t.Errorf("commands sent for bad numbers: %q", got)
	}
	if err := c.SetActiveFile(context.Background(), MaxFileNumber); err != nil {
		t.Errorf("SetActiveFile(%d): %v", MaxFileNumber, err)
	}
	if lg.ActiveFile() != MaxFileNumber {
		t.Errorf("logger active file = %d, want %d", lg.ActiveFile(), MaxFileNumber)
	}
}

func TestActiveFileBadNumber(t *testing.T) {
	lg := loggertest.NewLogger()
	c := connectPort(t, overriding(lg, map[byte]string{'A': "Afour\r\n>"}))

	if _, err := c.ActiveFileNumber(context.Background()); !errors.Is(err, ErrMalformedReply) {
		t.Errorf("err = %v, want ErrMalformedReply", err)
	}
}

func TestDeviceFaultKeepsConnection(t *testing.T) {
	lg := loggertest.NewLogger()
	lg.Faults = map[byte]string{'A': "no card"}
	c, _ := connectLogger(t, lg)

	_, err := c.ActiveFileNumber(context.Background())
	var fault *DeviceFaultError
	if !errors.As(err, &fault) || fault.Message != "no card" {
		t.Fatalf("err = %v, want fault \"no card\"", err)
	}
	if !c.IsConnected() {
		t.Fatal("fault closed the connection")
	}
	if _, err := c.ListFiles(context.Background()); err != nil {
		t.Errorf("ListFiles after fault: %v", err)
	}
}

func TestSyncTime(t *testing.T) {
	local := time.Unix(1700000000, 0)

	tests := []struct {
		name          string
		offset        int64
		wantCorrected bool
	}{
		{"ahead", 5, true},
		{"slightly ahead", 1, false},
		{"at threshold", 2, false},
		{"behind", -3, true},
		{"in sync", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := loggertest.NewLogger()
			lg.Clock = local.Unix() + tt.offset
			c, port := connectLogger(t, lg, WithClock(func() time.Time { return local }))

			corrected, delta, err := c.SyncTime(context.Background())
			if err != nil {
				t.Fatalf("SyncTime: %v", err)
			}
			if corrected != tt.wantCorrected {
				t.Errorf("corrected = %v, want %v", corrected, tt.wantCorrected)
			}
			if want := time.Duration(tt.offset) * time.Second; delta != want {
				t.Errorf("delta = %v, want %v", delta, want)
			}

			written := port.Written()
			last := written[len(written)-1]
			if tt.wantCorrected {
				if last != "s1700000000" {
					t.Errorf("last command = %q, want s1700000000", last)
				}
				if lg.ClockValue() != local.Unix() {
					t.Errorf("logger clock = %d", lg.ClockValue())
				}
			} else if last != "t" {
				t.Errorf("correction sent: %q", last)
			}
		})
	}
}

func TestTimeDelta(t *testing.T) {
	lg := loggertest.NewLogger()
	lg.Clock = 1700000000 - 90000
	c, port := connectLogger(t, lg, WithClock(func() time.Time { return time.Unix(1700000000, 0) }))

	delta, err := c.TimeDelta(context.Background())
	if err != nil {
		t.Fatalf("TimeDelta: %v", err)
	}
	if delta != -90000*time.Second {
		t.Errorf("delta = %v", delta)
	}
	if lg.ClockValue() != 1700000000-90000 {
		t.Error("TimeDelta changed the logger clock")
	}
	if n := len(port.Written()); n != 3 {
		t.Errorf("%d commands sent, want v n t", n)
	}
}

func TestTriggerEvents(t *testing.T) {
	lg := loggertest.NewLogger()
	c, port := connectLogger(t, lg)
	ctx := context.Background()

	line, err := c.TriggerEvents(ctx, []string{"A", "C"})
	if err != nil {
		t.Fatalf("TriggerEvents: %v", err)
	}
	if line != "1700000000,5" {
		t.Errorf("echo = %q", line)
	}

	line, err = c.TriggerEvents(ctx, nil)
	if err != nil || line != "" {
		t.Errorf("TriggerEvents(none) = %q, %v", line, err)
	}
	if diff := cmp.Diff([]uint32{5, 0}, lg.Triggered()); diff != "" {
		t.Errorf("masks mismatch (-want +got):\n%s", diff)
	}

	sent := len(port.Written())
	if _, err := c.TriggerEvents(ctx, []string{"A", "Q"}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("err = %v, want ErrUnknownEvent", err)
	}
	if len(port.Written()) != sent {
		t.Error("unknown event reached the logger")
	}
}

func TestTriggerEventsTooManyLines(t *testing.T) {
	lg := loggertest.NewLogger()
	c := connectPort(t, overriding(lg, map[byte]string{'e': "eone\r\netwo\r\ne\r\n>"}))

	if _, err := c.TriggerEvents(context.Background(), []string{"B"}); !errors.Is(err, ErrMalformedReply) {
		t.Errorf("err = %v, want ErrMalformedReply", err)
	}
}

func TestEventMask(t *testing.T) {
	c, _ := connectLogger(t, loggertest.NewLogger())

	mask, err := c.EventMask([]string{"A", "C"})
	if err != nil || mask != 5 {
		t.Fatalf("EventMask = %d, %v; want 5", mask, err)
	}
	if diff := cmp.Diff([]string{"A", "C"}, c.DecodeEvents(mask)); diff != "" {
		t.Errorf("DecodeEvents mismatch (-want +got):\n%s", diff)
	}
}

func TestEnableEvents(t *testing.T) {
	lg := loggertest.NewLogger()
	c, port := connectLogger(t, lg)

	if err := c.EnableEvents(context.Background(), []string{"B", "C"}); err != nil {
		t.Fatalf("EnableEvents: %v", err)
	}
	if lg.EnabledMask() != 6 {
		t.Errorf("enabled mask = %d, want 6", lg.EnabledMask())
	}
	if last := port.Written()[len(port.Written())-1]; last != "E6" {
		t.Errorf("sent %q, want E6", last)
	}
}

func TestNextEvent(t *testing.T) {
	lg := loggertest.NewLogger()
	c, _ := connectLogger(t, lg)

	next, err := c.NextEvent(context.Background())
	if err != nil {
		t.Fatalf("NextEvent: %v", err)
	}
	want := NextEvent{
		Delay:   3725 * time.Second,
		Events:  []string{"B"},
		Enabled: []string{"A", "C"},
	}
	if diff := cmp.Diff(want, next); diff != "" {
		t.Errorf("next event mismatch (-want +got):\n%s", diff)
	}
}

func TestNextEventMalformed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"two lines", "w10\r\nw1\r\nw\r\n>"},
		{"four lines", "w10\r\nw1\r\nw1\r\nw1\r\nw\r\n>"},
		{"bad delay", "wsoon\r\nw1\r\nw1\r\nw\r\n>"},
		{"bad mask", "w10\r\nwB\r\nw1\r\nw\r\n>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := loggertest.NewLogger()
			c := connectPort(t, overriding(lg, map[byte]string{'w': tt.reply}))

			if _, err := c.NextEvent(context.Background()); !errors.Is(err, ErrMalformedReply) {
				t.Errorf("err = %v, want ErrMalformedReply", err)
			}
		})
	}
}

func TestUnsolicitedOutput(t *testing.T) {
	lg := loggertest.NewLogger()
	c, _ := connectLogger(t, lg)

	lg.Emit("!12:00 sample", "#sd retry", " hello", "?odd", "!12:01 sample")
	if _, err := c.ListFiles(context.Background()); err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	wantSizes := map[Channel]int{ChannelLog: 2, ChannelError: 1, ChannelMessage: 1}
	if diff := cmp.Diff(wantSizes, c.ChannelSizes()); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"12:00 sample", "12:01 sample"}, c.LogDump()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sd retry"}, c.DeviceErrors()); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"hello"}, c.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[byte][]string{'?': {"odd"}}, c.UnrecognizedOutput()); diff != "" {
		t.Errorf("unrecognized mismatch (-want +got):\n%s", diff)
	}
	if got := c.LogDump(); len(got) != 0 {
		t.Errorf("second LogDump = %v", got)
	}
}

func TestClientDownload(t *testing.T) {
	lg := loggertest.NewLogger()
	sink := newMemSink()
	c, _ := connectLogger(t, lg, WithSinkFactory(sink.open), WithChunkSize(8))
	ctx := context.Background()

	if err := c.StartDownload(ctx, "LOGGER00.CSV"); err != nil {
		t.Fatalf("StartDownload: %v", err)
	}
	for c.DownloadState() == DownloadTransferring {
		if _, _, err := c.DownloadChunk(ctx); err != nil {
			t.Fatalf("DownloadChunk: %v", err)
		}
	}
	if c.DownloadState() != DownloadCompleted || c.DownloadRemaining() != 0 {
		t.Errorf("state %v remaining %d", c.DownloadState(), c.DownloadRemaining())
	}
	if got := sink.files["LOGGER00.CSV"].String(); got != "time,event\n1700000000,A\n" {
		t.Errorf("downloaded %q", got)
	}
	if lg.HasFile("LOGGER00.CSV") {
		t.Error("file left on logger")
	}
}

func TestDisconnectAbortsDownload(t *testing.T) {
	lg := loggertest.NewLogger()
	sink := newMemSink()
	c, port := connectLogger(t, lg, WithSinkFactory(sink.open), WithChunkSize(4))
	ctx := context.Background()

	if err := c.StartDownload(ctx, "LOGGER00.CSV"); err != nil {
		t.Fatalf("StartDownload: %v", err)
	}
	if _, _, err := c.DownloadChunk(ctx); err != nil {
		t.Fatalf("DownloadChunk: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	written := port.Written()
	if written[len(written)-1] != " " {
		t.Errorf("last write = %q, want cancel byte", written[len(written)-1])
	}
	if !sink.files["LOGGER00.CSV"].closed {
		t.Error("sink not closed")
	}
}

func TestWithLogger(t *testing.T) {
	c := NewClient(WithLogger(nil), WithMaxPolls(0), WithChunkSize(-1), WithDownloadDir(""))
	cfg := c.Config()
	if cfg.Logger == nil || cfg.MaxPolls != DefaultMaxPolls || cfg.ChunkSize != DefaultChunkSize || cfg.DownloadDir != "." {
		t.Errorf("invalid options changed the defaults: %+v", cfg)
	}
	if !cfg.DeleteAfterDownload {
		t.Error("files should be removed after download by default")
	}

	c = NewClient(WithDeleteAfterDownload(false), WithCommandTimeout(time.Second))
	if c.Config().DeleteAfterDownload || c.Config().CommandTimeout != time.Second {
		t.Errorf("options not applied: %+v", c.Config())
	}
}
