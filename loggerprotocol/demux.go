package loggerprotocol

// Channel identifies one of the logger's unsolicited output streams.
type Channel int

const (
	// ChannelLog holds log entries ('!').
	ChannelLog Channel = iota
	// ChannelError holds device error reports ('#').
	ChannelError
	// ChannelMessage holds plain text (' ').
	ChannelMessage

	numChannels
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelLog:
		return "log"
	case ChannelError:
		return "error"
	case ChannelMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Tag returns the line tag of the channel.
func (c Channel) Tag() byte {
	switch c {
	case ChannelLog:
		return LogTag
	case ChannelError:
		return ErrorTag
	case ChannelMessage:
		return MessageTag
	default:
		return 0
	}
}

// channelForTag maps a tag to its known channel.
func channelForTag(tag byte) (Channel, bool) {
	switch tag {
	case LogTag:
		return ChannelLog, true
	case ErrorTag:
		return ChannelError, true
	case MessageTag:
		return ChannelMessage, true
	default:
		return 0, false
	}
}

// Route is the outcome of classifying a line.
type Route int

const (
	// RouteReply means the line belongs to the reply being collected.
	RouteReply Route = iota
	// RouteBuffered means the line went to a channel buffer.
	RouteBuffered
)

// Demultiplexer sorts logger lines into the current reply and the
// unsolicited channel buffers.
//
// Buffers grow until drained. Draining them is the owner's job: a client
// that never calls the drain methods keeps every unsolicited line.
type Demultiplexer struct {
	channels     [numChannels][]string
	unrecognized map[byte][]string
}

// NewDemultiplexer creates an empty demultiplexer.
func NewDemultiplexer() *Demultiplexer {
	return &Demultiplexer{}
}

// Classify routes line. expect is the tag of the reply being collected.
// A fault line returns a *DeviceFaultError.
func (d *Demultiplexer) Classify(line string, expect byte) (Route, string, error) {
	if line == "" {
		return RouteBuffered, "", nil
	}
	tag, body := line[0], line[1:]
	switch {
	case tag == expect:
		return RouteReply, body, nil
	case tag == FaultTag:
		return RouteBuffered, body, &DeviceFaultError{Message: body}
	}
	d.buffer(tag, body)
	return RouteBuffered, body, nil
}

// buffer appends body to the buffer for tag.
func (d *Demultiplexer) buffer(tag byte, body string) {
	if ch, ok := channelForTag(tag); ok {
		d.channels[ch] = append(d.channels[ch], body)
		return
	}
	if d.unrecognized == nil {
		d.unrecognized = make(map[byte][]string)
	}
	d.unrecognized[tag] = append(d.unrecognized[tag], body)
}

// IsUnsolicited reports whether a line carries a known unsolicited tag.
func IsUnsolicited(line string) bool {
	if line == "" {
		return false
	}
	_, ok := channelForTag(line[0])
	return ok
}

// Drain returns and clears the buffer of ch.
func (d *Demultiplexer) Drain(ch Channel) []string {
	if ch < 0 || ch >= numChannels {
		return nil
	}
	lines := d.channels[ch]
	d.channels[ch] = nil
	return lines
}

// DrainUnrecognized returns and clears the buffers of tags outside the
// known channels.
func (d *Demultiplexer) DrainUnrecognized() map[byte][]string {
	out := d.unrecognized
	d.unrecognized = nil
	return out
}

// Sizes returns the number of buffered lines per known channel.
func (d *Demultiplexer) Sizes() map[Channel]int {
	sizes := make(map[Channel]int, numChannels)
	for ch := Channel(0); ch < numChannels; ch++ {
		sizes[ch] = len(d.channels[ch])
	}
	return sizes
}
