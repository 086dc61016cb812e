package loggertest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// File is a file on the simulated logger's card. Dir entries are listed
// without a size and cannot be fetched.
type File struct {
	Name string
	Data string
	Dir  bool
}

// Logger simulates data logger firmware. Set the exported fields before the
// first command; afterwards use the methods, which lock.
type Logger struct {
	mu sync.Mutex

	Version  string
	Events   []string
	Files    []File
	Active   int
	Clock    int64
	Delay    int64
	Upcoming uint32
	Enabled  uint32

	// Faults makes the command with the given letter fail with the message.
	Faults map[byte]string
	// Silent makes the command with the given letter get no answer at all.
	Silent map[byte]bool
	// TransferBatch splits file transfers into batches of this many bytes.
	TransferBatch int
	// SizeLine overrides the size line of the next transfer.
	SizeLine string
	// Terminator overrides the batch sent after a transfer.
	Terminator string

	unsolicited []string
	triggered   []uint32
}

// NewLogger returns a logger with three events and one log file.
func NewLogger() *Logger {
	return &Logger{
		Version: "COW0.0",
		Events:  []string{"A", "B", "C"},
		Files: []File{
			{Name: "LOGGER00.CSV", Data: "time,event\n1700000000,A\n"},
			{Name: "SYSTEM~1", Dir: true},
		},
		Clock:    1700000000,
		Delay:    3725,
		Upcoming: 0b010,
		Enabled:  0b101,
	}
}

// Port returns a port connected to l.
func (l *Logger) Port() *Port {
	return NewPort(l.Handle)
}

// Emit queues tagged lines to be sent ahead of the next reply.
func (l *Logger) Emit(lines ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsolicited = append(l.unsolicited, lines...)
}

// Triggered returns the masks received by the trigger command.
func (l *Logger) Triggered() []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint32(nil), l.triggered...)
}

// ClockValue returns the logger's clock.
func (l *Logger) ClockValue() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Clock
}

// ActiveFile returns the active file number.
func (l *Logger) ActiveFile() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Active
}

// EnabledMask returns the enabled event mask.
func (l *Logger) EnabledMask() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Enabled
}

// HasFile reports whether name is on the card.
func (l *Logger) HasFile(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.find(name) >= 0
}

func (l *Logger) find(name string) int {
	for i, f := range l.Files {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Handle answers one command. It implements Handler.
func (l *Logger) Handle(cmd string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cmd == "" || cmd == " " {
		// Cancel byte or nothing.
		return nil
	}
	letter, arg := cmd[0], cmd[1:]
	if l.Silent[letter] {
		return nil
	}

	var b strings.Builder
	for _, line := range l.unsolicited {
		b.WriteString(line + "\r\n")
	}
	l.unsolicited = nil

	if msg, ok := l.Faults[letter]; ok {
		b.WriteString("X" + msg + "\r\n>")
		return []string{b.String()}
	}

	single := func(body string) []string {
		b.WriteString(string(letter) + body + "\r\n>")
		return []string{b.String()}
	}
	multi := func(bodies ...string) []string {
		for _, body := range bodies {
			b.WriteString(string(letter) + body + "\r\n")
		}
		b.WriteString(string(letter) + "\r\n>")
		return []string{b.String()}
	}

	switch letter {
	case 'v':
		return single(l.Version)
	case 'n':
		return multi(l.Events...)
	case 'L':
		var lines []string
		for _, f := range l.Files {
			if f.Dir {
				lines = append(lines, f.Name)
				continue
			}
			lines = append(lines, fmt.Sprintf("%s\t%d", f.Name, len(f.Data)))
		}
		return multi(lines...)
	case 'A':
		return single(strconv.Itoa(l.Active))
	case 'N':
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 || n > 99 {
			return l.fault(&b, "bad file number")
		}
		l.Active = n
		l.Files = append(l.Files, File{Name: fmt.Sprintf("LOGGER%02d.CSV", n)})
		return multi()
	case 't':
		return single(strconv.FormatInt(l.Clock, 10))
	case 's':
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return l.fault(&b, "bad time")
		}
		l.Clock = v
		return multi()
	case 'e':
		mask, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return l.fault(&b, "bad mask")
		}
		l.triggered = append(l.triggered, uint32(mask))
		if mask == 0 {
			return multi()
		}
		return multi(fmt.Sprintf("%d,%d", l.Clock, mask))
	case 'E':
		mask, err := strconv.ParseUint(arg, 10, 32)
		if err != nil || mask >= 1<<len(l.Events) {
			return l.fault(&b, "bad mask")
		}
		l.Enabled = uint32(mask)
		return multi()
	case 'w':
		return multi(
			strconv.FormatInt(l.Delay, 10),
			strconv.FormatUint(uint64(l.Upcoming), 10),
			strconv.FormatUint(uint64(l.Enabled), 10),
		)
	case 'G':
		return l.transfer(&b, arg)
	case 'R':
		name, ok := strings.CutSuffix(arg, "|")
		i := l.find(name)
		if !ok || i < 0 {
			return l.fault(&b, "no such file")
		}
		l.Files = append(l.Files[:i], l.Files[i+1:]...)
		return multi()
	}
	return l.fault(&b, "unknown command")
}

func (l *Logger) fault(b *strings.Builder, msg string) []string {
	b.WriteString("X" + msg + "\r\n>")
	return []string{b.String()}
}

// transfer sends the size line, the file bytes and the prompt.
func (l *Logger) transfer(b *strings.Builder, arg string) []string {
	name, ok := strings.CutSuffix(arg, "|")
	i := l.find(name)
	if !ok || i < 0 || l.Files[i].Dir {
		return l.fault(b, "cannot open "+name)
	}
	data := l.Files[i].Data

	size := strconv.Itoa(len(data))
	if l.SizeLine != "" {
		size = l.SizeLine
		l.SizeLine = ""
	}
	term := ">"
	if l.Terminator != "" {
		term = l.Terminator
		l.Terminator = ""
	}

	b.WriteString(size + "\r\n")
	if l.TransferBatch <= 0 {
		b.WriteString(data + term)
		return []string{b.String()}
	}
	batches := []string{b.String()}
	for len(data) > 0 {
		n := min(l.TransferBatch, len(data))
		batches = append(batches, data[:n])
		data = data[n:]
	}
	return append(batches, term)
}
