package loggerprotocol

import (
	"strconv"
	"strings"
)

// ParseFileEntry parses "name" or "name<TAB>size".
func ParseFileEntry(line string) (FileEntry, error) {
	name, sizeText, ok := strings.Cut(line, "\t")
	if !ok {
		return FileEntry{Name: line}, nil
	}
	size, err := strconv.ParseInt(strings.TrimSpace(sizeText), 10, 64)
	if err != nil || size < 0 {
		return FileEntry{}, newBadNumberError(string(CmdListFiles), line)
	}
	return FileEntry{Name: name, Size: &size}, nil
}

// ParseFileList parses a directory listing reply.
func ParseFileList(lines []string) ([]FileEntry, error) {
	entries := make([]FileEntry, 0, len(lines))
	for _, line := range lines {
		entry, err := ParseFileEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CheckVersionReply validates the body of the version reply.
func CheckVersionReply(reply string) error {
	if !strings.HasPrefix(reply, VersionMagic) {
		return &UnsupportedDeviceError{Reply: reply, Reason: "device may not be a Coweeta data logger"}
	}
	if reply[len(VersionMagic):] != SupportedVersion {
		return &UnsupportedDeviceError{Reply: reply, Reason: "device uses a protocol this tool does not support"}
	}
	return nil
}

// parseInt parses a numeric reply field of cmd.
func parseInt(cmd Command, field string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0, newBadNumberError(cmd.Format(), field)
	}
	return v, nil
}

// parseMask parses an event mask reply field of cmd.
func parseMask(cmd Command, field string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 32)
	if err != nil {
		return 0, newBadNumberError(cmd.Format(), field)
	}
	return uint32(v), nil
}
