// =============================================================================
// ports.go - Serial Port Discovery
// =============================================================================
//
// Finds the logger's serial port when --port is not given. The logger shows
// up as a USB serial adapter, so discovery looks for exactly one USB port:
//
//   - none: the logger is unplugged, or needs a driver
//   - one: use it
//   - several: ambiguous, the user must pick with --port
//
// The 'ports' command prints every port so the user can see what to pick.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/Coweeta/datalogger-tools/loggerprotocol"
)

// errNoLoggerPort is returned when discovery finds no USB serial port.
var errNoLoggerPort = errors.New("no USB serial port found; is the logger plugged in? (use --port to choose one)")

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// discoverPort returns the single USB serial port on this machine.
func discoverPort() (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	return choosePort(ports)
}

// choosePort picks the USB port from ports.
func choosePort(ports []*enumerator.PortDetails) (string, error) {
	var usb []string
	for _, p := range ports {
		if p.IsUSB {
			usb = append(usb, p.Name)
		}
	}
	sort.Strings(usb)

	switch len(usb) {
	case 0:
		return "", errNoLoggerPort
	case 1:
		return usb[0], nil
	default:
		return "", fmt.Errorf("several USB serial ports found (%s); use --port to choose one",
			strings.Join(usb, ", "))
	}
}

// printPorts lists the serial ports with their USB identity. Where the
// detailed enumerator is unavailable, the bare port names are shown.
func printPorts(w io.Writer, colors palette) error {
	ports, err := listPorts()
	if err != nil {
		names, plainErr := loggerprotocol.ListPorts()
		if plainErr != nil {
			return fmt.Errorf("list serial ports: %w", err)
		}
		for _, name := range names {
			ports = append(ports, &enumerator.PortDetails{Name: name})
		}
	}
	writePorts(w, colors, ports)
	return nil
}

func writePorts(w io.Writer, colors palette, ports []*enumerator.PortDetails) {
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	for _, p := range ports {
		if !p.IsUSB {
			fmt.Fprintf(w, "  %s\n", p.Name)
			continue
		}
		line := fmt.Sprintf("  %-16s USB %s:%s", p.Name, p.VID, p.PID)
		if p.Product != "" {
			line += "  " + p.Product
		}
		if p.SerialNumber != "" {
			line += "  S/N " + p.SerialNumber
		}
		fmt.Fprintln(w, colors.highlight.Sprint(line))
	}
}
