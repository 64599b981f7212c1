// Package device opens byte streams to measurement devices.
package device

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transport opens a byte stream. Read returns a chunk or io.EOF at end of
// stream; a zero-length read with a nil error means no data yet.
type Transport interface {
	Open() (io.ReadWriteCloser, error)
}

// Ensure Serial implements Transport.
var _ Transport = (*Serial)(nil)

// Ensure Mock implements Transport.
var _ Transport = (*Mock)(nil)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}
