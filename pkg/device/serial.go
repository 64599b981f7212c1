package device

import (
	"fmt"
	"io"
	"log"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the reference firmware.
	DefaultBaudRate = 9600
	// DefaultReadTimeout bounds a blocking read so the reader can observe cancellation.
	DefaultReadTimeout = 100 * time.Millisecond
)

// Serial opens a serial port.
type Serial struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// NewSerial creates a serial transport with the specified port and baud rate.
func NewSerial(port string, baudRate int, readTimeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Serial{
		Port:        port,
		BaudRate:    baudRate,
		ReadTimeout: readTimeout,
	}
}

// Open opens the port. Reads time out after ReadTimeout with (0, nil).
func (s *Serial) Open() (io.ReadWriteCloser, error) {
	if s.Port == "" {
		return nil, fmt.Errorf("serial port not set")
	}

	mode := &serial.Mode{
		BaudRate: s.BaudRate,
	}

	port, err := serial.Open(s.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", s.Port, err)
	}

	if s.ReadTimeout > 0 {
		if err := port.SetReadTimeout(s.ReadTimeout); err != nil {
			if cerr := port.Close(); cerr != nil {
				log.Printf("Error closing serial port: %v", cerr)
			}
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", s.Port, err)
		}
	}

	log.Printf("Opened serial port %s at %d baud", s.Port, s.BaudRate)
	return port, nil
}

func (s *Serial) String() string {
	return fmt.Sprintf("%s@%d", s.Port, s.BaudRate)
}
