package engine

// StreamState is the connection state of the device stream.
type StreamState int

const (
	Disconnected StreamState = iota
	Connecting
	Connected
)

func (s StreamState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// CaptureState is the recording state. It is only meaningful while Connected
// and always Idle otherwise.
type CaptureState int

const (
	Idle CaptureState = iota
	Recording
	Paused
)

func (c CaptureState) String() string {
	switch c {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// GraphType selects how series are drawn.
type GraphType string

const (
	GraphLine GraphType = "line"
	GraphDot  GraphType = "dot"
	GraphBar  GraphType = "bar"
)

// Valid reports whether g is a known graph type.
func (g GraphType) Valid() bool {
	switch g {
	case GraphLine, GraphDot, GraphBar:
		return true
	}
	return false
}
