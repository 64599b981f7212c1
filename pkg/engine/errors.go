package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// TransportError is an open, read or close failure of the device stream.
// A read failure disconnects the engine.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StateError rejects an operation that is illegal in the current state.
// The state is left unchanged.
type StateError struct {
	Op      string
	Stream  StreamState
	Capture CaptureState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s/%s", e.Op, e.Stream, e.Capture)
}

// ExportError is an upload failure of an already finalized session.
// The session and its samples are kept.
type ExportError struct {
	Session uuid.UUID
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export of session %s failed: %v", e.Session, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
