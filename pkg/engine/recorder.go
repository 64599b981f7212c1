package engine

import (
	"bytes"
	"context"
	"log"
	"time"

	"github.com/itohio/golivegraph/pkg/session"
)

// exportTimeout bounds uploads of sessions finalized by a disconnect.
const exportTimeout = time.Minute

// StartRecording creates a new session. It is only valid while connected
// and idle; otherwise a *StateError is returned and no session is created.
func (e *Engine) StartRecording() error {
	e.mu.Lock()
	if e.stream != Connected || e.capture != Idle {
		err := e.stateErrorLocked("start recording")
		e.mu.Unlock()
		return err
	}
	s := session.New(e.cfg.Export.FilePrefix, e.opts.Now())
	e.session = s
	e.capture = Recording
	e.mu.Unlock()

	log.Printf("Recording started: session %s", s.ID)
	e.notifyState()
	return nil
}

// PauseRecording stops appending samples to the session. Live display continues.
func (e *Engine) PauseRecording() error {
	return e.transition("pause recording", Recording, Paused)
}

// ResumeRecording continues appending samples to the paused session.
func (e *Engine) ResumeRecording() error {
	return e.transition("resume recording", Paused, Recording)
}

func (e *Engine) transition(op string, from, to CaptureState) error {
	e.mu.Lock()
	if e.stream != Connected || e.capture != from {
		err := e.stateErrorLocked(op)
		e.mu.Unlock()
		return err
	}
	e.capture = to
	e.mu.Unlock()

	log.Printf("Recording %s", to)
	e.notifyState()
	return nil
}

// StopRecording finalizes the session and uploads it. A failed upload
// returns the finalized session together with an *ExportError; the session
// is not rolled back.
func (e *Engine) StopRecording(ctx context.Context) (*session.Session, error) {
	e.mu.Lock()
	if e.capture == Idle {
		err := e.stateErrorLocked("stop recording")
		e.mu.Unlock()
		return nil, err
	}
	s, names := e.finalizeLocked()
	e.mu.Unlock()

	e.notifyState()
	return s, e.export(ctx, s, names)
}

// Session returns the active session, or nil while idle.
func (e *Engine) Session() *session.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// finalizeLocked ends the active session, if any, and returns it with the
// channel names at the time of finalization. Caller holds mu.
func (e *Engine) finalizeLocked() (*session.Session, []string) {
	s := e.session
	e.session = nil
	e.capture = Idle
	if s == nil {
		return nil, nil
	}

	s.Finalize(e.opts.Now())
	channels := e.store.Channels()
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.Name
	}

	e.opts.Metrics.SessionFinalized()
	log.Printf("Recording stopped: session %s, %d samples", s.ID, s.Len())
	return s, names
}

// export writes s as delimited text and hands it to the uploader. The
// outcome is attached to the session.
func (e *Engine) export(ctx context.Context, s *session.Session, names []string) error {
	var buf bytes.Buffer
	if err := s.WriteCSV(&buf, names, e.cfg.Framing.FieldDelimiter); err != nil {
		return e.exportFailed(s, err)
	}

	name := session.FileName(e.cfg.Export.FilePrefix, s.Start)
	location, err := e.opts.Uploader.Upload(ctx, buf.Bytes(), name, e.cfg.Export.Folder)
	if err != nil {
		return e.exportFailed(s, err)
	}

	s.SetExport(location, nil)
	if location != "" {
		log.Printf("Session %s exported to %s", s.ID, location)
	}
	return nil
}

func (e *Engine) exportFailed(s *session.Session, err error) error {
	eerr := &ExportError{Session: s.ID, Err: err}
	s.SetExport("", eerr)
	e.opts.Metrics.ExportFailed()
	log.Printf("Export failed: %v", eerr)
	return eerr
}

// exportAsync exports s in the background. The caller has already added s
// to e.exports.
func (e *Engine) exportAsync(s *session.Session, names []string) {
	go func() {
		defer e.exports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		if err := e.export(ctx, s, names); err != nil {
			e.warn(err)
		}
	}()
}
