// Package session holds one recording of accepted samples.
package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/itohio/golivegraph/pkg/sample"
)

// TimeFormat is the timestamp layout of exported rows.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Session is one recording. It accumulates samples until Finalize and is
// read-only afterwards, except for the export result attached later.
type Session struct {
	ID    uuid.UUID
	Name  string
	Start time.Time

	mu        sync.RWMutex
	end       time.Time
	samples   []sample.Sample
	location  string
	exportErr error
}

// New starts a session at start.
func New(name string, start time.Time) *Session {
	return &Session{
		ID:    uuid.New(),
		Name:  name,
		Start: start,
	}
}

// Append adds a sample. It reports false once the session is finalized.
func (s *Session) Append(smp sample.Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.end.IsZero() {
		return false
	}
	s.samples = append(s.samples, smp)
	return true
}

// Finalize sets the end timestamp. Only the first call has an effect.
func (s *Session) Finalize(end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.end.IsZero() {
		s.end = end
	}
}

// Active reports whether the session still accepts samples.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.end.IsZero()
}

// End returns the end timestamp, zero while active.
func (s *Session) End() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.end
}

// Duration returns the recording length up to now, or up to End once finalized.
func (s *Session) Duration(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.end.IsZero() {
		return s.end.Sub(s.Start)
	}
	return now.Sub(s.Start)
}

// Len returns the number of recorded samples.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Samples returns a copy of the recorded samples.
func (s *Session) Samples() []sample.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]sample.Sample, len(s.samples))
	copy(result, s.samples)
	return result
}

// SetExport records the outcome of handing the session to an uploader.
func (s *Session) SetExport(location string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = location
	s.exportErr = err
}

// Location returns where the session was exported, if anywhere.
func (s *Session) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// ExportErr returns the export failure, if any.
func (s *Session) ExportErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exportErr
}

// WriteCSV writes a header row of "timestamp" and names followed by one row
// per sample. Missing values are left empty.
func (s *Session) WriteCSV(w io.Writer, names []string, delimiter string) error {
	cw := csv.NewWriter(w)
	if delimiter != "" {
		r, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) {
			return fmt.Errorf("delimiter %q must be a single character", delimiter)
		}
		cw.Comma = r
	}

	header := make([]string, 0, len(names)+1)
	header = append(header, "timestamp")
	header = append(header, names...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	samples := s.Samples()
	row := make([]string, len(header))
	for _, smp := range samples {
		row[0] = smp.Timestamp.UTC().Format(TimeFormat)
		for i := range names {
			if v, ok := smp.Value(i); ok {
				row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				row[i+1] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FileName returns the export file name for a session started at start,
// as <prefix>_YYYY-MM-DD_HH-MM-SS.csv in local time.
func FileName(prefix string, start time.Time) string {
	if prefix == "" {
		prefix = "session"
	}
	return prefix + "_" + start.Format("2006-01-02_15-04-05") + ".csv"
}
