// Package frame decodes a delimited text stream into samples.
//
// Input arrives in chunks cut at arbitrary byte boundaries. The parser keeps
// the trailing incomplete frame as carry-over, so feeding a stream in any
// number of pieces yields the same samples as feeding it at once.
package frame

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/golivegraph/pkg/sample"
)

const (
	// DefaultChannels is the number of fields in a frame.
	DefaultChannels = 13
	// DefaultMaxCarry bounds the bytes held while waiting for a frame delimiter.
	DefaultMaxCarry = 64 * 1024
)

// Options configures a Parser.
type Options struct {
	Channels       int
	FrameDelimiter string
	FieldDelimiter string
	MaxCarry       int
	Now            func() time.Time // Arrival clock, time.Now if nil
}

// ParseError describes a discarded frame.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("discarded frame %q: %s", e.Line, e.Reason)
}

// Parser turns chunks of device text into samples.
// Parser is not safe for concurrent use.
type Parser struct {
	channels  int
	frameSep  []byte
	fieldSep  string
	maxCarry  int
	now       func() time.Time
	carry     []byte
	errors    int
	lastError error
	values    []float64
}

// NewParser creates a parser, filling unset options with defaults.
func NewParser(opts Options) *Parser {
	if opts.Channels <= 0 {
		opts.Channels = DefaultChannels
	}
	if opts.FrameDelimiter == "" {
		opts.FrameDelimiter = "\n"
	}
	if opts.FieldDelimiter == "" {
		opts.FieldDelimiter = ","
	}
	if opts.MaxCarry <= 0 {
		opts.MaxCarry = DefaultMaxCarry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Parser{
		channels: opts.Channels,
		frameSep: []byte(opts.FrameDelimiter),
		fieldSep: opts.FieldDelimiter,
		maxCarry: opts.MaxCarry,
		now:      opts.Now,
		values:   make([]float64, opts.Channels),
	}
}

// Feed appends chunk to the carry-over and returns the samples of every frame
// completed by it. Malformed frames are counted and dropped.
func (p *Parser) Feed(chunk []byte) []sample.Sample {
	if len(chunk) == 0 {
		return nil
	}
	p.carry = append(p.carry, chunk...)

	last := bytes.LastIndex(p.carry, p.frameSep)
	if last < 0 {
		p.limitCarry()
		return nil
	}

	complete := p.carry[:last]
	rest := p.carry[last+len(p.frameSep):]
	arrival := p.now()

	var out []sample.Sample
	for _, line := range bytes.Split(complete, p.frameSep) {
		if s, ok := p.parseLine(line, arrival); ok {
			out = append(out, s)
		}
	}

	// Copy the trailing incomplete frame so the old backing array can be released.
	p.carry = append([]byte(nil), rest...)
	p.limitCarry()

	return out
}

// Errors returns the number of discarded frames.
func (p *Parser) Errors() int {
	return p.errors
}

// LastError returns the most recent *ParseError, or nil.
func (p *Parser) LastError() error {
	return p.lastError
}

// Pending returns the number of bytes waiting for a frame delimiter.
func (p *Parser) Pending() int {
	return len(p.carry)
}

// Reset drops the carry-over. Error counters are kept.
func (p *Parser) Reset() {
	p.carry = nil
}

// limitCarry discards an oversized carry-over that can never become a valid frame.
func (p *Parser) limitCarry() {
	if len(p.carry) <= p.maxCarry {
		return
	}
	p.fail(string(p.carry[:min(32, len(p.carry))]), fmt.Sprintf("no frame delimiter within %d bytes", p.maxCarry))
	p.carry = nil
}

func (p *Parser) parseLine(raw []byte, arrival time.Time) (sample.Sample, bool) {
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return sample.Sample{}, false
	}

	fields := strings.Split(line, p.fieldSep)
	if len(fields) != p.channels {
		p.fail(line, fmt.Sprintf("expected %d fields, got %d", p.channels, len(fields)))
		return sample.Sample{}, false
	}

	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			p.fail(line, fmt.Sprintf("field %d: %v", i, err))
			return sample.Sample{}, false
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.fail(line, fmt.Sprintf("field %d is not finite", i))
			return sample.Sample{}, false
		}
		p.values[i] = v
	}

	return sample.New(arrival, p.values), true
}

func (p *Parser) fail(line, reason string) {
	p.errors++
	p.lastError = &ParseError{Line: line, Reason: reason}
}
