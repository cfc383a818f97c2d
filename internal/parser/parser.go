// Package parser implements the compressed-sample wire-format state
// machines (spec §4.1): the legacy 8-byte-per-sample v1 format (N210 and
// Pluto dialects) and the 4-byte-per-sample run-length v2 format.
package parser

import "log"

// WindowKind tags a parsed Window as carrying sparse frequency-domain bins
// or per-bin average magnitudes. Only Data windows propagate past the
// parser (spec §3).
type WindowKind int

const (
	Data WindowKind = iota
	Average
)

// ComplexI16 is a raw wire-format bin value, before scaling to [-1, 1].
type ComplexI16 struct {
	Real, Imag int16
}

// Window is a whole parsed window: a raw (pre-expansion) timestamp and
// either Bins (Data) or Averages (Average), selected by Kind.
type Window struct {
	Timestamp uint32
	Kind      WindowKind
	Bins      []ComplexI16
	Averages  []uint32
}

// ParseError reports a malformed wire sample. The parser has already reset
// itself and will resynchronize on the next valid header.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "sparsdr parser: " + e.Msg }

// Parser is implemented by each wire-format variant. parse never blocks,
// never retains the caller's buffer, and never panics on malformed input.
type Parser interface {
	// SampleBytes returns the wire sample size in bytes for this parser.
	SampleBytes() int
	// Parse consumes exactly SampleBytes() bytes and returns a whole window
	// if one was completed, or (nil, nil) if more samples are needed.
	Parse(sample []byte) (*Window, error)
}

// logParseError emits the one-line-per-error log required by spec §7.
func logParseError(err error) {
	log.Printf("ERROR: sparsdr parser: %v", err)
}
