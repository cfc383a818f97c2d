package parser

import "encoding/binary"

// sampleLen is the wire sample size for every v1 dialect.
const sampleLen = 8

// v1Sample is one decoded 8-byte wire sample, before being folded into the
// window currently being assembled.
type v1Sample struct {
	time       uint32
	index      uint16
	isAverage  bool
	real, imag int16
	magnitude  uint32
}

// v1Dialect extracts the (is_average, bin_index, low_time_bits, real, imag |
// magnitude) fields from one 8-byte wire sample (spec §6).
type v1Dialect func(b *[sampleLen]byte) v1Sample

// V1Parser parses the legacy 8-byte-per-sample format, in either its N210 or
// Pluto bit-layout dialect (spec §4.1.1). A window is assembled by
// accumulating wire samples that share a timestamp; a timestamp or kind
// change flushes the window in progress.
type V1Parser struct {
	fftSize int
	extract v1Dialect

	haveWindow bool
	current    Window
}

// NewV1N210 creates a parser for the USRP N210 dialect: 20-bit timestamp,
// 11-bit bin index, fft_index/time_low at bytes 0..4.
func NewV1N210(fftSize int) *V1Parser {
	return &V1Parser{fftSize: fftSize, extract: n210Extract}
}

// NewV1Pluto creates a parser for the Pluto dialect: 21-bit timestamp,
// 10-bit bin index, fft_index/time_low at bytes 4..8.
func NewV1Pluto(fftSize int) *V1Parser {
	return &V1Parser{fftSize: fftSize, extract: plutoExtract}
}

func (p *V1Parser) SampleBytes() int { return sampleLen }

func (p *V1Parser) Parse(raw []byte) (*Window, error) {
	if len(raw) != sampleLen {
		err := &ParseError{Msg: "wrong sample length for v1"}
		logParseError(err)
		return nil, err
	}
	var b [sampleLen]byte
	copy(b[:], raw)
	s := p.extract(&b)

	newWindow := p.newWindowFor(s)

	if !p.haveWindow {
		p.current = newWindow
		p.haveWindow = true
		return nil, nil
	}

	if p.current.Timestamp == s.time && sameKind(p.current.Kind, s) {
		p.applySample(&p.current, s)
		return nil, nil
	}

	// Timestamp changed, or the kind changed at the same timestamp (spec's
	// documented open question: treated as starting a new window at the
	// same timestamp, flushing the one in progress).
	finished := p.current
	p.current = newWindow
	return &finished, nil
}

func sameKind(k WindowKind, s v1Sample) bool {
	if s.isAverage {
		return k == Average
	}
	return k == Data
}

func (p *V1Parser) newWindowFor(s v1Sample) Window {
	w := Window{Timestamp: s.time}
	if s.isAverage {
		w.Kind = Average
		w.Averages = make([]uint32, p.fftSize)
	} else {
		w.Kind = Data
		w.Bins = make([]ComplexI16, p.fftSize)
	}
	p.applySample(&w, s)
	return w
}

func (p *V1Parser) applySample(w *Window, s v1Sample) {
	if s.isAverage {
		if int(s.index) < len(w.Averages) {
			w.Averages[s.index] = s.magnitude
		}
		return
	}
	if int(s.index) < len(w.Bins) {
		w.Bins[s.index] = ComplexI16{Real: s.real, Imag: s.imag}
	}
}

// n210Extract implements the N210 bit layout from spec §6:
// fft_index = u16LE(b0..2), time_low = u16LE(b2..4); is_average = bit15
// (fft_index), bin_index = bits4..14(fft_index); data payload real/imag at
// b4..8; average payload magnitude at b4..8 (big chunk first).
func n210Extract(b *[sampleLen]byte) v1Sample {
	fftIndex := binary.LittleEndian.Uint16(b[0:2])
	timeLow := binary.LittleEndian.Uint16(b[2:4])

	isAverage := (fftIndex>>15)&1 == 1
	index := (fftIndex >> 4) & 0x7ff
	time := uint32(timeLow) | (uint32(fftIndex&0xF) << 16)

	real := int16(binary.LittleEndian.Uint16(b[4:6]))
	imag := int16(binary.LittleEndian.Uint16(b[6:8]))
	moreSig := binary.LittleEndian.Uint16(b[4:6])
	lessSig := binary.LittleEndian.Uint16(b[6:8])
	magnitude := uint32(moreSig)<<16 | uint32(lessSig)

	return v1Sample{time: time, index: index, isAverage: isAverage, real: real, imag: imag, magnitude: magnitude}
}

// plutoExtract implements the Pluto dialect: the 8 bytes are in the
// opposite order (fft_index at b6..8) and the bin/time split is 10/5 bits.
func plutoExtract(b *[sampleLen]byte) v1Sample {
	fftIndex := binary.LittleEndian.Uint16(b[6:8])
	timeLow := binary.LittleEndian.Uint16(b[4:6])

	isAverage := (fftIndex>>15)&1 == 1
	index := (fftIndex >> 5) & 0x3ff
	time := uint32(timeLow) | (uint32(fftIndex&0x1F) << 16)

	real := int16(binary.LittleEndian.Uint16(b[2:4]))
	imag := int16(binary.LittleEndian.Uint16(b[0:2]))
	moreSig := binary.LittleEndian.Uint16(b[2:4])
	lessSig := binary.LittleEndian.Uint16(b[0:2])
	magnitude := uint32(moreSig)<<16 | uint32(lessSig)

	return v1Sample{time: time, index: index, isAverage: isAverage, real: real, imag: imag, magnitude: magnitude}
}
