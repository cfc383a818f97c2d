package parser

// v2State tags which of the run-length state machine's states the parser is
// currently in (spec §4.1.2).
type v2State int

const (
	v2Idle v2State = iota
	v2Zero
	v2Average
	v2DataOutsideGroup
	v2DataInGroup
)

const (
	headerValidMask = 1 << 31
	headerKindMask  = 1 << 30
	headerTimeMask  = 0x3fff_ffff

	groupHasSeqMask  = 1 << 30
	groupSeqMask     = 0x3fff
	groupSeqShift    = 16
	groupBinMask     = 0xffff
	sequenceModulo   = 1 << 14
)

// V2Parser parses the compact 4-byte-per-sample run-length format (spec
// §4.1.2). It supports up to 16-bit bin indices and a configurable FFT size.
type V2Parser struct {
	fftSize int

	state     v2State
	timestamp uint32
	bins      []ComplexI16
	averages  []uint32

	haveExpectedSeq bool
	expectedSeq     uint16
}

// NewV2 creates a v2 parser for the given compression FFT size.
func NewV2(fftSize int) *V2Parser {
	return &V2Parser{fftSize: fftSize, state: v2Idle}
}

func (p *V2Parser) SampleBytes() int { return 4 }

func (p *V2Parser) Parse(raw []byte) (*Window, error) {
	if len(raw) != 4 {
		err := &ParseError{Msg: "wrong sample length for v2"}
		logParseError(err)
		return nil, err
	}
	word := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	return p.accept(word)
}

func isValidHeader(word uint32) bool {
	return word&headerValidMask != 0
}

func isDataHeader(word uint32) bool {
	// bit30 == 0 selects Data, 1 selects Average.
	return word&headerKindMask == 0
}

func headerTimestamp(word uint32) uint32 {
	return word & headerTimeMask
}

func (p *V2Parser) accept(word uint32) (*Window, error) {
	switch p.state {
	case v2Idle:
		if word == 0 {
			p.state = v2Zero
		}
		return nil, nil

	case v2Zero:
		if isValidHeader(word) {
			p.enterHeaderState(word)
		} else {
			p.state = v2Idle
		}
		return nil, nil

	case v2Average:
		if len(p.averages) != p.fftSize {
			p.averages = append(p.averages, word)
			return nil, nil
		}
		if word != 0 {
			err := &ParseError{Msg: "non-zero word after average window filled"}
			logParseError(err)
			p.reset()
			return nil, err
		}
		win := &Window{Timestamp: p.timestamp, Kind: Average, Averages: p.averages}
		p.state = v2Zero
		p.averages = nil
		return win, nil

	case v2DataOutsideGroup:
		if isValidHeader(word) {
			p.zeroPadBins(p.fftSize)
			win := &Window{Timestamp: p.timestamp, Kind: Data, Bins: p.bins}
			p.bins = nil
			if p.haveExpectedSeq {
				p.expectedSeq = (p.expectedSeq + 1) % sequenceModulo
			}
			p.enterHeaderState(word)
			return win, nil
		}
		return p.acceptGroupHeader(word)

	case v2DataInGroup:
		if word != 0 {
			if len(p.bins) == p.fftSize {
				err := &ParseError{Msg: "bin value received after all bins filled"}
				logParseError(err)
				p.reset()
				return nil, err
			}
			real := int16(word >> 16)
			imag := int16(word & 0xffff)
			p.bins = append(p.bins, ComplexI16{Real: real, Imag: imag})
			return nil, nil
		}
		p.state = v2DataOutsideGroup
		return nil, nil
	}
	return nil, nil
}

func (p *V2Parser) enterHeaderState(word uint32) {
	p.timestamp = headerTimestamp(word)
	if isDataHeader(word) {
		p.state = v2DataOutsideGroup
		p.bins = make([]ComplexI16, 0, p.fftSize)
	} else {
		p.state = v2Average
		p.averages = make([]uint32, 0, p.fftSize)
	}
}

func (p *V2Parser) acceptGroupHeader(word uint32) (*Window, error) {
	hasSeq := word&groupHasSeqMask != 0
	seq := uint16((word >> groupSeqShift) & groupSeqMask)
	binIndex := int(word & groupBinMask)

	if hasSeq {
		if !p.haveExpectedSeq {
			p.haveExpectedSeq = true
			p.expectedSeq = seq
		} else if p.expectedSeq != seq {
			err := &ParseError{Msg: "v2 window sequence number mismatch"}
			logParseError(err)
			p.haveExpectedSeq = false
			p.reset()
			return nil, err
		}
	}

	if binIndex < len(p.bins) {
		err := &ParseError{Msg: "v2 group start bin not past current fill length"}
		logParseError(err)
		p.reset()
		return nil, err
	}
	if binIndex >= p.fftSize {
		err := &ParseError{Msg: "v2 group start bin out of range"}
		logParseError(err)
		p.reset()
		return nil, err
	}

	p.zeroPadBins(binIndex)
	p.state = v2DataInGroup
	return nil, nil
}

func (p *V2Parser) zeroPadBins(upTo int) {
	for len(p.bins) < upTo {
		p.bins = append(p.bins, ComplexI16{})
	}
}

func (p *V2Parser) reset() {
	p.state = v2Idle
	p.bins = nil
	p.averages = nil
}
