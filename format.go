package wave64

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-audio/audio"
)

// AudioFormat is the format tag stored in the fmt chunk.
type AudioFormat uint16

const (
	// FormatPCM is linear integer PCM.
	FormatPCM AudioFormat = 1
	// FormatIEEEFloat is IEEE-754 floating point.
	FormatIEEEFloat AudioFormat = 3
)

func (f AudioFormat) String() string {
	switch f {
	case FormatPCM:
		return "PCM"
	case FormatIEEEFloat:
		return "IEEE float"
	default:
		return fmt.Sprintf("format tag %d", uint16(f))
	}
}

// Sample identifies one of the six supported on-disk sample encodings.
type Sample uint8

const (
	U8 Sample = iota + 1
	I16
	I24
	I32
	F32
	F64
)

var sampleNames = map[Sample]string{
	U8:  "U8",
	I16: "I16",
	I24: "I24",
	I32: "I32",
	F32: "F32",
	F64: "F64",
}

// SampleFor maps the (format tag, bit depth) pair stored in a fmt chunk to a
// Sample. Any pair other than the six supported ones is rejected.
func SampleFor(tag AudioFormat, bitDepth uint16) (Sample, error) {
	switch {
	case tag == FormatPCM && bitDepth == 8:
		return U8, nil
	case tag == FormatPCM && bitDepth == 16:
		return I16, nil
	case tag == FormatPCM && bitDepth == 24:
		return I24, nil
	case tag == FormatPCM && bitDepth == 32:
		return I32, nil
	case tag == FormatIEEEFloat && bitDepth == 32:
		return F32, nil
	case tag == FormatIEEEFloat && bitDepth == 64:
		return F64, nil
	default:
		return 0, fmt.Errorf("%w: %s with %d bits", ErrUnsupportedEncoding, tag, bitDepth)
	}
}

// ParseSample parses a sample name such as "i16" or "F32".
func ParseSample(name string) (Sample, error) {
	for s, n := range sampleNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown sample encoding %q", ErrUnsupportedEncoding, name)
}

// Valid reports whether s is one of the six supported encodings.
func (s Sample) Valid() bool {
	_, ok := sampleNames[s]
	return ok
}

// Depth returns the number of bytes a single sample occupies on disk.
func (s Sample) Depth() int {
	switch s {
	case U8:
		return 1
	case I16:
		return 2
	case I24:
		return 3
	case I32, F32:
		return 4
	case F64:
		return 8
	default:
		return 0
	}
}

// BitDepth returns the bits per sample written to the fmt chunk.
func (s Sample) BitDepth() uint16 {
	return uint16(s.Depth() * 8)
}

// AudioFormat returns the fmt chunk format tag of the encoding family.
func (s Sample) AudioFormat() AudioFormat {
	if s == F32 || s == F64 {
		return FormatIEEEFloat
	}

	return FormatPCM
}

func (s Sample) String() string {
	if n, ok := sampleNames[s]; ok {
		return n
	}

	return fmt.Sprintf("Sample(%d)", uint8(s))
}

// FileFormat describes the sample encoding, channel count and sample rate of
// a file. It is immutable once built.
type FileFormat struct {
	sample      Sample
	numChannels uint16
	sampleRate  uint32
}

// NewFileFormat validates and returns a FileFormat.
func NewFileFormat(sample Sample, numChannels uint16, sampleRate uint32) (FileFormat, error) {
	if !sample.Valid() {
		return FileFormat{}, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, sample)
	}

	if numChannels == 0 {
		return FileFormat{}, fmt.Errorf("%w: zero channels", errInvalidFormat)
	}

	if sampleRate == 0 {
		return FileFormat{}, fmt.Errorf("%w: zero sample rate", errInvalidFormat)
	}

	if byteRate(sampleRate, numChannels, sample.BitDepth()) > math.MaxUint32 ||
		blockAlign(numChannels, sample.BitDepth()) > math.MaxUint16 {
		return FileFormat{}, fmt.Errorf("%w: %d channels at %dHz overflow the fmt fields", errInvalidFormat, numChannels, sampleRate)
	}

	return FileFormat{sample: sample, numChannels: numChannels, sampleRate: sampleRate}, nil
}

// Sample returns the on-disk sample encoding.
func (f FileFormat) Sample() Sample { return f.sample }

// NumChannels returns the number of interleaved channels.
func (f FileFormat) NumChannels() uint16 { return f.numChannels }

// SampleRate returns the number of frames per second.
func (f FileFormat) SampleRate() uint32 { return f.sampleRate }

// ByteRate is sample_rate * channels * bits / 8, truncated.
func (f FileFormat) ByteRate() uint32 {
	return uint32(byteRate(f.sampleRate, f.numChannels, f.sample.BitDepth()))
}

// BlockAlign is channels * bits / 8, truncated.
func (f FileFormat) BlockAlign() uint16 {
	return uint16(blockAlign(f.numChannels, f.sample.BitDepth()))
}

// FrameSize is the number of bytes of one interleaved frame.
func (f FileFormat) FrameSize() int64 {
	return int64(f.sample.Depth()) * int64(f.numChannels)
}

// AudioFormat returns the go-audio view of the format.
func (f FileFormat) AudioFormat() *audio.Format {
	return &audio.Format{
		NumChannels: int(f.numChannels),
		SampleRate:  int(f.sampleRate),
	}
}

// byteRate and blockAlign are evaluated in 64 bits so that a fmt chunk whose
// fields would overflow never compares equal to a truncated value.
func byteRate(sampleRate uint32, numChannels, bitDepth uint16) uint64 {
	return uint64(sampleRate) * uint64(numChannels) * uint64(bitDepth) / 8
}

func blockAlign(numChannels, bitDepth uint16) uint64 {
	return uint64(numChannels) * uint64(bitDepth) / 8
}

func (f FileFormat) String() string {
	return fmt.Sprintf("%s %dHz %dch", f.sample, f.sampleRate, f.numChannels)
}
