package wave64

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

const (
	maxPCMUint8 = 255
	maxPCMInt16 = 32767
	minPCMInt16 = -32768
	maxPCMInt24 = 8388607
	minPCMInt24 = -8388608
	maxPCMInt32 = 2147483647
	minPCMInt32 = -2147483648

	scaleU8Decode  float32 = 2.0 / maxPCMUint8
	scaleU8Encode  float32 = maxPCMUint8 / 2.0
	scaleI24Decode float32 = 1.0 / maxPCMInt24
	scaleI32Decode float32 = 1.0 / maxPCMInt32
)

// sampleDecodeFunc returns a function converting one raw little-endian
// sample of the given encoding into a normalized float32. The passed slice
// must hold at least s.Depth() bytes.
func sampleDecodeFunc(s Sample) (func([]byte) float32, error) {
	switch s {
	case U8:
		return func(b []byte) float32 {
			return float32(b[0])*scaleU8Decode - 1.0
		}, nil
	case I16:
		return func(b []byte) float32 {
			return float32(int16(binary.LittleEndian.Uint16(b))) / maxPCMInt16
		}, nil
	case I24:
		return func(b []byte) float32 {
			return float32(audio.Int24LETo32(b[:3])) * scaleI24Decode
		}, nil
	case I32:
		return func(b []byte) float32 {
			return float32(int32(binary.LittleEndian.Uint32(b))) * scaleI32Decode
		}, nil
	case F32:
		return func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}, nil
	case F64:
		return func(b []byte) float32 {
			return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, s)
	}
}

// sampleEncodeFunc returns a function storing a normalized float32 as one raw
// little-endian sample. Integer encodings truncate toward zero and saturate
// at the limits of the target type.
func sampleEncodeFunc(s Sample) (func([]byte, float32), error) {
	switch s {
	case U8:
		return func(b []byte, v float32) {
			b[0] = uint8(truncate((v+1.0)*scaleU8Encode, 0, maxPCMUint8))
		}, nil
	case I16:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint16(b, uint16(int16(truncate(v*maxPCMInt16, minPCMInt16, maxPCMInt16))))
		}, nil
	case I24:
		return func(b []byte, v float32) {
			u := uint32(int32(truncate(v*maxPCMInt24, minPCMInt24, maxPCMInt24)))
			b[0], b[1], b[2] = byte(u), byte(u>>8), byte(u>>16)
		}, nil
	case I32:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint32(b, uint32(int32(truncate(v*maxPCMInt32, minPCMInt32, maxPCMInt32))))
		}, nil
	case F32:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		}, nil
	case F64:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, s)
	}
}

// truncate converts x to an integer rounding toward zero, saturating at
// [lo, hi]. NaN maps to zero.
func truncate(x float32, lo, hi int64) int64 {
	switch {
	case math.IsNaN(float64(x)):
		return 0
	case float64(x) >= float64(hi):
		return hi
	case float64(x) <= float64(lo):
		return lo
	default:
		return int64(x)
	}
}

// decodeSamples decodes len(dst) samples from src.
func decodeSamples(decode func([]byte) float32, depth int, dst []float32, src []byte) {
	for i := range dst {
		dst[i] = decode(src[i*depth:])
	}
}

// encodeSamples encodes src into dst, which must hold len(src)*depth bytes.
func encodeSamples(encode func([]byte, float32), depth int, dst []byte, src []float32) {
	for i, v := range src {
		encode(dst[i*depth:], v)
	}
}
