package wave64

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

type testChunk struct {
	id   string
	size uint32
	data []byte
}

func newTestChunk(id string, data []byte) testChunk {
	return testChunk{id: id, size: uint32(len(data)), data: data}
}

func fmtBody(tag, channels uint16, rate, byteRate uint32, align, bits uint16) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:2], tag)
	binary.LittleEndian.PutUint16(b[2:4], channels)
	binary.LittleEndian.PutUint32(b[4:8], rate)
	binary.LittleEndian.PutUint32(b[8:12], byteRate)
	binary.LittleEndian.PutUint16(b[12:14], align)
	binary.LittleEndian.PutUint16(b[14:16], bits)

	return b
}

// validFmt returns a consistent fmt body for sample s.
func validFmt(s Sample, channels uint16, rate uint32) []byte {
	bits := s.BitDepth()

	return fmtBody(uint16(s.AudioFormat()), channels, rate,
		rate*uint32(channels)*uint32(bits)/8, channels*bits/8, bits)
}

// ds64Body returns a ds64 payload with an empty table; fileSize is patched by
// rf64File.
func ds64Body(dataSize, sampleCount uint64) []byte {
	b := make([]byte, 28)
	binary.LittleEndian.PutUint64(b[8:16], dataSize)
	binary.LittleEndian.PutUint64(b[16:24], sampleCount)

	return b
}

func assembleWav(id string, size uint32, chunks ...testChunk) []byte {
	var buf bytes.Buffer

	buf.WriteString(id)
	binary.Write(&buf, binary.LittleEndian, size)
	buf.WriteString("WAVE")

	for _, c := range chunks {
		buf.WriteString(c.id)
		binary.Write(&buf, binary.LittleEndian, c.size)
		buf.Write(c.data)
	}

	return buf.Bytes()
}

// riffFile assembles a RIFF file whose size field holds the total length.
func riffFile(chunks ...testChunk) []byte {
	b := assembleWav("RIFF", 0, chunks...)
	binary.LittleEndian.PutUint32(b[4:8], uint32(len(b)))

	return b
}

// rf64File assembles an RF64 file and patches the ds64 file size, if a ds64
// chunk is present, with the total length.
func rf64File(chunks ...testChunk) []byte {
	b := assembleWav("RF64", sizeSentinel, chunks...)

	if i := bytes.Index(b, []byte("ds64")); i >= 0 {
		binary.LittleEndian.PutUint64(b[i+8:i+16], uint64(len(b)))
	}

	return b
}

// memSink is an in-memory io.WriteSeeker.
type memSink struct {
	buf []byte
	pos int64
}

func (m *memSink) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		m.buf = append(m.buf, make([]byte, end-int64(len(m.buf)))...)
	}

	copy(m.buf[m.pos:end], p)
	m.pos = end

	return len(p), nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	var next int64

	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = m.pos + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	}

	if next < 0 {
		return 0, errNegativeSeek
	}

	m.pos = next

	return next, nil
}

func (m *memSink) Truncate(size int64) error {
	if size < 0 {
		return errNegativeSeek
	}

	if size <= int64(len(m.buf)) {
		m.buf = m.buf[:size]
	} else {
		m.buf = append(m.buf, make([]byte, size-int64(len(m.buf)))...)
	}

	return nil
}

func (m *memSink) Bytes() []byte {
	return append([]byte(nil), m.buf...)
}

var (
	errNegativeSeek = errors.New("negative seek")
	errSinkBroken   = errors.New("sink broken")
)

// nullSink tracks positions and length without storing anything.
type nullSink struct {
	pos  int64
	size int64
}

func (n *nullSink) Write(p []byte) (int, error) {
	n.pos += int64(len(p))
	n.size = max(n.size, n.pos)

	return len(p), nil
}

func (n *nullSink) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		n.pos = offset
	case io.SeekCurrent:
		n.pos += offset
	case io.SeekEnd:
		n.pos = n.size + offset
	}

	return n.pos, nil
}

// brokenSink fails every write once budget bytes have been accepted.
type brokenSink struct {
	memSink
	budget int
}

func (b *brokenSink) Write(p []byte) (int, error) {
	if len(p) > b.budget {
		return 0, errSinkBroken
	}

	b.budget -= len(p)

	return b.memSink.Write(p)
}

// brokenSource fails reads past a given offset.
type brokenSource struct {
	*bytes.Reader
	limit int64
}

func (b *brokenSource) Read(p []byte) (int, error) {
	pos, _ := b.Reader.Seek(0, io.SeekCurrent)
	if pos+int64(len(p)) > b.limit {
		return 0, errSinkBroken
	}

	return b.Reader.Read(p)
}

func float32ApproxEqual(value, expected, epsilon float32) bool {
	diff := value - expected
	if diff < 0 {
		diff = -diff
	}

	return diff <= epsilon
}
