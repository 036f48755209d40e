package wave64

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

// readBlockSamples bounds the scratch buffer used by Read.
const readBlockSamples = 4096

var errNilSource = errors.New("can't read from a nil source")

// Reader gives sample-accurate access to the data chunk of a validated RIFF
// or RF64 WAVE file.
type Reader struct {
	l      *loader
	format FileFormat
	kind   ContainerKind
	begin  int64
	end    int64
	chunks []ChunkInfo

	decode  func([]byte) float32
	scratch []byte
}

// NewReaderBytes parses an in-memory WAVE file.
func NewReaderBytes(b []byte, opts ...Option) (*Reader, error) {
	return NewReader(bytes.NewReader(b), opts...)
}

// NewReader walks every chunk of r, validates the container and positions the
// reader at the first frame. On any violation no Reader is returned.
// The whole source, from offset zero to its end, must be the WAVE file.
func NewReader(r io.ReadSeeker, opts ...Option) (*Reader, error) {
	if r == nil {
		return nil, errNilSource
	}

	l, err := newLoader(r)
	if err != nil {
		return nil, err
	}

	p := &parser{l: l, opts: buildOptions(opts)}

	return p.parse()
}

type parser struct {
	l    *loader
	opts options
	cont container

	format   *FileFormat
	haveData bool
	begin    int64
	end      int64
	chunks   []ChunkInfo
}

func (p *parser) parse() (*Reader, error) {
	id, err := p.l.loadID()
	if err != nil {
		return nil, fmt.Errorf("failed to read RIFF id: %w", err)
	}

	size, err := p.l.loadU32()
	if err != nil {
		return nil, fmt.Errorf("failed to read RIFF size: %w", err)
	}

	formatID, err := p.l.loadID()
	if err != nil {
		return nil, fmt.Errorf("failed to read RIFF format: %w", err)
	}

	if formatID != riff.WavFormatID {
		return nil, fmt.Errorf("%w: format %q is not WAVE", ErrMalformedContainer, formatID[:])
	}

	p.cont, err = classifyContainer(id, size, p.l.len(), p.opts.standardSizes)
	if err != nil {
		return nil, err
	}

	for !p.l.atEnd() {
		err := p.nextChunk()
		if err != nil {
			return nil, err
		}
	}

	return p.finish()
}

func (p *parser) nextChunk() error {
	offset := p.l.pos()

	id, err := p.l.loadID()
	if err != nil {
		return fmt.Errorf("error reading chunk header - %w", err)
	}

	size, err := p.l.loadU32()
	if err != nil {
		return fmt.Errorf("error reading %q chunk size - %w", id[:], err)
	}

	p.chunks = append(p.chunks, ChunkInfo{ID: id, Offset: offset, Size: size})

	switch classifyChunk(id) {
	case chunkDS64:
		err = p.readDS64(size)
	case chunkFmt:
		err = p.readFmt(size)
	case chunkData:
		err = p.readData(size)
	default:
		err = p.skipChunk(id, size)
	}

	return err
}

func (p *parser) readDS64(size uint32) error {
	if p.cont.kind != RF64 {
		return fmt.Errorf("%w: ds64 chunk in a RIFF file", ErrMalformedContainer)
	}

	if p.cont.ds64 != nil {
		return fmt.Errorf("%w: duplicate ds64 chunk", ErrMalformedContainer)
	}

	end := p.l.pos() + int64(size)

	fileSize, err := p.l.loadU64()
	if err != nil {
		return fmt.Errorf("failed to read ds64 file size: %w", err)
	}

	dataSize, err := p.l.loadU64()
	if err != nil {
		return fmt.Errorf("failed to read ds64 data size: %w", err)
	}

	sampleCount, err := p.l.loadU64()
	if err != nil {
		return fmt.Errorf("failed to read ds64 sample count: %w", err)
	}

	total := uint64(p.l.len())
	if fileSize != total && !(p.opts.standardSizes && fileSize == total-chunkHeaderSize) {
		return fmt.Errorf("%w: ds64 file size %d, source length %d", ErrSizeMismatch, fileSize, total)
	}

	p.cont.ds64 = &ds64Sizes{dataSize: dataSize, sampleCount: sampleCount}

	return p.seekChunkEnd("ds64", end)
}

func (p *parser) readFmt(size uint32) error {
	end := p.l.pos() + int64(size)

	formatTag, err := p.l.loadU16()
	if err != nil {
		return fmt.Errorf("failed to read wav format: %w", err)
	}

	numChannels, err := p.l.loadU16()
	if err != nil {
		return fmt.Errorf("failed to read channels: %w", err)
	}

	sampleRate, err := p.l.loadU32()
	if err != nil {
		return fmt.Errorf("failed to read sample rate: %w", err)
	}

	avgBytesPerSec, err := p.l.loadU32()
	if err != nil {
		return fmt.Errorf("failed to read avg bytes/sec: %w", err)
	}

	align, err := p.l.loadU16()
	if err != nil {
		return fmt.Errorf("failed to read block align: %w", err)
	}

	bitDepth, err := p.l.loadU16()
	if err != nil {
		return fmt.Errorf("failed to read bit depth: %w", err)
	}

	if uint64(avgBytesPerSec) != byteRate(sampleRate, numChannels, bitDepth) {
		return fmt.Errorf("%w: fmt byte rate %d, expected %d", ErrSizeMismatch,
			avgBytesPerSec, byteRate(sampleRate, numChannels, bitDepth))
	}

	if uint64(align) != blockAlign(numChannels, bitDepth) {
		return fmt.Errorf("%w: fmt block align %d, expected %d", ErrSizeMismatch,
			align, blockAlign(numChannels, bitDepth))
	}

	sample, err := SampleFor(AudioFormat(formatTag), bitDepth)
	if err != nil {
		return err
	}

	if numChannels == 0 {
		return fmt.Errorf("%w: fmt chunk declares zero channels", ErrMalformedContainer)
	}

	p.format = &FileFormat{sample: sample, numChannels: numChannels, sampleRate: sampleRate}

	return p.seekChunkEnd("fmt", end)
}

func (p *parser) readData(size uint32) error {
	begin := p.l.pos()

	var dataSize uint64

	switch {
	case size != sizeSentinel:
		dataSize = uint64(size)
	case p.cont.kind == Riff:
		return fmt.Errorf("%w: RF64 data size sentinel in a RIFF file", ErrMalformedContainer)
	case p.cont.ds64 == nil:
		return fmt.Errorf("%w: data chunk precedes ds64", ErrMalformedContainer)
	default:
		dataSize = p.cont.ds64.dataSize
	}

	if dataSize > uint64(p.l.len()-begin) {
		return fmt.Errorf("%w: data chunk of %d bytes exceeds the source", ErrMalformedContainer, dataSize)
	}

	p.begin = begin
	p.end = begin + int64(dataSize)
	p.haveData = true

	if err := p.l.seek(p.end); err != nil {
		return fmt.Errorf("%w: data: %w", ErrMalformedContainer, err)
	}

	p.skipPad(dataSize)

	return nil
}

func (p *parser) skipChunk(id [4]byte, size uint32) error {
	err := p.l.skip(int64(size))
	if errors.Is(err, errCursorRange) {
		return fmt.Errorf("%w: %q chunk exceeds the source", ErrMalformedContainer, id[:])
	}

	if err != nil {
		return err
	}

	p.skipPad(uint64(size))

	return nil
}

// skipPad steps over the word-alignment byte that follows odd-sized chunks in
// conventionally written files.
func (p *parser) skipPad(size uint64) {
	if !p.opts.standardSizes || size%2 == 0 || p.l.atEnd() {
		return
	}

	p.l.skip(1)
}

func (p *parser) seekChunkEnd(name string, end int64) error {
	if p.l.pos() > end {
		return fmt.Errorf("%w: %s body overruns its declared size", ErrMalformedContainer, name)
	}

	err := p.l.seek(end)
	if errors.Is(err, errCursorRange) {
		return fmt.Errorf("%w: %s chunk exceeds the source", ErrMalformedContainer, name)
	}

	return err
}

func (p *parser) finish() (*Reader, error) {
	if p.format == nil {
		return nil, fmt.Errorf("%w: fmt", ErrMissingChunk)
	}

	if !p.haveData {
		return nil, fmt.Errorf("%w: data", ErrMissingChunk)
	}

	length := p.end - p.begin
	frameSize := p.format.FrameSize()

	if length%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d data bytes are not a multiple of the %d byte frame",
			ErrSizeMismatch, length, frameSize)
	}

	if p.cont.ds64 != nil && p.cont.ds64.sampleCount != uint64(length/frameSize) {
		return nil, fmt.Errorf("%w: ds64 sample count %d, data holds %d frames",
			ErrSizeMismatch, p.cont.ds64.sampleCount, length/frameSize)
	}

	decode, err := sampleDecodeFunc(p.format.sample)
	if err != nil {
		return nil, err
	}

	if err := p.l.seek(p.begin); err != nil {
		return nil, err
	}

	return &Reader{
		l:      p.l,
		format: *p.format,
		kind:   p.cont.kind,
		begin:  p.begin,
		end:    p.end,
		chunks: p.chunks,
		decode: decode,
	}, nil
}

// Format returns the validated file format.
func (r *Reader) Format() FileFormat {
	return r.format
}

// AudioFormat returns the go-audio view of the file format.
func (r *Reader) AudioFormat() *audio.Format {
	if r == nil {
		return nil
	}

	return r.format.AudioFormat()
}

// Container reports whether the file is a RIFF or an RF64 container.
func (r *Reader) Container() ContainerKind {
	return r.kind
}

// DataRange returns the half-open byte range of the sample frames.
func (r *Reader) DataRange() (begin, end int64) {
	return r.begin, r.end
}

// Chunks returns the headers of every chunk in file order.
func (r *Reader) Chunks() []ChunkInfo {
	if r == nil {
		return nil
	}

	return cloneChunkInfos(r.chunks)
}

// Len returns the number of frames in the data chunk.
func (r *Reader) Len() int64 {
	return (r.end - r.begin) / r.format.FrameSize()
}

// Pos returns the cursor position in samples, not frames, from the start of
// the data.
func (r *Reader) Pos() int64 {
	return (r.l.pos() - r.begin) / int64(r.format.sample.Depth())
}

// Duration returns the playback time of the data chunk.
func (r *Reader) Duration() time.Duration {
	if r == nil {
		return 0
	}

	return framesDuration(r.Len(), r.format.sampleRate)
}

// SeekFrame moves the cursor to frame n.
func (r *Reader) SeekFrame(n int64) error {
	if n < 0 || n > r.Len() {
		return fmt.Errorf("%w: seek to frame %d of %d", ErrOutOfBounds, n, r.Len())
	}

	return r.moveTo(r.begin + n*r.format.FrameSize())
}

// Skip moves the cursor n frames forward.
func (r *Reader) Skip(n int64) error {
	if n < 0 || n > r.Len() {
		return fmt.Errorf("%w: skip %d frames", ErrOutOfBounds, n)
	}

	return r.moveTo(r.l.pos() + n*r.format.FrameSize())
}

// Rewind moves the cursor n frames backward.
func (r *Reader) Rewind(n int64) error {
	if n < 0 || n > r.Len() {
		return fmt.Errorf("%w: rewind %d frames", ErrOutOfBounds, n)
	}

	return r.moveTo(r.l.pos() - n*r.format.FrameSize())
}

func (r *Reader) moveTo(target int64) error {
	if target < r.begin || target > r.end {
		return fmt.Errorf("%w: byte offset %d outside [%d, %d]", ErrOutOfBounds, target, r.begin, r.end)
	}

	return r.l.seek(target)
}

// remaining returns the number of whole samples left before the data end.
func (r *Reader) remaining() int64 {
	return (r.end - r.l.pos()) / int64(r.format.sample.Depth())
}

// Read decodes exactly len(to) samples at the cursor and advances past them.
// If fewer samples remain in the data chunk, nothing is read and the cursor
// does not move.
func (r *Reader) Read(to []float32) error {
	if int64(len(to)) > r.remaining() {
		return fmt.Errorf("%w: %d samples requested, %d remain", ErrOutOfBounds, len(to), r.remaining())
	}

	start := r.l.pos()
	depth := r.format.sample.Depth()

	for len(to) > 0 {
		n := min(len(to), readBlockSamples)

		if cap(r.scratch) < n*depth {
			r.scratch = make([]byte, readBlockSamples*depth)
		}

		raw := r.scratch[:n*depth]

		err := r.l.load(raw)
		if err != nil {
			r.l.seek(start)
			return fmt.Errorf("failed to read samples: %w", err)
		}

		decodeSamples(r.decode, depth, to[:n], raw)
		to = to[n:]
	}

	return nil
}

// ReadBuffer fills buf.Data with as many samples as remain, up to its length,
// and returns how many were decoded. It returns io.EOF once the cursor sits at
// the end of the data chunk.
func (r *Reader) ReadBuffer(buf *audio.Float32Buffer) (int, error) {
	if buf == nil {
		return 0, nil
	}

	buf.Format = r.format.AudioFormat()
	buf.SourceBitDepth = int(r.format.sample.BitDepth())

	left := r.remaining()
	if left == 0 && len(buf.Data) > 0 {
		return 0, io.EOF
	}

	n := int(min(int64(len(buf.Data)), left))

	err := r.Read(buf.Data[:n])
	if err != nil {
		return 0, err
	}

	return n, nil
}

// FullBuffer decodes every sample from the cursor to the end of the data
// chunk. The whole region is held in memory.
func (r *Reader) FullBuffer() (*audio.Float32Buffer, error) {
	buf := &audio.Float32Buffer{
		Data:           make([]float32, r.remaining()),
		Format:         r.format.AudioFormat(),
		SourceBitDepth: int(r.format.sample.BitDepth()),
	}

	err := r.Read(buf.Data)
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// String implements the Stringer interface.
func (r *Reader) String() string {
	return fmt.Sprintf("Format: %s %s - %d frames - Duration: %s", r.kind, r.format, r.Len(), r.Duration())
}
