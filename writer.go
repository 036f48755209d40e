package wave64

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

const (
	writeBlockSamples = 4096

	riffDataStart = riffHeaderSize + fmtChunkSize + chunkHeaderSize
	rf64DataStart = riffHeaderSize + ds64ChunkSize + fmtChunkSize + chunkHeaderSize

	riffSizeOffset     = 4
	riffDataSizeOffset = riffDataStart - 4
	ds64FieldsOffset   = riffHeaderSize + chunkHeaderSize
)

var (
	errNilSink       = errors.New("can't write to a nil sink")
	errNilBuffer     = errors.New("can't add a nil buffer")
	errChannelLayout = errors.New("buffer channel count doesn't match the file")
)

// Writer streams normalized samples into a RIFF or RF64 WAVE file. The header
// is written when the Writer is created and its size fields are patched by
// Finalize and Close from the furthest position ever reached.
type Writer struct {
	s      *saver
	kind   ContainerKind
	format FileFormat
	opts   options

	// maxPos is the high-water mark of every write, seek and skip.
	maxPos int64
	// dirty is set when the header no longer matches maxPos.
	dirty  bool
	closed bool
	err    error

	encode  func([]byte, float32)
	scratch []byte
}

// NewWriter writes a provisional RIFF header for format to w and returns a
// Writer positioned at the first frame. Bytes already in w past the final file
// size are cut on finalize when w has a Truncate(int64) error method, as
// *os.File does; any other sink must start empty.
func NewWriter(w io.WriteSeeker, format FileFormat, opts ...Option) (*Writer, error) {
	return newWriter(w, format, Riff, opts)
}

// NewRF64Writer is like NewWriter but emits an RF64 container with a ds64
// chunk, for files that may grow past 4 GiB.
func NewRF64Writer(w io.WriteSeeker, format FileFormat, opts ...Option) (*Writer, error) {
	return newWriter(w, format, RF64, opts)
}

// WithWriter creates a Writer of the given kind, hands it to fn and closes it
// on every exit path, including a panic in fn. Errors from fn and from the
// final header patch are both reported.
func WithWriter(w io.WriteSeeker, format FileFormat, kind ContainerKind, fn func(*Writer) error, opts ...Option) (err error) {
	wr, err := newWriter(w, format, kind, opts)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, wr.Close())
	}()

	return fn(wr)
}

func newWriter(w io.WriteSeeker, format FileFormat, kind ContainerKind, opts []Option) (*Writer, error) {
	if w == nil {
		return nil, errNilSink
	}

	if _, err := NewFileFormat(format.sample, format.numChannels, format.sampleRate); err != nil {
		return nil, err
	}

	encode, err := sampleEncodeFunc(format.sample)
	if err != nil {
		return nil, err
	}

	s, err := newSaver(w)
	if err != nil {
		return nil, err
	}

	wr := &Writer{
		s:      s,
		kind:   kind,
		format: format,
		opts:   buildOptions(opts),
		dirty:  true,
		encode: encode,
	}

	switch kind {
	case Riff:
		err = wr.writeRiffHeader()
	case RF64:
		err = wr.writeRF64Header()
	default:
		err = fmt.Errorf("%w: %s", ErrMalformedContainer, kind)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	wr.maxPos = s.pos()

	return wr, nil
}

func (w *Writer) writeRiffHeader() error {
	err := w.s.saveID(riff.RiffID)
	if err != nil {
		return err
	}
	// file size, patched on finalize
	err = w.s.saveU32(sizeSentinel)
	if err != nil {
		return err
	}

	err = w.s.saveID(riff.WavFormatID)
	if err != nil {
		return err
	}

	err = w.writeFmtChunk()
	if err != nil {
		return err
	}

	return w.writeDataHeader()
}

func (w *Writer) writeRF64Header() error {
	err := w.s.saveID(CIDRF64)
	if err != nil {
		return err
	}

	err = w.s.saveU32(sizeSentinel)
	if err != nil {
		return err
	}

	err = w.s.saveID(riff.WavFormatID)
	if err != nil {
		return err
	}

	err = w.s.saveID(CIDDS64)
	if err != nil {
		return err
	}

	err = w.s.saveU32(ds64BodySize)
	if err != nil {
		return err
	}
	// file size, data size and sample count, patched on finalize
	for range 3 {
		err = w.s.saveU64(0)
		if err != nil {
			return err
		}
	}
	// empty chunk size table
	err = w.s.saveU32(0)
	if err != nil {
		return err
	}

	err = w.writeFmtChunk()
	if err != nil {
		return err
	}

	return w.writeDataHeader()
}

func (w *Writer) writeFmtChunk() error {
	err := w.s.saveID(riff.FmtID)
	if err != nil {
		return err
	}

	err = w.s.saveU32(fmtBodySize)
	if err != nil {
		return err
	}

	err = w.s.saveU16(uint16(w.format.sample.AudioFormat()))
	if err != nil {
		return fmt.Errorf("error encoding the format tag - %w", err)
	}

	err = w.s.saveU16(w.format.numChannels)
	if err != nil {
		return fmt.Errorf("error encoding the number of channels - %w", err)
	}

	err = w.s.saveU32(w.format.sampleRate)
	if err != nil {
		return fmt.Errorf("error encoding the sample rate - %w", err)
	}

	err = w.s.saveU32(w.format.ByteRate())
	if err != nil {
		return fmt.Errorf("error encoding the avg bytes per sec - %w", err)
	}

	err = w.s.saveU16(w.format.BlockAlign())
	if err != nil {
		return fmt.Errorf("error encoding the block align - %w", err)
	}

	err = w.s.saveU16(w.format.sample.BitDepth())
	if err != nil {
		return fmt.Errorf("error encoding bits per sample - %w", err)
	}

	return nil
}

func (w *Writer) writeDataHeader() error {
	err := w.s.saveID(riff.DataFormatID)
	if err != nil {
		return fmt.Errorf("error encoding sound header %w", err)
	}

	return w.s.saveU32(sizeSentinel)
}

func (w *Writer) dataStart() int64 {
	if w.kind == RF64 {
		return rf64DataStart
	}

	return riffDataStart
}

// Format returns the format the Writer encodes to.
func (w *Writer) Format() FileFormat {
	return w.format
}

// Container reports the container kind being written.
func (w *Writer) Container() ContainerKind {
	return w.kind
}

// Err returns the error of the last header patch, if any.
func (w *Writer) Err() error {
	if w == nil {
		return nil
	}

	return w.err
}

// Pos returns the cursor position in samples from the start of the data.
func (w *Writer) Pos() int64 {
	return (w.s.pos() - w.dataStart()) / int64(w.format.sample.Depth())
}

// Len returns the number of frames up to the high-water mark.
func (w *Writer) Len() int64 {
	return (w.maxPos - w.dataStart()) / w.format.FrameSize()
}

// Write encodes samples at the cursor and advances past them. Writes may end
// mid-frame, but the data must hold whole frames when the Writer is finalized.
func (w *Writer) Write(samples []float32) error {
	if w.closed {
		return ErrClosed
	}

	depth := w.format.sample.Depth()

	for len(samples) > 0 {
		n := min(len(samples), writeBlockSamples)

		if cap(w.scratch) < n*depth {
			w.scratch = make([]byte, writeBlockSamples*depth)
		}

		raw := w.scratch[:n*depth]
		encodeSamples(w.encode, depth, raw, samples[:n])

		err := w.s.save(raw)
		if err != nil {
			return fmt.Errorf("failed to write samples: %w", err)
		}

		w.advanced()

		samples = samples[n:]
	}

	return nil
}

// WriteBuffer writes the interleaved content of buf.
func (w *Writer) WriteBuffer(buf *audio.Float32Buffer) error {
	if buf == nil {
		return errNilBuffer
	}

	if buf.Format != nil && buf.Format.NumChannels != int(w.format.numChannels) {
		return fmt.Errorf("%w: %d != %d", errChannelLayout, buf.Format.NumChannels, w.format.numChannels)
	}

	return w.Write(buf.Data)
}

// SeekFrame moves the cursor to frame n. Seeking past the end extends the file.
func (w *Writer) SeekFrame(n int64) error {
	target, err := w.frameOffset(w.dataStart(), n)
	if err != nil {
		return err
	}

	return w.moveTo(target)
}

// Skip moves the cursor n frames forward, extending the file if needed.
func (w *Writer) Skip(n int64) error {
	target, err := w.frameOffset(w.s.pos(), n)
	if err != nil {
		return err
	}

	return w.moveTo(target)
}

// Rewind moves the cursor n frames backward. It can't move before the first
// frame.
func (w *Writer) Rewind(n int64) error {
	if w.closed {
		return ErrClosed
	}

	frameSize := w.format.FrameSize()
	if n < 0 || n > (w.s.pos()-w.dataStart())/frameSize {
		return fmt.Errorf("%w: rewind %d frames from sample %d", ErrOutOfBounds, n, w.Pos())
	}

	return w.s.seek(w.s.pos() - n*frameSize)
}

func (w *Writer) frameOffset(from, n int64) (int64, error) {
	if w.closed {
		return 0, ErrClosed
	}

	frameSize := w.format.FrameSize()
	if n < 0 || n > (math.MaxInt64-from)/frameSize {
		return 0, fmt.Errorf("%w: %d frames from offset %d", ErrOutOfBounds, n, from)
	}

	return from + n*frameSize, nil
}

func (w *Writer) moveTo(target int64) error {
	err := w.s.seek(target)
	if err != nil {
		return err
	}

	w.advanced()

	return nil
}

func (w *Writer) advanced() {
	if pos := w.s.pos(); pos > w.maxPos {
		w.maxPos = pos
	}

	w.dirty = true
}

// Finalize patches the header size fields from the high-water mark. The
// cursor is left where it was, so writing may continue afterwards, and calling
// it repeatedly rewrites the same header bytes.
func (w *Writer) Finalize() error {
	if w.closed {
		return w.err
	}

	w.err = w.finalize()
	if w.err == nil {
		w.dirty = false
	}

	return w.err
}

func (w *Writer) finalize() error {
	pos := w.s.pos()

	err := w.patchSizes()
	if err != nil {
		// restore the cursor, the patch error wins
		w.s.seek(pos)
		return err
	}

	return w.s.seek(pos)
}

func (w *Writer) patchSizes() error {
	dataSize := w.maxPos - w.dataStart()

	if rest := dataSize % w.format.FrameSize(); rest != 0 {
		return fmt.Errorf("%w: data ends %d bytes into a %d byte frame",
			ErrSizeMismatch, rest, w.format.FrameSize())
	}

	fileSize, err := w.extend()
	if err != nil {
		return err
	}

	reported := fileSize
	if w.opts.standardSizes {
		reported -= chunkHeaderSize
	}

	switch w.kind {
	case RF64:
		err = w.patchDS64(uint64(reported), uint64(dataSize), uint64(w.Len()))
	default:
		err = w.patchRiff(reported, dataSize)
	}

	return err
}

// extend makes sure the sink physically reaches the high-water mark, plus the
// pad byte of an odd data chunk when writing conventional sizes, and returns
// the resulting file size. A longer sink is cut back when it can be truncated.
func (w *Writer) extend() (int64, error) {
	size := w.maxPos
	if w.opts.standardSizes && (w.maxPos-w.dataStart())%2 == 1 {
		size++
	}

	end, err := w.s.end()
	if err != nil {
		return 0, err
	}

	if end > size {
		_, err = w.s.truncate(size)
		return size, err
	}

	if end == size {
		return size, nil
	}

	err = w.s.seek(size - 1)
	if err != nil {
		return 0, err
	}

	err = w.s.save([]byte{0})
	if err != nil {
		return 0, fmt.Errorf("failed to extend the data chunk: %w", err)
	}

	return size, nil
}

func (w *Writer) patchRiff(fileSize, dataSize int64) error {
	if fileSize > math.MaxUint32 || dataSize > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes don't fit a RIFF header, use RF64", ErrSizeMismatch, fileSize)
	}

	err := w.s.seek(riffSizeOffset)
	if err != nil {
		return err
	}

	err = w.s.saveU32(uint32(fileSize))
	if err != nil {
		return fmt.Errorf("%w when writing the total written bytes", err)
	}

	err = w.s.seek(riffDataSizeOffset)
	if err != nil {
		return err
	}

	err = w.s.saveU32(uint32(dataSize))
	if err != nil {
		return fmt.Errorf("%w when writing wav data chunk size header", err)
	}

	return nil
}

func (w *Writer) patchDS64(fileSize, dataSize, sampleCount uint64) error {
	err := w.s.seek(ds64FieldsOffset)
	if err != nil {
		return err
	}

	err = w.s.saveU64(fileSize)
	if err != nil {
		return fmt.Errorf("%w when writing the ds64 file size", err)
	}

	err = w.s.saveU64(dataSize)
	if err != nil {
		return fmt.Errorf("%w when writing the ds64 data size", err)
	}

	err = w.s.saveU64(sampleCount)
	if err != nil {
		return fmt.Errorf("%w when writing the ds64 sample count", err)
	}

	return nil
}

// Close finalizes the header unless nothing changed since the last Finalize
// and releases the Writer. The underlying sink is NOT closed. Calling Close
// again returns the same result.
func (w *Writer) Close() error {
	if w == nil || w.closed {
		return w.Err()
	}

	if w.dirty {
		w.Finalize()
	}

	w.closed = true

	return w.err
}
