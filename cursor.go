package wave64

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var errCursorRange = errors.New("cursor moved outside the stream")

// loader is a read cursor over a seekable source of known length. All typed
// loads are little-endian.
type loader struct {
	r       io.ReadSeeker
	offset  int64
	size    int64
	scratch [8]byte
}

func newLoader(r io.ReadSeeker) (*loader, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, ioError("measure source", err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, ioError("rewind source", err)
	}

	return &loader{r: r, size: size}, nil
}

// load fills b from the cursor. Loading past the end of the source is a
// structural error, not an I/O one. On failure the cursor does not move.
func (l *loader) load(b []byte) error {
	if l.offset+int64(len(b)) > l.size {
		return fmt.Errorf("%w: need %d bytes at offset %d of %d: %w",
			ErrMalformedContainer, len(b), l.offset, l.size, io.ErrUnexpectedEOF)
	}

	if _, err := io.ReadFull(l.r, b); err != nil {
		// put the stream back where we believe it is
		l.r.Seek(l.offset, io.SeekStart)
		return ioError("read", err)
	}

	l.offset += int64(len(b))

	return nil
}

func (l *loader) loadID() ([4]byte, error) {
	var id [4]byte

	err := l.load(id[:])

	return id, err
}

func (l *loader) loadU16() (uint16, error) {
	if err := l.load(l.scratch[:2]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(l.scratch[:2]), nil
}

func (l *loader) loadU32() (uint32, error) {
	if err := l.load(l.scratch[:4]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(l.scratch[:4]), nil
}

func (l *loader) loadU64() (uint64, error) {
	if err := l.load(l.scratch[:8]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(l.scratch[:8]), nil
}

func (l *loader) seek(offset int64) error {
	if offset < 0 || offset > l.size {
		return fmt.Errorf("%w: offset %d, length %d", errCursorRange, offset, l.size)
	}

	if offset == l.offset {
		return nil
	}

	if _, err := l.r.Seek(offset, io.SeekStart); err != nil {
		l.r.Seek(l.offset, io.SeekStart)
		return ioError("seek", err)
	}

	l.offset = offset

	return nil
}

func (l *loader) skip(n int64) error { return l.seek(l.offset + n) }

func (l *loader) rewind(n int64) error { return l.seek(l.offset - n) }

func (l *loader) pos() int64 { return l.offset }

func (l *loader) len() int64 { return l.size }

func (l *loader) atEnd() bool { return l.offset == l.size }

// saver is a write cursor over a seekable sink. All typed stores are
// little-endian.
type saver struct {
	w       io.WriteSeeker
	offset  int64
	scratch [8]byte
}

func newSaver(w io.WriteSeeker) (*saver, error) {
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return nil, ioError("rewind sink", err)
	}

	return &saver{w: w}, nil
}

func (s *saver) save(b []byte) error {
	n, err := s.w.Write(b)
	if err != nil {
		if n > 0 {
			s.w.Seek(s.offset, io.SeekStart)
		}

		return ioError("write", err)
	}

	s.offset += int64(n)

	return nil
}

func (s *saver) saveID(id [4]byte) error { return s.save(id[:]) }

func (s *saver) saveU16(v uint16) error {
	binary.LittleEndian.PutUint16(s.scratch[:2], v)
	return s.save(s.scratch[:2])
}

func (s *saver) saveU32(v uint32) error {
	binary.LittleEndian.PutUint32(s.scratch[:4], v)
	return s.save(s.scratch[:4])
}

func (s *saver) saveU64(v uint64) error {
	binary.LittleEndian.PutUint64(s.scratch[:8], v)
	return s.save(s.scratch[:8])
}

func (s *saver) seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("%w: offset %d", errCursorRange, offset)
	}

	if offset == s.offset {
		return nil
	}

	if _, err := s.w.Seek(offset, io.SeekStart); err != nil {
		s.w.Seek(s.offset, io.SeekStart)
		return ioError("seek", err)
	}

	s.offset = offset

	return nil
}

func (s *saver) skip(n int64) error { return s.seek(s.offset + n) }

func (s *saver) rewind(n int64) error { return s.seek(s.offset - n) }

func (s *saver) pos() int64 { return s.offset }

type truncater interface {
	Truncate(size int64) error
}

// truncate cuts the sink to size if it implements Truncate, as *os.File
// does, and reports whether it could.
func (s *saver) truncate(size int64) (bool, error) {
	t, ok := s.w.(truncater)
	if !ok {
		return false, nil
	}

	if err := t.Truncate(size); err != nil {
		return false, ioError("truncate sink", err)
	}

	return true, nil
}

// end reports the physical length of the sink without moving the cursor.
func (s *saver) end() (int64, error) {
	end, err := s.w.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, ioError("measure sink", err)
	}

	if _, err := s.w.Seek(s.offset, io.SeekStart); err != nil {
		return 0, ioError("seek", err)
	}

	return end, nil
}
