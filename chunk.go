package wave64

import (
	"fmt"

	"github.com/go-audio/riff"
)

var (
	// CIDRF64 is the RIFF header id of a 64-bit RF64 container.
	CIDRF64 = [4]byte{'R', 'F', '6', '4'}
	// CIDDS64 is the chunk ID of the RF64 size chunk.
	CIDDS64 = [4]byte{'d', 's', '6', '4'}
)

// sizeSentinel marks a 32-bit size field whose real value lives in ds64.
const sizeSentinel = 0xFFFFFFFF

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtBodySize     = 16
	// ds64 payload: riff size, data size, sample count and table length.
	ds64BodySize  = 28
	ds64ReadSize  = 24
	fmtChunkSize  = chunkHeaderSize + fmtBodySize
	ds64ChunkSize = chunkHeaderSize + ds64BodySize
)

// ContainerKind tells a classic 32-bit RIFF file from an RF64 one.
type ContainerKind uint8

const (
	Riff ContainerKind = iota + 1
	RF64
)

func (k ContainerKind) String() string {
	switch k {
	case Riff:
		return "RIFF"
	case RF64:
		return "RF64"
	default:
		return fmt.Sprintf("ContainerKind(%d)", uint8(k))
	}
}

// ds64Sizes holds the 64-bit sizes an RF64 file carries in its ds64 chunk.
type ds64Sizes struct {
	dataSize    uint64
	sampleCount uint64
}

// container is Riff, or RF64 with sizes that stay nil until the ds64 chunk
// has been consumed.
type container struct {
	kind ContainerKind
	ds64 *ds64Sizes
}

func classifyContainer(id [4]byte, size uint32, sourceLen int64, standard bool) (container, error) {
	switch id {
	case riff.RiffID:
		if int64(size) == sourceLen || (standard && int64(size) == sourceLen-chunkHeaderSize) {
			return container{kind: Riff}, nil
		}

		return container{}, fmt.Errorf("%w: RIFF size %d, source length %d", ErrSizeMismatch, size, sourceLen)
	case CIDRF64:
		if size == sizeSentinel {
			return container{kind: RF64}, nil
		}

		return container{}, fmt.Errorf("%w: RF64 size field %#x is not the sentinel", ErrSizeMismatch, size)
	default:
		return container{}, fmt.Errorf("%w: unknown RIFF variant %q", ErrMalformedContainer, id)
	}
}

type chunkKind uint8

const (
	chunkOther chunkKind = iota
	chunkDS64
	chunkFmt
	chunkData
)

func classifyChunk(id [4]byte) chunkKind {
	switch id {
	case CIDDS64:
		return chunkDS64
	case riff.FmtID:
		return chunkFmt
	case riff.DataFormatID:
		return chunkData
	default:
		return chunkOther
	}
}

// ChunkInfo records a chunk header seen while walking a file. Chunk payloads
// other than ds64, fmt and data are never read.
type ChunkInfo struct {
	ID [4]byte
	// Offset is the position of the chunk header in the file.
	Offset int64
	// Size is the declared 32-bit payload size, possibly the RF64 sentinel.
	Size uint32
}

func (c ChunkInfo) String() string {
	return fmt.Sprintf("%q @%d (%d bytes)", c.ID[:], c.Offset, c.Size)
}

func cloneChunkInfos(chunks []ChunkInfo) []ChunkInfo {
	if len(chunks) == 0 {
		return nil
	}

	return append([]ChunkInfo(nil), chunks...)
}
