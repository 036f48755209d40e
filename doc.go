// Package wave64 reads and writes WAVE audio files in both the classic RIFF
// container and its 64-bit RF64 extension.
//
// Samples are always exchanged as normalized float32 values, whatever the
// on-disk encoding: 8-bit unsigned, 16/24/32-bit signed PCM, or 32/64-bit
// IEEE float.
//
// A Reader validates the whole chunk structure up front, including the
// redundant fmt fields and the RF64 ds64 sizes, and then offers frame-level
// random access to the data chunk without loading it into memory:
//
//	r, err := wave64.NewReader(file)
//	if err != nil {
//		return err
//	}
//	buf := make([]float32, 1024)
//	err = r.Read(buf)
//
// A Writer emits its header immediately, streams encoded samples, and patches
// the size fields from the furthest position reached when it is finalized:
//
//	format, _ := wave64.NewFileFormat(wave64.I24, 2, 48000)
//	err := wave64.WithWriter(file, format, wave64.RF64, func(w *wave64.Writer) error {
//		return w.Write(samples)
//	})
//
// Only the ds64, fmt and data chunks are interpreted. Every other chunk is
// skipped and reported by Reader.Chunks.
package wave64
