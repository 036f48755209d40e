// This tool converts a wav or rf64 file into an aiff file and stores it in
// the same folder as the source.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/cwbudde/wave64"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

const bufferSize = 1 << 16

var (
	errMissingPath = errors.New("you must set the -path flag")
	errBitDepth    = errors.New("aiff bit depth must be 8, 16, 24 or 32")
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("wavtoaiff", flag.ContinueOnError)

	path := flagSet.String("path", "", "The path to the wav file to convert to aiff")
	bits := flagSet.Int("bits", 0, "aiff bit depth, 0 picks one from the source encoding")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if *path == "" {
		return errMissingPath
	}

	sourcePath, err := expandHome(*path)
	if err != nil {
		return err
	}

	outPath, err := convert(sourcePath, *bits)
	if err != nil {
		return err
	}

	log.Printf("Wav file converted to %s", outPath)

	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get the user home directory: %w", err)
	}

	return filepath.Join(usr.HomeDir, path[2:]), nil
}

func convert(sourcePath string, bitDepth int) (outPath string, err error) {
	file, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", sourcePath, err)
	}
	defer file.Close()

	r, err := wave64.NewReader(file)
	if err != nil {
		return "", fmt.Errorf("invalid WAV file: %w", err)
	}

	if bitDepth == 0 {
		bitDepth = aiffBitDepth(r.Format().Sample())
	}

	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return "", fmt.Errorf("%w: %d", errBitDepth, bitDepth)
	}

	outPath = sourcePath[:len(sourcePath)-len(filepath.Ext(sourcePath))] + ".aif"

	outFile, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer outFile.Close()

	format := r.AudioFormat()
	encoder := aiff.NewEncoder(outFile, format.SampleRate, bitDepth, format.NumChannels)

	buf := &audio.Float32Buffer{Data: make([]float32, bufferSize)}

	for {
		num, err := r.ReadBuffer(buf)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", err
		}

		err = encoder.Write(float32ToIntBuffer(buf.Data[:num], format, bitDepth))
		if err != nil {
			return "", fmt.Errorf("failed to encode aiff samples: %w", err)
		}
	}

	err = encoder.Close()
	if err != nil {
		return "", err
	}

	return outPath, nil
}

// aiffBitDepth picks the integer depth that holds every bit of s.
func aiffBitDepth(s wave64.Sample) int {
	switch s {
	case wave64.U8:
		return 8
	case wave64.I16:
		return 16
	case wave64.I24:
		return 24
	default:
		return 32
	}
}

func float32ToIntBuffer(data []float32, format *audio.Format, bitDepth int) *audio.IntBuffer {
	intBuf := &audio.IntBuffer{
		Format:         format,
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(data)),
	}
	for i, v := range data {
		intBuf.Data[i] = float32ToPCMInt(v, bitDepth)
	}

	return intBuf
}

// float32ToPCMInt scales a normalized sample to a signed integer of the given
// depth. AIFF stores signed PCM at every depth, 8 bits included.
func float32ToPCMInt(value float32, bitDepth int) int {
	if bitDepth < 8 || bitDepth > 32 {
		return 0
	}

	peak := float64(int64(1)<<(bitDepth-1)) - 1
	scaled := math.Round(float64(clampFloat32(value, -1, 1)) * peak)

	return int(scaled)
}

func clampFloat32(value, min, max float32) float32 {
	if math.IsNaN(float64(value)) {
		return 0
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}
