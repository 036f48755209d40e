// This command line tool re-encodes wav files into another sample encoding
// and, optionally, into an RF64 container.
// Converted files are stored in a wavconv folder next to the source files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/wave64"
	"github.com/go-audio/audio"
)

const blockSamples = 8192

var errMissingInput = errors.New("you need to pass -file or -dir to indicate what file or folder content to convert")

type config struct {
	sample wave64.Sample
	kind   wave64.ContainerKind
}

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("wavconv", flag.ContinueOnError)

	fileToConvert := flagSet.String("file", "", "Path to the wave file to convert")
	dirToConvert := flagSet.String("dir", "", "Directory containing all the wav files to convert")
	sampleName := flagSet.String("sample", "f32", "target sample encoding: u8, i16, i24, i32, f32 or f64")
	rf64 := flagSet.Bool("rf64", false, "write RF64 containers")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if *fileToConvert == "" && *dirToConvert == "" {
		return errMissingInput
	}

	sample, err := wave64.ParseSample(*sampleName)
	if err != nil {
		return err
	}

	cfg := config{sample: sample, kind: wave64.Riff}
	if *rf64 {
		cfg.kind = wave64.RF64
	}

	if *fileToConvert != "" {
		outPath, err := convertFile(*fileToConvert, cfg)
		if err != nil {
			return fmt.Errorf("something went wrong when converting %s: %w", *fileToConvert, err)
		}

		log.Println("Converted file available at", outPath)
	}

	if *dirToConvert != "" {
		entries, err := os.ReadDir(*dirToConvert)
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
				continue
			}

			filePath := filepath.Join(*dirToConvert, e.Name())

			outPath, err := convertFile(filePath, cfg)
			if err != nil {
				log.Printf("Something went wrong converting %s - %v", filePath, err)
				continue
			}

			log.Println("Converted file available at", outPath)
		}
	}

	return nil
}

func convertFile(path string, cfg config) (outPath string, err error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s - %w", path, err)
	}
	defer in.Close()

	r, err := wave64.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("couldn't parse %s %w", path, err)
	}

	src := r.Format()

	format, err := wave64.NewFileFormat(cfg.sample, src.NumChannels(), src.SampleRate())
	if err != nil {
		return "", err
	}

	outputDir := filepath.Join(filepath.Dir(path), "wavconv")
	outPath = filepath.Join(outputDir, filepath.Base(path))

	err = os.MkdirAll(outputDir, os.ModePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("couldn't create %s %w", outPath, err)
	}

	defer func() {
		cerr := out.Close()
		if cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	err = wave64.WithWriter(out, format, cfg.kind, func(w *wave64.Writer) error {
		return copySamples(w, r)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s - %w", outPath, err)
	}

	return outPath, nil
}

func copySamples(w *wave64.Writer, r *wave64.Reader) error {
	buf := &audio.Float32Buffer{Data: make([]float32, blockSamples)}

	for {
		n, err := r.ReadBuffer(buf)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		err = w.Write(buf.Data[:n])
		if err != nil {
			return err
		}
	}
}
