// gen-sine writes a sine tone in any of the supported sample encodings.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/cwbudde/wave64"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("gen-sine", flag.ContinueOnError)

	output := flagSet.String("output", "output.wav", "filename to write to")
	frequency := flagSet.Float64("frequency", 440, "frequency in hertz to generate")
	length := flagSet.Float64("length", 5, "length in seconds of output file")
	rate := flagSet.Uint("rate", 48000, "sample rate in hertz")
	channels := flagSet.Uint("channels", 1, "number of channels, all carrying the same tone")
	sampleName := flagSet.String("sample", "i16", "sample encoding: u8, i16, i24, i32, f32 or f64")
	rf64 := flagSet.Bool("rf64", false, "write an RF64 container")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	sample, err := wave64.ParseSample(*sampleName)
	if err != nil {
		return err
	}

	if *rate > math.MaxUint32 || *channels > math.MaxUint16 {
		return fmt.Errorf("rate %d or channels %d out of range", *rate, *channels)
	}

	format, err := wave64.NewFileFormat(sample, uint16(*channels), uint32(*rate))
	if err != nil {
		return err
	}

	kind := wave64.Riff
	if *rf64 {
		kind = wave64.RF64
	}

	log.Printf("generating a %f sec sine wav at %f hz (%s %s)", *length, *frequency, kind, format)

	file, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", *output, err)
	}
	defer file.Close()

	numFrames := int(float64(*rate) * *length)
	frame := make([]float32, *channels)

	return wave64.WithWriter(file, format, kind, func(w *wave64.Writer) error {
		for i := range numFrames {
			v := float32(math.Sin(float64(i) / float64(*rate) * *frequency * 2 * math.Pi))

			for c := range frame {
				frame[c] = v
			}

			err := w.Write(frame)
			if err != nil {
				return err
			}
		}

		return nil
	})
}
