// This tool prints the structure of the passed wav or rf64 file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cwbudde/wave64"
)

const missingPathMessage = "You must pass the path of the file to inspect"

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

var errMissingPath = errors.New("missing path argument")

func run(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("wavinfo", flag.ContinueOnError)
	standard := flagSet.Bool("standard", false, "read RIFF sizes as length-8 and honor pad bytes")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if flagSet.NArg() < 1 {
		return errMissingPath
	}

	file, err := os.Open(flagSet.Arg(0))
	if err != nil {
		return err
	}
	defer file.Close()

	var opts []wave64.Option
	if *standard {
		opts = append(opts, wave64.WithStandardSizes())
	}

	r, err := wave64.NewReader(file, opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", flagSet.Arg(0), err)
	}

	format := r.Format()
	begin, end := r.DataRange()

	fmt.Fprintf(out, "Container: %s\n", r.Container())
	fmt.Fprintf(out, "Encoding: %s\n", format.Sample())
	fmt.Fprintf(out, "Channels: %d\n", format.NumChannels())
	fmt.Fprintf(out, "SampleRate: %d\n", format.SampleRate())
	fmt.Fprintf(out, "ByteRate: %d\n", format.ByteRate())
	fmt.Fprintf(out, "BlockAlign: %d\n", format.BlockAlign())
	fmt.Fprintf(out, "Frames: %d\n", r.Len())
	fmt.Fprintf(out, "Duration: %s\n", r.Duration())
	fmt.Fprintf(out, "Data: [%d, %d)\n", begin, end)

	fmt.Fprintln(out, "Chunks:")

	for i, c := range r.Chunks() {
		fmt.Fprintf(out, "\tchunk [%d]:\t%s\n", i, c)
	}

	return nil
}
