package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/wave64"
)

func writeFixture(t *testing.T, kind wave64.ContainerKind, opts ...wave64.Option) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	format, err := wave64.NewFileFormat(wave64.I24, 2, 48000)
	if err != nil {
		t.Fatal(err)
	}

	err = wave64.WithWriter(f, format, kind, func(w *wave64.Writer) error {
		return w.Write(make([]float32, 2*480))
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}

	return path
}

func TestRunRequiresPath(t *testing.T) {
	var out bytes.Buffer

	err := run(nil, &out)
	if !errors.Is(err, errMissingPath) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunPrintsStructure(t *testing.T) {
	var outBuf bytes.Buffer

	err := run([]string{writeFixture(t, wave64.RF64)}, &outBuf)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := outBuf.String()
	checks := []string{
		"Container: RF64",
		"Encoding: I24",
		"Channels: 2",
		"SampleRate: 48000",
		"ByteRate: 288000",
		"BlockAlign: 6",
		"Frames: 480",
		"Duration: 10ms",
		"Data: [80, 2960)",
		`chunk [0]:	"ds64" @12`,
		`chunk [2]:	"data" @72`,
	}

	for _, c := range checks {
		if !strings.Contains(out, c) {
			t.Fatalf("expected output to contain %q\nfull output:\n%s", c, out)
		}
	}
}

func TestRunStandardSizes(t *testing.T) {
	path := writeFixture(t, wave64.Riff, wave64.WithStandardSizes())

	var outBuf bytes.Buffer

	err := run([]string{path}, &outBuf)
	if !errors.Is(err, wave64.ErrSizeMismatch) {
		t.Fatalf("expected the default size rule to reject the file, got %v", err)
	}

	outBuf.Reset()

	err = run([]string{"-standard", path}, &outBuf)
	if err != nil {
		t.Fatalf("run -standard failed: %v", err)
	}

	if !strings.Contains(outBuf.String(), "Container: RIFF") {
		t.Fatalf("unexpected output:\n%s", outBuf.String())
	}
}

func TestRunMissingFile(t *testing.T) {
	var out bytes.Buffer

	err := run([]string{filepath.Join(t.TempDir(), "missing.wav")}, &out)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
