package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileProducesValidRIFFHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")
	pcm := make([]byte, 2000)

	if err := WriteFile(path, pcm, 16000); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(data) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers: %q", data[0:12])
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		t.Fatalf("missing fmt /data chunk ids: %q / %q", data[12:16], data[36:40])
	}
	gotSampleRate := binary.LittleEndian.Uint32(data[24:28])
	if gotSampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", gotSampleRate)
	}
	gotDataSize := binary.LittleEndian.Uint32(data[40:44])
	if int(gotDataSize) != len(pcm) {
		t.Fatalf("expected data size %d, got %d", len(pcm), gotDataSize)
	}
}

func TestDurationSecondsComputesFromSampleCount(t *testing.T) {
	// 16000 Hz, mono, 16-bit => 32000 bytes/second.
	got := DurationSeconds(32000, 16000)
	if got < 0.999 || got > 1.001 {
		t.Fatalf("expected ~1.0s, got %f", got)
	}
}

func TestDurationSecondsZeroSampleRate(t *testing.T) {
	if got := DurationSeconds(1000, 0); got != 0 {
		t.Fatalf("expected 0 duration for a zero sample rate, got %f", got)
	}
}
