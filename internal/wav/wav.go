// Package wav writes raw 16-bit PCM samples into a minimal RIFF/WAVE
// container. No library in the example pack wraps PCM in WAV (every pack
// repo that touches WAV does it by hand), and the format is simple enough
// that hand-rolling the header is the idiomatic choice here — see
// DESIGN.md.
package wav

import (
	"encoding/binary"
	"os"
)

const (
	channels      = 1
	bitsPerSample = 16
)

// WriteFile wraps pcm (signed 16-bit little-endian mono samples) in a WAV
// container at path, sampled at sampleRate Hz.
func WriteFile(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := uint32(len(pcm))
	riffSize := 36 + dataSize

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], riffSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := f.Write(header); err != nil {
		return err
	}
	_, err = f.Write(pcm)
	return err
}

// DurationSeconds computes a PCM buffer's playback duration.
func DurationSeconds(pcmLen, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	samples := pcmLen / (channels * bitsPerSample / 8)
	return float64(samples) / float64(sampleRate)
}
