// Package transcode splits each source WAV into fixed-duration segments
// and encodes each as Opus-in-Ogg via an ffmpeg subprocess, grounded on
// content-service/sound_effects.go and chunk_merger.go's exec.Command
// ffmpeg/ffprobe invocation idiom (spec.md §4.6 itself mandates a
// subprocess-invoked external audio tool).
package transcode

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// SourceWAV is one entry of the synthesizer's manifest.
type SourceWAV struct {
	Seq        int
	DurationS  float64
	FilePath   string
	SampleRate int
}

// Output is one produced Ogg/Opus chunk.
type Output struct {
	GlobalSeq int
	DurationS float64
	FilePath  string
	FileSize  int64
}

// Options configures the ffmpeg invocation.
type Options struct {
	FFmpegBinary    string
	SegmentDuration float64 // default 3.14s
	BitrateKbps     int     // default 32
	OutputDir       string
}

// Transcode splits every source WAV in seq order into SegmentDuration-
// second pieces (the last segment of each WAV carries the remainder),
// numbering outputs with a global_seq counter contiguous across all of
// a book's source WAVs, per spec.md §4.6.
func Transcode(sources []SourceWAV, opts Options) ([]Output, error) {
	if opts.SegmentDuration <= 0 {
		opts.SegmentDuration = 3.14
	}
	if opts.BitrateKbps <= 0 {
		opts.BitrateKbps = 32
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, err
	}

	var outputs []Output
	globalSeq := 0

	for _, src := range sources {
		offsets := segmentOffsets(src.DurationS, opts.SegmentDuration)
		for _, seg := range offsets {
			outPath := filepath.Join(opts.OutputDir, fmt.Sprintf("chunk_%06d.ogg", globalSeq))
			if err := encodeSegment(opts.FFmpegBinary, src.FilePath, seg.start, seg.duration, opts.BitrateKbps, outPath); err != nil {
				return nil, fmt.Errorf("encoding chunk %d from %s: %w", globalSeq, src.FilePath, err)
			}
			info, err := os.Stat(outPath)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, Output{
				GlobalSeq: globalSeq,
				DurationS: seg.duration,
				FilePath:  outPath,
				FileSize:  info.Size(),
			})
			globalSeq++
		}
	}
	return outputs, nil
}

type segment struct {
	start    float64
	duration float64
}

// segmentOffsets splits a duration into contiguous segmentDuration-length
// pieces, with the final piece carrying the remainder if positive.
func segmentOffsets(totalDuration, segmentDuration float64) []segment {
	if totalDuration <= 0 {
		return nil
	}
	var segments []segment
	start := 0.0
	for start < totalDuration {
		remaining := totalDuration - start
		d := segmentDuration
		if remaining < segmentDuration {
			d = remaining
		}
		segments = append(segments, segment{start: start, duration: d})
		start += segmentDuration
	}
	return segments
}

// encodeSegment invokes ffmpeg to extract [start, start+duration) from
// srcPath and encode it as Opus-in-Ogg at the fixed profile §4.6 mandates:
// VoIP application, 20ms frame duration, maximum compression level.
func encodeSegment(ffmpegBin, srcPath string, start, duration float64, bitrateKbps int, outPath string) error {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.6f", start),
		"-i", srcPath,
		"-t", fmt.Sprintf("%.6f", duration),
		"-c:a", "libopus",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-application", "voip",
		"-frame_duration", "20",
		"-compression_level", "10",
		outPath,
	}
	out, err := exec.Command(ffmpegBin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, string(out))
	}
	return nil
}
