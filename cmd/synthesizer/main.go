// Command synthesizer runs the Synthesizer component of §4.5.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/config"
	"github.com/epicrunze/evocable/internal/synth"
	"github.com/epicrunze/evocable/internal/wav"
	"github.com/epicrunze/evocable/internal/workerpool"
)

const popTimeout = 5 * time.Second

type chunkMeta struct {
	Seq        int    `json:"seq"`
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
	MarkupPath string `json:"path"`
}

type wavManifestEntry struct {
	Seq        int     `json:"seq"`
	DurationS  float64 `json:"duration_s"`
	SampleRate int     `json:"sample_rate"`
	FilePath   string  `json:"file_path"`
	FileSize   int64   `json:"file_size"`
}

func main() {
	cfg := config.Load()

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ failed to connect to broker: %v", err)
	}
	synthesizer := synth.NewHTTPSynthesizer(cfg.TTSEndpoint)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Single-threaded per book, pool of books in parallel: each pool
	// worker processes one whole book's segments sequentially, but
	// distinct books run concurrently across workers, per §4.5.
	pool := &workerpool.Pool{Size: 3, Name: "synthesizer"}
	pool.Run(ctx, func(ctx context.Context, workerID int) {
		var task broker.TaskEnvelope
		ok, err := b.PopBlocking(ctx, broker.SynthQueue, popTimeout, &task)
		if err != nil {
			log.Printf("❌ pop failed: %v", err)
			return
		}
		if !ok {
			return
		}
		processTask(ctx, b, cfg, synthesizer, task)
	})
}

func processTask(ctx context.Context, b *broker.Broker, cfg config.Config, synthesizer synth.Synthesizer, task broker.TaskEnvelope) {
	log.Printf("🗣️ synthesizing book %d", task.BookID)

	completion := broker.CompletionEnvelope{BookID: task.BookID, TimestampUTC: time.Now().UTC().Format(time.RFC3339)}

	chunkDir := filepath.Join(cfg.TextDataPath, fmt.Sprintf("%d", task.BookID), "chunks")
	metas, err := loadChunkMetas(chunkDir)
	if err != nil || len(metas) == 0 {
		completion.Success = false
		completion.Error = "no segmented chunks found"
		b.Push(ctx, broker.SynthCompleted, completion)
		return
	}

	wavDir := filepath.Join(cfg.WAVDataPath, fmt.Sprintf("%d", task.BookID))
	if err := os.MkdirAll(wavDir, 0o755); err != nil {
		completion.Success = false
		completion.Error = err.Error()
		b.Push(ctx, broker.SynthCompleted, completion)
		return
	}

	var manifest []wavManifestEntry
	for _, meta := range metas {
		markup := ""
		if data, err := os.ReadFile(meta.MarkupPath); err == nil {
			markup = string(data)
		}
		result, err := synthesizer.Synthesize(ctx, meta.Text, markup)
		if err != nil {
			completion.Success = false
			completion.Error = fmt.Sprintf("synthesis failed for chunk %d: %v", meta.Seq, err)
			b.Push(ctx, broker.SynthCompleted, completion)
			return
		}

		wavPath := filepath.Join(wavDir, fmt.Sprintf("chunk_%03d.wav", meta.Seq))
		if err := wav.WriteFile(wavPath, result.PCM, result.SampleRate); err != nil {
			completion.Success = false
			completion.Error = err.Error()
			b.Push(ctx, broker.SynthCompleted, completion)
			return
		}
		info, _ := os.Stat(wavPath)
		manifest = append(manifest, wavManifestEntry{
			Seq:        meta.Seq,
			DurationS:  wav.DurationSeconds(len(result.PCM), result.SampleRate),
			SampleRate: result.SampleRate,
			FilePath:   wavPath,
			FileSize:   info.Size(),
		})
	}

	manifestData, _ := json.Marshal(manifest)
	if err := os.WriteFile(filepath.Join(wavDir, "metadata.json"), manifestData, 0o644); err != nil {
		completion.Success = false
		completion.Error = err.Error()
		b.Push(ctx, broker.SynthCompleted, completion)
		return
	}

	nextTask := broker.TaskEnvelope{BookID: task.BookID, TimestampUTC: completion.TimestampUTC}
	if err := b.Push(ctx, broker.TranscodeQueue, nextTask); err != nil {
		log.Printf("❌ failed to enqueue transcode task for book %d: %v", task.BookID, err)
	}

	completion.Success = true
	b.Push(ctx, broker.SynthCompleted, completion)
	log.Printf("✅ book %d synthesized (%d segments)", task.BookID, len(manifest))
}

func loadChunkMetas(dir string) ([]chunkMeta, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var metas []chunkMeta
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var m chunkMeta
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Seq < metas[j].Seq })
	return metas, nil
}
