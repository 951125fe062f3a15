// Command transcoder runs the Transcoder component of §4.6.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/config"
	"github.com/epicrunze/evocable/internal/models"
	"github.com/epicrunze/evocable/internal/registry"
	"github.com/epicrunze/evocable/internal/transcode"
	"github.com/epicrunze/evocable/internal/workerpool"
)

const popTimeout = 5 * time.Second

func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.BookChunk{}); err != nil {
		log.Fatalf("❌ failed to migrate: %v", err)
	}

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ failed to connect to broker: %v", err)
	}
	reg := registry.New(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go runCleanupConsumer(ctx, b, reg, cfg)

	pool := &workerpool.Pool{Size: 2, Name: "transcoder"}
	pool.Run(ctx, func(ctx context.Context, workerID int) {
		var task broker.TaskEnvelope
		ok, err := b.PopBlocking(ctx, broker.TranscodeQueue, popTimeout, &task)
		if err != nil {
			log.Printf("❌ pop failed: %v", err)
			return
		}
		if !ok {
			return
		}
		processTask(ctx, b, reg, cfg, task)
	})
}

// runCleanupConsumer drains the cleanup queue on book deletion, removing
// the transcoded ogg output tree and registry rows — per §4.1's Delete
// contract, which calls out the transcoder specifically as the cleaner of
// transcoded outputs.
func runCleanupConsumer(ctx context.Context, b *broker.Broker, reg *registry.Registry, cfg config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var env broker.CleanupEnvelope
		ok, err := b.PopBlocking(ctx, broker.CleanupQueue, popTimeout, &env)
		if err != nil || !ok {
			continue
		}
		os.RemoveAll(filepath.Join(cfg.OGGDataPath, fmt.Sprintf("%d", env.BookID)))
		reg.Delete(env.BookID)
	}
}

type wavManifestEntry struct {
	Seq        int     `json:"seq"`
	DurationS  float64 `json:"duration_s"`
	SampleRate int     `json:"sample_rate"`
	FilePath   string  `json:"file_path"`
	FileSize   int64   `json:"file_size"`
}

func processTask(ctx context.Context, b *broker.Broker, reg *registry.Registry, cfg config.Config, task broker.TaskEnvelope) {
	log.Printf("🎛️ transcoding book %d", task.BookID)

	completion := broker.CompletionEnvelope{BookID: task.BookID, TimestampUTC: time.Now().UTC().Format(time.RFC3339)}

	wavDir := filepath.Join(cfg.WAVDataPath, fmt.Sprintf("%d", task.BookID))
	manifestData, err := os.ReadFile(filepath.Join(wavDir, "metadata.json"))
	if err != nil {
		completion.Success = false
		completion.Error = "wav manifest missing"
		b.Push(ctx, broker.TranscodeCompleted, completion)
		return
	}
	var manifest []wavManifestEntry
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		completion.Success = false
		completion.Error = "corrupt wav manifest"
		b.Push(ctx, broker.TranscodeCompleted, completion)
		return
	}

	sources := make([]transcode.SourceWAV, 0, len(manifest))
	for _, m := range manifest {
		sources = append(sources, transcode.SourceWAV{
			Seq:        m.Seq,
			DurationS:  m.DurationS,
			FilePath:   m.FilePath,
			SampleRate: m.SampleRate,
		})
	}

	oggDir := filepath.Join(cfg.OGGDataPath, fmt.Sprintf("%d", task.BookID))
	outputs, err := transcode.Transcode(sources, transcode.Options{
		FFmpegBinary:    cfg.FFmpegBinary,
		SegmentDuration: cfg.SegmentDuration,
		BitrateKbps:     cfg.OpusBitrateKbps,
		OutputDir:       oggDir,
	})
	if err != nil {
		// Failure during any segment encoding fails the whole book;
		// previously-written outputs are left in place, per §4.6.
		completion.Success = false
		completion.Error = err.Error()
		b.Push(ctx, broker.TranscodeCompleted, completion)
		return
	}

	chunkInputs := make([]registry.ChunkInput, 0, len(outputs))
	summaries := make([]broker.ChunkSummary, 0, len(outputs))
	for _, o := range outputs {
		chunkInputs = append(chunkInputs, registry.ChunkInput{
			Seq: o.GlobalSeq, DurationS: o.DurationS, FilePath: o.FilePath, FileSize: o.FileSize,
		})
		summaries = append(summaries, broker.ChunkSummary{
			Seq: o.GlobalSeq, DurationS: o.DurationS, FilePath: o.FilePath, FileSize: o.FileSize,
		})
	}

	total, err := reg.ReplaceChunks(task.BookID, chunkInputs)
	if err != nil {
		completion.Success = false
		completion.Error = fmt.Sprintf("failed to register chunks: %v", err)
		b.Push(ctx, broker.TranscodeCompleted, completion)
		return
	}

	backupData, _ := json.Marshal(summaries)
	os.WriteFile(filepath.Join(oggDir, "metadata.json"), backupData, 0o644)

	completion.Success = true
	completion.Chunks = summaries
	completion.TotalChunks = total
	b.Push(ctx, broker.TranscodeCompleted, completion)
	log.Printf("✅ book %d transcoded into %d chunks", task.BookID, total)
}
