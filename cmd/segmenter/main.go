// Command segmenter runs the Segmenter component of §4.4.
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

	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/config"
	"github.com/epicrunze/evocable/internal/segment"
	"github.com/epicrunze/evocable/internal/workerpool"
)

const popTimeout = 5 * time.Second

type chunkMeta struct {
	Seq        int    `json:"seq"`
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
	MarkupPath string `json:"path"`
}

func main() {
	cfg := config.Load()

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ failed to connect to broker: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool := &workerpool.Pool{Size: 4, Name: "segmenter"}
	pool.Run(ctx, func(ctx context.Context, workerID int) {
		var task broker.TaskEnvelope
		ok, err := b.PopBlocking(ctx, broker.SegmentQueue, popTimeout, &task)
		if err != nil {
			log.Printf("❌ pop failed: %v", err)
			return
		}
		if !ok {
			return
		}
		processTask(b, cfg, task)
	})
}

func processTask(b *broker.Broker, cfg config.Config, task broker.TaskEnvelope) {
	ctx := context.Background()
	log.Printf("✂️ segmenting book %d", task.BookID)

	completion := broker.CompletionEnvelope{BookID: task.BookID, TimestampUTC: time.Now().UTC().Format(time.RFC3339)}

	textPath := task.SourcePath
	if textPath == "" {
		textPath = filepath.Join(cfg.TextDataPath, fmt.Sprintf("%d.txt", task.BookID))
	}
	raw, err := os.ReadFile(textPath)
	if err != nil {
		completion.Success = false
		completion.Error = "extracted text missing"
		b.Push(ctx, broker.SegmentCompleted, completion)
		return
	}

	chunks := segment.Split(string(raw), cfg.ChunkSizeChars)

	chunkDir := filepath.Join(cfg.TextDataPath, fmt.Sprintf("%d", task.BookID), "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		completion.Success = false
		completion.Error = err.Error()
		b.Push(ctx, broker.SegmentCompleted, completion)
		return
	}

	for _, ch := range chunks {
		ssmlPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d.ssml", ch.Seq))
		if err := os.WriteFile(ssmlPath, []byte(ch.Markup), 0o644); err != nil {
			completion.Success = false
			completion.Error = err.Error()
			b.Push(ctx, broker.SegmentCompleted, completion)
			return
		}
		meta := chunkMeta{Seq: ch.Seq, Text: ch.Text, CharCount: ch.CharCount, MarkupPath: ssmlPath}
		data, _ := json.Marshal(meta)
		jsonPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d.json", ch.Seq))
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			completion.Success = false
			completion.Error = err.Error()
			b.Push(ctx, broker.SegmentCompleted, completion)
			return
		}
	}

	nextTask := broker.TaskEnvelope{BookID: task.BookID, TimestampUTC: completion.TimestampUTC}
	if err := b.Push(ctx, broker.SynthQueue, nextTask); err != nil {
		log.Printf("❌ failed to enqueue synth task for book %d: %v", task.BookID, err)
	}

	completion.Success = true
	b.Push(ctx, broker.SegmentCompleted, completion)
	log.Printf("✅ book %d segmented into %d chunks", task.BookID, len(chunks))
}
