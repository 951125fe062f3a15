// Command extractor runs the Extractor component of §4.3: consumes
// extract tasks, dispatches by format, writes the per-book text artifact,
// and enqueues the next stage.
package main

import (
	"context"
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
	"github.com/epicrunze/evocable/internal/extract"
	"github.com/epicrunze/evocable/internal/models"
	"github.com/epicrunze/evocable/internal/workerpool"
)

const popTimeout = 5 * time.Second

func main() {
	cfg := config.Load()
	extract.SetOCRBinary(cfg.TesseractBinary)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ failed to connect to database: %v", err)
	}

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ failed to connect to broker: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool := &workerpool.Pool{Size: 4, Name: "extractor"}
	pool.Run(ctx, func(ctx context.Context, workerID int) {
		var task broker.TaskEnvelope
		ok, err := b.PopBlocking(ctx, broker.ExtractQueue, popTimeout, &task)
		if err != nil {
			log.Printf("❌ pop failed: %v", err)
			return
		}
		if !ok {
			return
		}
		processTask(db, b, cfg, task)
	})
}

func processTask(db *gorm.DB, b *broker.Broker, cfg config.Config, task broker.TaskEnvelope) {
	ctx := context.Background()
	log.Printf("📖 extracting book %d from %s", task.BookID, task.SourcePath)

	completion := broker.CompletionEnvelope{BookID: task.BookID, TimestampUTC: time.Now().UTC().Format(time.RFC3339)}

	var book models.Book
	if err := db.First(&book, task.BookID).Error; err != nil {
		// Missing row at task start: emit a failed completion rather than
		// crash the worker, per §5's "workers must tolerate a missing
		// source file or missing row at task start".
		completion.Success = false
		completion.Error = "book not found"
		b.Push(ctx, broker.ExtractCompleted, completion)
		return
	}

	if _, err := os.Stat(task.SourcePath); err != nil {
		completion.Success = false
		completion.Error = "source file missing"
		b.Push(ctx, broker.ExtractCompleted, completion)
		return
	}

	text, err := extract.Extract(task.SourcePath, book.SourceFormat)
	if err != nil {
		completion.Success = false
		completion.Error = err.Error()
		b.Push(ctx, broker.ExtractCompleted, completion)
		return
	}

	outPath := filepath.Join(cfg.TextDataPath, fmt.Sprintf("%d.txt", task.BookID))
	if err := os.MkdirAll(cfg.TextDataPath, 0o755); err != nil {
		completion.Success = false
		completion.Error = err.Error()
		b.Push(ctx, broker.ExtractCompleted, completion)
		return
	}
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		completion.Success = false
		completion.Error = err.Error()
		b.Push(ctx, broker.ExtractCompleted, completion)
		return
	}

	nextTask := broker.TaskEnvelope{BookID: task.BookID, SourcePath: outPath, TimestampUTC: completion.TimestampUTC}
	if err := b.Push(ctx, broker.SegmentQueue, nextTask); err != nil {
		log.Printf("❌ failed to enqueue segment task for book %d: %v", task.BookID, err)
	}

	completion.Success = true
	b.Push(ctx, broker.ExtractCompleted, completion)
	log.Printf("✅ book %d extracted", task.BookID)
}
