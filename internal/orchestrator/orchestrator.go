// Package orchestrator drives the book state machine by consuming the
// four completion queues, applying §4.2's transition table. Each queue
// is served by its own goroutine doing a blocking pop with a short
// timeout — the "one goroutine per background concern" idiom generalized
// from content-service/main.go's ad hoc `go startTTSWorker()`.
package orchestrator

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/models"
	"github.com/epicrunze/evocable/internal/registry"
)

const popTimeout = 5 * time.Second

// statusRank orders the non-terminal stages of §4.2's state machine so
// transition can reject a stale, redelivered completion from an earlier
// stage arriving after the book has already advanced further. Failed and
// Completed are terminal and handled by their own checks below rather than
// ranked here.
var statusRank = map[models.BookStatus]int{
	models.BookStatusPending:         0,
	models.BookStatusExtracting:      1,
	models.BookStatusSegmenting:      2,
	models.BookStatusGeneratingAudio: 3,
	models.BookStatusTranscoding:     4,
}

type Orchestrator struct {
	DB       *gorm.DB
	Broker   *broker.Broker
	Registry *registry.Registry
}

// Run starts the four completion-queue consumers and blocks until ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	queues := []struct {
		name    string
		handler func(context.Context, broker.CompletionEnvelope)
	}{
		{broker.ExtractCompleted, o.handleExtractCompleted},
		{broker.SegmentCompleted, o.handleSegmentCompleted},
		{broker.SynthCompleted, o.handleSynthCompleted},
		{broker.TranscodeCompleted, o.handleTranscodeCompleted},
	}

	done := make(chan struct{}, len(queues))
	for _, q := range queues {
		go o.consume(ctx, q.name, q.handler, done)
	}
	for range queues {
		<-done
	}
}

func (o *Orchestrator) consume(ctx context.Context, queue string, handle func(context.Context, broker.CompletionEnvelope), done chan<- struct{}) {
	log.Printf("📡 orchestrator listening on %s", queue)
	for {
		select {
		case <-ctx.Done():
			done <- struct{}{}
			return
		default:
		}
		var env broker.CompletionEnvelope
		ok, err := o.Broker.PopBlocking(ctx, queue, popTimeout, &env)
		if err != nil {
			log.Printf("❌ %s pop failed: %v", queue, err)
			continue
		}
		if !ok {
			continue
		}
		handle(ctx, env)
	}
}

// transition applies a status/percent update, monotonically: if the book
// is missing (deleted mid-flight), terminal, or already at-or-past the
// target status, it is a no-op. The rank check guards against §5's
// at-least-once delivery redelivering a stale completion from an earlier
// stage after the book has already advanced past it.
func (o *Orchestrator) transition(bookID uint, newStatus models.BookStatus, percent int) {
	var book models.Book
	if err := o.DB.First(&book, bookID).Error; err != nil {
		log.Printf("⚠️ completion for unknown/deleted book %d ignored", bookID)
		return
	}
	if book.Status == models.BookStatusFailed || book.Status == models.BookStatusCompleted {
		return
	}
	if statusRank[newStatus] <= statusRank[book.Status] {
		return // stale or duplicate completion, already at-or-past this stage
	}
	book.Status = newStatus
	if percent > book.PercentComplete {
		book.PercentComplete = percent
	}
	o.DB.Save(&book)
}

func (o *Orchestrator) fail(bookID uint, message string) {
	var book models.Book
	if err := o.DB.First(&book, bookID).Error; err != nil {
		return
	}
	if book.Status == models.BookStatusFailed {
		return
	}
	book.Status = models.BookStatusFailed
	book.ErrorMessage = truncate(message, 1024)
	o.DB.Save(&book)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (o *Orchestrator) handleExtractCompleted(ctx context.Context, env broker.CompletionEnvelope) {
	if !env.Success {
		o.fail(env.BookID, env.Error)
		return
	}
	o.transition(env.BookID, models.BookStatusSegmenting, 25)
}

func (o *Orchestrator) handleSegmentCompleted(ctx context.Context, env broker.CompletionEnvelope) {
	if !env.Success {
		o.fail(env.BookID, env.Error)
		return
	}
	o.transition(env.BookID, models.BookStatusGeneratingAudio, 50)
}

func (o *Orchestrator) handleSynthCompleted(ctx context.Context, env broker.CompletionEnvelope) {
	if !env.Success {
		o.fail(env.BookID, env.Error)
		return
	}
	o.transition(env.BookID, models.BookStatusTranscoding, 75)
}

// handleTranscodeCompleted marks the book completed at 100% and records
// the envelope's total_chunks on success. It does not touch the audio-chunk
// registry: the transcoder has already posted the full chunk list there
// before emitting this completion.
func (o *Orchestrator) handleTranscodeCompleted(ctx context.Context, env broker.CompletionEnvelope) {
	if !env.Success {
		o.fail(env.BookID, env.Error)
		return
	}

	var book models.Book
	if err := o.DB.First(&book, env.BookID).Error; err != nil {
		log.Printf("⚠️ transcode completion for unknown/deleted book %d ignored", env.BookID)
		return
	}
	if book.Status == models.BookStatusCompleted || book.Status == models.BookStatusFailed {
		return
	}

	book.Status = models.BookStatusCompleted
	book.PercentComplete = 100
	book.TotalChunks = env.TotalChunks
	o.DB.Save(&book)
}
