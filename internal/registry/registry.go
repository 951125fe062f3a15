// Package registry implements the audio-chunk registry surface: PUT/GET/
// DELETE the chunk list for a book, atomically replacing prior entries.
// It shares the gateway's Postgres handle rather than being a separate
// network service, since spec.md's registry is a logical component and
// the teacher already shares one Postgres instance across its services.
package registry

import (
	"gorm.io/gorm"

	"github.com/epicrunze/evocable/internal/models"
)

type Registry struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// ChunkInput is one entry of a transcoder's chunk list post.
type ChunkInput struct {
	Seq       int
	DurationS float64
	FilePath  string
	FileSize  int64
}

// ReplaceChunks atomically replaces all chunks for a book — the transcoder
// calls this once per completed book, per spec.md's Open Question
// resolution ("transcoder posts the full chunk list").
func (r *Registry) ReplaceChunks(bookID uint, chunks []ChunkInput) (total int, err error) {
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", bookID).Delete(&models.BookChunk{}).Error; err != nil {
			return err
		}
		rows := make([]models.BookChunk, 0, len(chunks))
		for _, ch := range chunks {
			rows = append(rows, models.BookChunk{
				BookID:    bookID,
				Seq:       ch.Seq,
				DurationS: ch.DurationS,
				FilePath:  ch.FilePath,
				FileSize:  ch.FileSize,
			})
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// List returns every chunk for a book, ordered by seq, plus the total
// duration in seconds.
func (r *Registry) List(bookID uint) (chunks []models.BookChunk, totalDuration float64, err error) {
	if err := r.db.Where("book_id = ?", bookID).Order("seq asc").Find(&chunks).Error; err != nil {
		return nil, 0, err
	}
	for _, c := range chunks {
		totalDuration += c.DurationS
	}
	return chunks, totalDuration, nil
}

// Get returns a single chunk by (book_id, seq).
func (r *Registry) Get(bookID uint, seq int) (*models.BookChunk, error) {
	var chunk models.BookChunk
	err := r.db.Where("book_id = ? AND seq = ?", bookID, seq).First(&chunk).Error
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// Count is the authoritative chunk count for a book — the registry wins
// over the book row's advisory total_chunks, per spec.md's Open Question
// resolution.
func (r *Registry) Count(bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.BookChunk{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

// Delete removes every chunk row for a book, invoked by the cleanup
// consumer on book deletion.
func (r *Registry) Delete(bookID uint) error {
	return r.db.Where("book_id = ?", bookID).Delete(&models.BookChunk{}).Error
}
