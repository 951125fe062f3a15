// Package models defines the GORM-backed metadata-store rows shared by
// every evocable process, mirroring the User/Book/BookChunk style the
// teacher's auth-service and content-service each defined independently.
package models

import "time"

// BookStatus enumerates the permitted states of a book's pipeline.
type BookStatus string

const (
	BookStatusPending         BookStatus = "pending"
	BookStatusExtracting      BookStatus = "extracting"
	BookStatusSegmenting      BookStatus = "segmenting"
	BookStatusGeneratingAudio BookStatus = "generating_audio"
	BookStatusTranscoding     BookStatus = "transcoding"
	BookStatusCompleted       BookStatus = "completed"
	BookStatusFailed          BookStatus = "failed"
)

// SourceFormat enumerates the accepted upload formats.
type SourceFormat string

const (
	FormatPDF  SourceFormat = "pdf"
	FormatEPUB SourceFormat = "epub"
	FormatTXT  SourceFormat = "txt"
)

// User is an account row. Never hard-deleted, only deactivated, matching
// auth-service's own "deactivate, don't delete" account lifecycle.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	IsVerified   bool      `gorm:"default:false" json:"is_verified"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Book is a user-owned document traveling through the pipeline.
type Book struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          uint         `gorm:"index;not null" json:"user_id"`
	Title           string       `gorm:"size:255;not null" json:"title"`
	SourceFormat    SourceFormat `gorm:"size:16;not null" json:"source_format"`
	Status          BookStatus   `gorm:"size:32;not null;default:pending" json:"status"`
	PercentComplete int          `gorm:"default:0" json:"percent_complete"`
	ErrorMessage    string       `gorm:"size:1024" json:"error_message,omitempty"`
	SourceFilePath  string       `gorm:"size:1024" json:"-"`
	TotalChunks     int          `gorm:"default:0" json:"total_chunks"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// BookChunk is one Opus-in-Ogg audio segment, addressable by (book_id, seq).
// It is the gateway-local mirror of the audio-chunk registry; the registry
// package is the authority, this table is what the registry's Postgres
// backing store actually is (see internal/registry).
type BookChunk struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	BookID    uint      `gorm:"uniqueIndex:idx_book_seq;not null" json:"book_id"`
	Seq       int       `gorm:"uniqueIndex:idx_book_seq;not null" json:"seq"`
	DurationS float64   `gorm:"not null" json:"duration_s"`
	FilePath  string    `gorm:"size:1024;not null" json:"-"`
	FileSize  int64     `gorm:"not null" json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}
