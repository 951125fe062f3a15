package broker

// TaskEnvelope is the pipeline task envelope §3 describes: book id, an
// optional stage-specific payload, and a timestamp.
type TaskEnvelope struct {
	BookID       uint   `json:"book_id"`
	SourcePath   string `json:"source_path,omitempty"`
	UserID       uint   `json:"user_id,omitempty"`
	TimestampUTC string `json:"timestamp"`
}

// CompletionEnvelope is what a worker places on a `*_completed` queue.
type CompletionEnvelope struct {
	BookID       uint   `json:"book_id"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	TimestampUTC string `json:"timestamp"`

	// Only populated for transcode completions.
	Chunks      []ChunkSummary `json:"chunks,omitempty"`
	TotalChunks int            `json:"total_chunks,omitempty"`
}

// ChunkSummary is one entry of a transcode completion's chunk list.
type ChunkSummary struct {
	Seq       int     `json:"seq"`
	DurationS float64 `json:"duration_s"`
	FilePath  string  `json:"file_path"`
	FileSize  int64   `json:"file_size"`
}

// CleanupEnvelope tells workers which book's artifacts to remove.
type CleanupEnvelope struct {
	BookID uint `json:"book_id"`
}
