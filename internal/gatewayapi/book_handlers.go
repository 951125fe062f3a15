package gatewayapi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/epicrunze/evocable/internal/apperr"
	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/middleware"
	"github.com/epicrunze/evocable/internal/models"
)

const maxUploadBytes = 50 * 1024 * 1024 // 50 MiB

var extensionsByFormat = map[models.SourceFormat]string{
	models.FormatPDF:  ".pdf",
	models.FormatEPUB: ".epub",
	models.FormatTXT:  ".txt",
}

// submitBookHandler implements §4.1 "Submit book": validates the
// multipart form, writes the upload, creates the book row, and enqueues
// the first pipeline stage — grounded on content-service/fileupload.go's
// uploadBookFileHandler.
func (s *Server) submitBookHandler(c *gin.Context) {
	userID := middleware.UserID(c)

	title := strings.TrimSpace(c.PostForm("title"))
	format := models.SourceFormat(strings.ToLower(c.PostForm("format")))

	if title == "" || len(title) > 255 {
		middleware.Fail(c, apperr.WithFields(apperr.Validation, "invalid title",
			map[string]string{"title": "must be non-empty and at most 255 characters"}))
		return
	}
	wantExt, ok := extensionsByFormat[format]
	if !ok {
		middleware.Fail(c, apperr.WithFields(apperr.Validation, "invalid format",
			map[string]string{"format": "must be one of pdf, epub, txt"}))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		middleware.Fail(c, apperr.New(apperr.BadRequest, "file is required"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		middleware.Fail(c, apperr.New(apperr.PayloadTooLarge, "file exceeds 50 MiB"))
		return
	}
	gotExt := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if gotExt != wantExt {
		middleware.Fail(c, apperr.New(apperr.BadRequest,
			fmt.Sprintf("File extension %s doesn't match format %s", gotExt, format)))
		return
	}

	book := models.Book{
		UserID:       userID,
		Title:        title,
		SourceFormat: format,
		Status:       models.BookStatusPending,
	}
	if err := s.DB.Create(&book).Error; err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}

	uploadDir := filepath.Join(s.Cfg.TextDataPath, "uploads", strconv.FormatUint(uint64(book.ID), 10))
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	destPath := filepath.Join(uploadDir, filepath.Base(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, destPath); err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	if _, err := fileSHA256(destPath); err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}

	book.SourceFilePath = destPath
	// Flip to extracting right before the task is handed to the broker,
	// mirroring the original pipeline's _trigger_ingest, which moves the
	// book to EXTRACTING at 10% just ahead of queuing the ingest task.
	book.Status = models.BookStatusExtracting
	book.PercentComplete = 10
	if err := s.DB.Save(&book).Error; err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}

	env := broker.TaskEnvelope{
		BookID:       book.ID,
		SourcePath:   destPath,
		UserID:       userID,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Broker.Push(c, broker.ExtractQueue, env); err != nil {
		// Submission still succeeds if the broker is unavailable, per
		// spec.md §5's back-pressure policy; progress resumes once the
		// broker returns.
	}

	c.JSON(http.StatusCreated, gin.H{"book_id": book.ID, "status": string(book.Status)})
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// listBooksHandler implements §4.1 "List books".
func (s *Server) listBooksHandler(c *gin.Context) {
	userID := middleware.UserID(c)
	limit := parseIntDefault(c.Query("limit"), 50)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 50
	}
	offset := parseIntDefault(c.Query("offset"), 0)

	var books []models.Book
	if err := s.DB.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&books).Error; err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}

	out := make([]gin.H, 0, len(books))
	for _, b := range books {
		out = append(out, bookJSON(&b))
	}
	c.JSON(http.StatusOK, gin.H{"books": out})
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// bookStatusHandler implements §4.1 "Status": the registry's chunk count
// is authoritative once completed, per spec.md §9's Open Question
// resolution.
func (s *Server) bookStatusHandler(c *gin.Context) {
	book, aerr := s.ownedBook(c)
	if aerr != nil {
		middleware.Fail(c, aerr)
		return
	}
	payload := bookJSON(book)
	if book.Status == models.BookStatusCompleted {
		if count, err := s.Registry.Count(book.ID); err == nil {
			payload["total_chunks"] = count
		}
	}
	c.JSON(http.StatusOK, payload)
}

// deleteBookHandler implements §4.1 "Delete": cascades metadata deletion
// and enqueues a cleanup message for workers to remove artifacts.
func (s *Server) deleteBookHandler(c *gin.Context) {
	book, aerr := s.ownedBook(c)
	if aerr != nil {
		middleware.Fail(c, aerr)
		return
	}

	if err := s.Registry.Delete(book.ID); err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	if err := s.DB.Delete(&models.Book{}, book.ID).Error; err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}

	if err := s.Broker.Push(c, broker.CleanupQueue, broker.CleanupEnvelope{BookID: book.ID}); err != nil {
		// Deletion remains effective even if the broker is unreachable;
		// the transcoder garbage-collects ogg artifacts whenever it next
		// drains the cleanup queue.
	}

	// The gateway removes text/wav directories itself; transcoded (ogg)
	// outputs are cleaned by the transcoder via the cleanup queue, per
	// §4.1's Delete contract.
	bookIDStr := strconv.FormatUint(uint64(book.ID), 10)
	_ = os.RemoveAll(filepath.Join(s.Cfg.TextDataPath, "uploads", bookIDStr))
	_ = os.RemoveAll(filepath.Join(s.Cfg.TextDataPath, bookIDStr))
	_ = os.Remove(filepath.Join(s.Cfg.TextDataPath, bookIDStr+".txt"))
	_ = os.RemoveAll(filepath.Join(s.Cfg.WAVDataPath, bookIDStr))

	c.JSON(http.StatusOK, gin.H{"detail": "book deleted"})
}

// ownedBook loads a book by path param :id and verifies the session
// user owns it, returning `not_found` for both nonexistence and ownership
// mismatch so cross-user access is indistinguishable from a 404.
func (s *Server) ownedBook(c *gin.Context) (*models.Book, *apperr.Error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, apperr.NotFoundErr()
	}
	var book models.Book
	if err := s.DB.First(&book, uint(id)).Error; err != nil {
		return nil, apperr.NotFoundErr()
	}
	if book.UserID != middleware.UserID(c) {
		return nil, apperr.NotFoundErr()
	}
	return &book, nil
}

func bookJSON(b *models.Book) gin.H {
	h := gin.H{
		"id":               b.ID,
		"title":            b.Title,
		"source_format":    b.SourceFormat,
		"status":           b.Status,
		"percent_complete": b.PercentComplete,
		"total_chunks":     b.TotalChunks,
		"created_at":       b.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":       b.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if b.ErrorMessage != "" {
		h["error_message"] = b.ErrorMessage
	}
	return h
}
